package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Server event families the storefront invalidates on
const (
	CatalogEvents = "catalog"
	OrderEvents   = "order"
)

// ErrMalformedEvent is returned for deliveries that cannot be decoded
var ErrMalformedEvent = errors.New("malformed event")

// HandlerFunc reacts to one server event
type HandlerFunc func(ctx context.Context, event Event) error

// Handlers maps event families to invalidation handlers. Nil handlers ack and ignore.
type Handlers struct {
	Catalog HandlerFunc
	Order   HandlerFunc
}

// disposition is what happens to a delivery after handling
type disposition int

const (
	dispAck disposition = iota
	dispRequeue
	dispDiscard
)

// Consumer listens for catalog.* and order.* events and routes them to Handlers
type Consumer struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	serviceName string
	handlers    Handlers
	log         *zap.Logger
}

// NewConsumer connects to url and declares the shared exchange
func NewConsumer(url, serviceName string, handlers Handlers, log *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Info("Consumer connected to RabbitMQ", zap.String("exchange", exchangeName))

	return &Consumer{
		conn:        conn,
		channel:     ch,
		serviceName: serviceName,
		handlers:    handlers,
		log:         log,
	}, nil
}

// RoutingKeys are the bindings of the invalidation queue
func RoutingKeys() []string {
	return []string{CatalogEvents + ".*", OrderEvents + ".*"}
}

// Start consumes until ctx is done or the channel closes
func (c *Consumer) Start(ctx context.Context) error {
	queueName := fmt.Sprintf("%s.invalidation.queue", c.serviceName)

	queue, err := c.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range RoutingKeys() {
		if err := c.channel.QueueBind(queue.Name, key, exchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue to %s: %w", key, err)
		}
		c.log.Info("Listening for events", zap.String("routing_key", key))
	}

	msgs, err := c.channel.Consume(
		queue.Name,
		c.serviceName, // consumer tag
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			c.handleMessage(ctx, msg)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var err error
	switch c.dispatch(ctx, msg.RoutingKey, msg.Body, msg.Redelivered) {
	case dispAck:
		err = msg.Ack(false)
	case dispRequeue:
		err = msg.Nack(false, true)
	case dispDiscard:
		err = msg.Nack(false, false)
	}
	if err != nil {
		c.log.Warn("Failed to settle delivery", zap.String("routing_key", msg.RoutingKey), zap.Error(err))
	}
}

// dispatch decodes body and runs the handler for routingKey's family.
// Failed handlers are retried once through redelivery.
func (c *Consumer) dispatch(ctx context.Context, routingKey string, body []byte, redelivered bool) disposition {
	var handler HandlerFunc
	family, _, _ := strings.Cut(routingKey, ".")
	switch family {
	case CatalogEvents:
		handler = c.handlers.Catalog
	case OrderEvents:
		handler = c.handlers.Order
	default:
		c.log.Warn("Unknown event type", zap.String("routing_key", routingKey))
		return dispDiscard
	}

	event, err := decodeEvent(body)
	if err != nil {
		c.log.Error("Failed to decode event", zap.String("routing_key", routingKey), zap.Error(err))
		return dispDiscard
	}
	if event.EventType == "" {
		event.EventType = routingKey
	}

	if handler == nil {
		return dispAck
	}
	if err := handler(ctx, event); err != nil {
		c.log.Error("Event handler failed",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType),
			zap.Bool("redelivered", redelivered),
			zap.Error(err),
		)
		if redelivered {
			return dispDiscard
		}
		return dispRequeue
	}

	c.log.Debug("Event handled", zap.String("event_id", event.EventID), zap.String("event_type", event.EventType))
	return dispAck
}

func decodeEvent(body []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return event, nil
}

// Close closes the consumer channel and connection
func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
