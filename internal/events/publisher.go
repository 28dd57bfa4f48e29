package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	exchangeName = "bookstore.events"
	exchangeType = "topic"

	notificationKeyPrefix = "storefront.notification."
	eventVersion          = "1.0.0"

	// Retry configuration
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 5 * time.Second
	confirmTimeout = 5 * time.Second
)

// Event is the envelope exchanged on the bookstore topic exchange
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  string          `json:"event_version"`
	Timestamp     string          `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

var errNotAcked = errors.New("event not acknowledged")

// Publisher publishes storefront notifications to RabbitMQ. Publishes are
// serialized on one confirm-mode channel.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *zap.Logger

	mu sync.Mutex
}

// NewPublisher connects to url and declares the exchange with publisher confirms
func NewPublisher(url string, log *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareExchange(channel); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	// Enable publisher confirms for reliability
	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	log.Info("Connected to RabbitMQ", zap.String("exchange", exchangeName))

	return &Publisher{
		conn:    conn,
		channel: channel,
		log:     log,
	}, nil
}

func declareExchange(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		exchangeName,
		exchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	return nil
}

// NotificationRoutingKey is the routing key a notification of level is published under
func NotificationRoutingKey(level Level) string {
	return notificationKeyPrefix + string(level)
}

// notificationEvent wraps n in the exchange envelope
func notificationEvent(n Notification) (Event, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return Event{}, err
	}
	return Event{
		EventID:      n.ID,
		EventType:    NotificationRoutingKey(n.Level),
		EventVersion: eventVersion,
		Timestamp:    n.Timestamp.UTC().Format(time.RFC3339),
		Payload:      payload,
	}, nil
}

// Publish sends n and waits for the broker's confirmation
func (p *Publisher) Publish(ctx context.Context, n Notification) error {
	event, err := notificationEvent(n)
	if err != nil {
		p.log.Error("Failed to marshal notification", zap.String("notification_id", n.ID), zap.Error(err))
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	return p.publishWithRetry(ctx, event.EventType, event)
}

// Forward publishes every notification received on ch until ctx is done or ch closes.
// Publish failures are logged and do not stop forwarding.
func (p *Publisher) Forward(ctx context.Context, ch <-chan Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if err := p.Publish(ctx, n); err != nil && ctx.Err() == nil {
				p.log.Warn("Notification dropped", zap.String("notification_id", n.ID), zap.Error(err))
			}
		}
	}
}

// nextBackoff doubles d, capped at maxBackoff
func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// publishWithRetry publishes an event with exponential backoff retry
func (p *Publisher) publishWithRetry(ctx context.Context, routingKey string, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error("Failed to marshal event", zap.Error(err))
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.EventID,
		Body:         body,
		Headers: amqp.Table{
			"event_type":    event.EventType,
			"event_version": event.EventVersion,
		},
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for attempt, backoff := 1, initialBackoff; attempt <= maxRetries; attempt, backoff = attempt+1, nextBackoff(backoff) {
		msg.Timestamp = time.Now()
		lastErr = p.publishOnce(ctx, routingKey, msg)
		if lastErr == nil {
			p.log.Debug("Notification published",
				zap.String("event_id", event.EventID),
				zap.String("routing_key", routingKey),
				zap.Int("attempt", attempt),
			)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == maxRetries {
			break
		}

		p.log.Warn("Notification publish failed, retrying",
			zap.String("event_id", event.EventID),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(lastErr),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	p.log.Error("Failed to publish notification after retries",
		zap.String("event_id", event.EventID),
		zap.String("routing_key", routingKey),
		zap.Int("attempts", maxRetries),
		zap.Error(lastErr),
	)
	return fmt.Errorf("failed to publish event after %d attempts: %w", maxRetries, lastErr)
}

// publishOnce sends msg and waits up to confirmTimeout for the broker ack
func (p *Publisher) publishOnce(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	confirmation, err := p.channel.PublishWithDeferredConfirmWithContext(ctx, exchangeName, routingKey, false, false, msg)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()
	acked, err := confirmation.WaitContext(waitCtx)
	switch {
	case err != nil:
		return fmt.Errorf("confirmation timeout: %w", err)
	case !acked:
		return errNotAcked
	}
	return nil
}

// IsHealthy checks if the publisher connection is healthy
func (p *Publisher) IsHealthy() bool {
	return p != nil && p.conn != nil && !p.conn.IsClosed()
}

// Close closes the publisher connection
func (p *Publisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Error("Failed to close channel", zap.Error(err))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			p.log.Error("Failed to close connection", zap.Error(err))
			return err
		}
	}
	p.log.Info("Publisher closed")
	return nil
}
