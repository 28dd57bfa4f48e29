package store

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/url"

	"github.com/bookstore/storefront/internal/checkout"
	"github.com/bookstore/storefront/internal/events"
	"github.com/bookstore/storefront/internal/model"
	"go.uber.org/zap"
)

func pickOrders(st *Snapshot) *Resource[[]model.Order] { return &st.Orders }
func ordersLifecycle(st *Snapshot) lifecycle           { return &st.Orders }

// FetchOrders loads the signed-in user's order history.
func (s *Store) FetchOrders(ctx context.Context, params url.Values) ([]model.Order, error) {
	params = cloneValues(params)
	return fetch(ctx, s, action{name: "fetchOrders", resource: ResourceOrders, failure: "Failed to load orders"},
		pickOrders,
		func(ctx context.Context) ([]model.Order, error) { return s.api.Orders(ctx, params) },
		nil,
	)
}

// FetchOrder loads one order into the detail resource.
func (s *Store) FetchOrder(ctx context.Context, id int64) (*model.Order, error) {
	return fetch(ctx, s, action{name: "fetchOrder", resource: ResourceOrder, failure: "Failed to load order"},
		func(st *Snapshot) *Resource[*model.Order] { return &st.Order },
		func(ctx context.Context) (*model.Order, error) {
			order, err := s.api.GetOrder(ctx, id)
			if err != nil {
				return nil, err
			}
			return &order, nil
		},
		nil,
	)
}

// CartToken fingerprints the priced contents of a cart.
func CartToken(items []model.CartItem) string {
	h := fnv.New64a()
	for _, item := range items {
		fmt.Fprintf(h, "%d:%d:%d;", item.BookID, item.Units(), model.ToCents(item.CurrentPrice()))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// StartCheckout opens a checkout flow over the current cart. The returned token
// must be passed to CreateOrder; submission is refused if the cart changed since.
func (s *Store) StartCheckout(authorizers map[checkout.Method]checkout.Authorizer) (*checkout.Flow, string, error) {
	user := s.User()
	if user == nil {
		return nil, "", &ActionError{Action: "startCheckout", Message: signInMessage, Err: ErrAuthRequired}
	}
	items := s.CartItems()
	flow, err := checkout.NewFlow(items, user, authorizers)
	if err != nil {
		return nil, "", err
	}
	return flow, CartToken(items), nil
}

// PlaceOrder completes flow and submits the order it assembles.
func (s *Store) PlaceOrder(ctx context.Context, flow *checkout.Flow, token string) (*model.Order, error) {
	return flow.Complete(ctx, func(ctx context.Context, req model.CreateOrderRequest) (*model.Order, error) {
		return s.CreateOrder(ctx, req, token)
	})
}

// CreateOrder submits req. The cart is refetched first and compared with token
// (skipped when token is empty). On success the cart is emptied and the order
// becomes the first of the history.
func (s *Store) CreateOrder(ctx context.Context, req model.CreateOrderRequest, token string) (*model.Order, error) {
	act := action{name: "createOrder", resource: ResourceOrders, failure: "Failed to create order", success: "Order placed successfully"}
	if err := s.requireUser(ctx, act.name); err != nil {
		return nil, err
	}

	items, err := s.FetchCart(ctx)
	if err != nil {
		return nil, err
	}
	if token != "" && CartToken(items) != token {
		msg := "Your cart changed. Please review your order again"
		s.metrics.observe(act.name, resultInvalid, 0)
		s.notify(ctx, events.LevelWarning, act.name, msg)
		s.log.Info("Order refused, cart changed during checkout", zap.Int("items", len(items)))
		return nil, &ActionError{Action: act.name, Message: msg, Err: ErrCartChanged}
	}
	if err := checkout.ValidateMethod(checkout.Method(req.PaymentMethod), items); err != nil {
		s.metrics.observe(act.name, resultInvalid, 0)
		s.notify(ctx, events.LevelError, act.name, "Selected payment method is not available")
		return nil, &ActionError{Action: act.name, Message: "Selected payment method is not available", Err: err}
	}

	var created model.Order
	err = s.mutate(ctx, act, ordersLifecycle, func(ctx context.Context) error {
		var err error
		created, err = s.api.CreateOrder(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.update(func(st *Snapshot) {
		st.Cart.patch([]model.CartItem{})
		orders := make([]model.Order, 0, len(st.Orders.Data)+1)
		orders = append(orders, created)
		orders = append(orders, st.Orders.Data...)
		st.Orders.patch(orders)
	}, ResourceCart, ResourceOrders)
	s.log.Info("Order created",
		zap.Int64("order_id", created.ID),
		zap.String("order_number", created.OrderNumber),
		zap.Float64("total_amount", created.TotalAmount),
	)
	return &created, nil
}

// CancelOrder cancels an order and patches every local copy of it.
func (s *Store) CancelOrder(ctx context.Context, id int64) (*model.Order, error) {
	act := action{name: "cancelOrder", resource: ResourceOrders, failure: "Failed to cancel order", success: "Order cancelled"}
	var cancelled model.Order
	err := s.mutate(ctx, act, ordersLifecycle, func(ctx context.Context) error {
		var err error
		cancelled, err = s.api.CancelOrder(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if cancelled.ID == 0 {
		cancelled.ID = id
	}
	if cancelled.Status == "" {
		cancelled.Status = model.OrderCancelled
	}
	s.update(func(st *Snapshot) { patchOrder(st, cancelled) }, ResourceOrders, ResourceOrder, ResourceAdminOrders)
	return &cancelled, nil
}

// patchOrder replaces the order with the same id in the history, the detail
// and the admin list. Fields the update left empty keep their old values.
func patchOrder(st *Snapshot, upd model.Order) {
	merge := func(old model.Order) model.Order {
		if upd.OrderNumber == "" && upd.TotalAmount == 0 && len(upd.Items) == 0 {
			old.Status = upd.Status
			return old
		}
		return upd
	}
	replace := func(r *Resource[[]model.Order]) {
		for i, o := range r.Data {
			if o.ID == upd.ID {
				list := cloneSlice(r.Data)
				list[i] = merge(o)
				r.patch(list)
				return
			}
		}
	}
	replace(&st.Orders)
	replace(&st.AdminOrders.Items)
	if st.Order.Data != nil && st.Order.Data.ID == upd.ID {
		o := merge(*st.Order.Data)
		st.Order.patch(&o)
	}
}
