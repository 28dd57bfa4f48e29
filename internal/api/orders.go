package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/bookstore/storefront/internal/model"
)

// Orders fetches the signed-in user's order history.
func (c *Client) Orders(ctx context.Context, params url.Values) ([]model.Order, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/orders", query: params, auth: true}, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Order](raw, "orders", "items")
}

// GetOrder fetches one order.
func (c *Client) GetOrder(ctx context.Context, id int64) (model.Order, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: idPath("/api/orders", id), auth: true}, &raw); err != nil {
		return model.Order{}, err
	}
	return decodeOrder(raw)
}

// CreateOrder submits a checkout.
func (c *Client) CreateOrder(ctx context.Context, in model.CreateOrderRequest) (model.Order, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/orders", body: in, auth: true}, &raw); err != nil {
		return model.Order{}, err
	}
	return decodeOrder(raw)
}

// CancelOrder asks the API to cancel a pending order.
func (c *Client) CancelOrder(ctx context.Context, id int64) (model.Order, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodPost, path: idPath("/api/orders", id, "cancel"), auth: true}, &raw); err != nil {
		return model.Order{}, err
	}
	return decodeOrder(raw)
}

// decodeOrder accepts either a bare order or {"order": {...}}.
func decodeOrder(raw json.RawMessage) (model.Order, error) {
	var envelope struct {
		Order *model.Order `json:"order"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Order != nil {
		return *envelope.Order, nil
	}
	var order model.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return model.Order{}, err
	}
	return order, nil
}
