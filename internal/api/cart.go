package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bookstore/storefront/internal/model"
)

type addItemBody struct {
	BookID   int64 `json:"bookId"`
	Quantity int   `json:"quantity,omitempty"`
}

type quantityBody struct {
	Quantity int `json:"quantity"`
}

// Cart fetches the signed-in user's cart items.
func (c *Client) Cart(ctx context.Context) ([]model.CartItem, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/cart", auth: true}, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.CartItem](raw, "items")
}

// AddToCart adds quantity copies of a book. Keyed by book id.
func (c *Client) AddToCart(ctx context.Context, bookID int64, quantity int) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/cart/items",
		body:   addItemBody{BookID: bookID, Quantity: quantity},
		auth:   true,
	}, nil)
}

// UpdateCartItem sets the quantity of a cart entry. Keyed by association id.
func (c *Client) UpdateCartItem(ctx context.Context, itemID int64, quantity int) error {
	return c.do(ctx, request{
		method: http.MethodPut,
		path:   idPath("/api/cart/items", itemID),
		body:   quantityBody{Quantity: quantity},
		auth:   true,
	}, nil)
}

// RemoveFromCart deletes a cart entry. Keyed by association id.
func (c *Client) RemoveFromCart(ctx context.Context, itemID int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: idPath("/api/cart/items", itemID), auth: true}, nil)
}

// ClearCart empties the cart.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/api/cart", auth: true}, nil)
}

// Wishlist fetches the signed-in user's wishlist entries.
func (c *Client) Wishlist(ctx context.Context) ([]model.WishlistItem, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/wishlist", auth: true}, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.WishlistItem](raw, "items")
}

// AddToWishlist saves a book. Keyed by book id.
func (c *Client) AddToWishlist(ctx context.Context, bookID int64) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/wishlist/items",
		body:   addItemBody{BookID: bookID},
		auth:   true,
	}, nil)
}

// RemoveFromWishlist deletes a wishlist entry. Keyed by association id.
func (c *Client) RemoveFromWishlist(ctx context.Context, itemID int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: idPath("/api/wishlist/items", itemID), auth: true}, nil)
}

// MoveWishlistItemToCart moves a wishlist entry into the cart server-side.
func (c *Client) MoveWishlistItemToCart(ctx context.Context, itemID int64) error {
	return c.do(ctx, request{method: http.MethodPost, path: idPath("/api/wishlist/items", itemID, "move-to-cart"), auth: true}, nil)
}
