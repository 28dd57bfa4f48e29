package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bookstore/storefront/internal/model"
)

type userEnvelope struct {
	User *model.User `json:"user"`
}

// Login opens a session. The server sets the session and CSRF cookies.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.User, error) {
	var env userEnvelope
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/login", body: creds}, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}

// Register creates an account and opens a session.
func (c *Client) Register(ctx context.Context, reg model.Registration) (*model.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/register", body: reg}, &raw); err != nil {
		return nil, err
	}
	var env userEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.User != nil {
		return env.User, nil
	}
	var user model.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

// Logout closes the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/api/logout", auth: true}, nil)
}

// CurrentUser returns the session owner. A guest gets a 401 *Error.
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var env userEnvelope
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/login", auth: true}, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}
