package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bookstore/storefront/internal/model"
)

// UserPage is one page of the admin user list.
type UserPage struct {
	Users      []model.AdminUser
	Pagination model.Pagination
}

// OrderPage is one page of the admin order list.
type OrderPage struct {
	Orders     []model.Order
	Pagination model.Pagination
}

// ReviewPage is one page of the admin review list.
type ReviewPage struct {
	Reviews    []model.Review
	Pagination model.Pagination
}

// ReviewModeration is the API's answer to a review update.
type ReviewModeration struct {
	ReviewID int64              `json:"review_id"`
	Status   model.ReviewStatus `json:"status"`
	Message  string             `json:"message"`
}

// DashboardStats fetches the admin dashboard.
func (c *Client) DashboardStats(ctx context.Context) (model.DashboardStats, error) {
	var stats model.DashboardStats
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/admin/dashboard/stats", auth: true}, &stats)
	return stats, err
}

// AdminUsers lists users matching q.
func (c *Client) AdminUsers(ctx context.Context, q model.AdminQuery) (UserPage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/admin/users", query: q.Values(), auth: true}, &raw); err != nil {
		return UserPage{}, err
	}
	users, err := decodeList[model.AdminUser](raw, "users", "items")
	if err != nil {
		return UserPage{}, err
	}
	page, err := decodePagination(raw)
	return UserPage{Users: users, Pagination: page}, err
}

// UpdateAdminUser changes a user's role or active flag.
func (c *Client) UpdateAdminUser(ctx context.Context, userID int64, upd model.AdminUserUpdate) error {
	return c.do(ctx, request{method: http.MethodPut, path: idPath("/api/admin/users", userID), body: upd, auth: true}, nil)
}

// AdminOrders lists orders matching q.
func (c *Client) AdminOrders(ctx context.Context, q model.AdminQuery) (OrderPage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/admin/orders", query: q.Values(), auth: true}, &raw); err != nil {
		return OrderPage{}, err
	}
	orders, err := decodeList[model.Order](raw, "orders", "items")
	if err != nil {
		return OrderPage{}, err
	}
	page, err := decodePagination(raw)
	return OrderPage{Orders: orders, Pagination: page}, err
}

// UpdateOrderStatus moves an order to status. The returned order is nil when
// the API does not echo the updated record.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) (*model.Order, error) {
	var raw json.RawMessage
	body := map[string]model.OrderStatus{"status": status}
	if err := c.do(ctx, request{method: http.MethodPut, path: idPath("/api/admin/orders", orderID, "status"), body: body, auth: true}, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	order, err := decodeOrder(raw)
	if err != nil || order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

// AdminReviews lists reviews matching q.
func (c *Client) AdminReviews(ctx context.Context, q model.AdminQuery) (ReviewPage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/admin/reviews", query: q.Values(), auth: true}, &raw); err != nil {
		return ReviewPage{}, err
	}
	reviews, err := decodeList[model.Review](raw, "reviews", "items")
	if err != nil {
		return ReviewPage{}, err
	}
	page, err := decodePagination(raw)
	return ReviewPage{Reviews: reviews, Pagination: page}, err
}

// UpdateReview moderates or edits a review.
func (c *Client) UpdateReview(ctx context.Context, reviewID int64, upd model.ReviewUpdate) (ReviewModeration, error) {
	var res ReviewModeration
	err := c.do(ctx, request{method: http.MethodPut, path: idPath("/api/admin/reviews", reviewID), body: upd, auth: true}, &res)
	return res, err
}

// DeleteReview removes a review.
func (c *Client) DeleteReview(ctx context.Context, reviewID int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: idPath("/api/admin/reviews", reviewID), auth: true}, nil)
}

// RespondToReview attaches a public moderator reply to a review.
func (c *Client) RespondToReview(ctx context.Context, reviewID int64, content string) (model.ReviewResponse, error) {
	var env struct {
		Response model.ReviewResponse `json:"response"`
	}
	body := map[string]string{"content": content}
	err := c.do(ctx, request{method: http.MethodPost, path: idPath("/api/admin/reviews", reviewID, "response"), body: body, auth: true}, &env)
	return env.Response, err
}
