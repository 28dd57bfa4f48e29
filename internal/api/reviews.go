package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bookstore/storefront/internal/model"
)

// BookReviews fetches the approved reviews of a book.
func (c *Client) BookReviews(ctx context.Context, bookID int64) ([]model.Review, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: idPath("/api/books", bookID, "reviews")}, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Review](raw, "reviews", "items")
}

// CreateReview posts a review; it starts out pending moderation.
func (c *Client) CreateReview(ctx context.Context, bookID int64, in model.ReviewInput) (model.Review, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodPost, path: idPath("/api/books", bookID, "reviews"), body: in, auth: true}, &raw); err != nil {
		return model.Review{}, err
	}
	var env struct {
		Review *model.Review `json:"review"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Review != nil {
		return *env.Review, nil
	}
	var review model.Review
	err := json.Unmarshal(raw, &review)
	return review, err
}

// VoteReview records a helpful (true) or unhelpful (false) vote.
func (c *Client) VoteReview(ctx context.Context, reviewID int64, helpful bool) error {
	action := "unhelpful"
	if helpful {
		action = "helpful"
	}
	return c.do(ctx, request{method: http.MethodPost, path: idPath("/api/reviews", reviewID, action), auth: true}, nil)
}
