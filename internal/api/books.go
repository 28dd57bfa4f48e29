package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bookstore/storefront/internal/model"
)

// BookPage is one page of the catalog listing.
type BookPage struct {
	Books      []model.Book
	Pagination model.Pagination
}

// ListBooks fetches the catalog. params are passed through as query parameters.
func (c *Client) ListBooks(ctx context.Context, params url.Values) (BookPage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/books", query: params}, &raw); err != nil {
		return BookPage{}, err
	}
	books, err := decodeList[model.Book](raw, "books", "items")
	if err != nil {
		return BookPage{}, err
	}
	page, err := decodePagination(raw)
	if err != nil {
		return BookPage{}, err
	}
	return BookPage{Books: books, Pagination: page}, nil
}

// GetBook fetches a single book.
func (c *Client) GetBook(ctx context.Context, id int64) (model.Book, error) {
	var book model.Book
	err := c.do(ctx, request{method: http.MethodGet, path: idPath("/api/books", id)}, &book)
	return book, err
}

// FeaturedBooks fetches the featured shelf.
func (c *Client) FeaturedBooks(ctx context.Context) ([]model.Book, error) {
	return c.bookList(ctx, "/api/books/featured", nil)
}

// Bestsellers fetches the bestseller shelf.
func (c *Client) Bestsellers(ctx context.Context) ([]model.Book, error) {
	return c.bookList(ctx, "/api/books/bestsellers", nil)
}

// SearchBooks runs a server-side search.
func (c *Client) SearchBooks(ctx context.Context, query string, limit int) ([]model.Book, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	return c.bookList(ctx, "/api/books/search", params)
}

// Categories fetches every catalog category.
func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/categories"}, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Category](raw, "categories", "items")
}

// CreateBook adds a book to the catalog. Admin only.
func (c *Client) CreateBook(ctx context.Context, in model.BookInput) (model.Book, error) {
	var book model.Book
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/admin/books", body: in, auth: true}, &book)
	return book, err
}

// UpdateBook replaces a book's editable fields. Admin only.
func (c *Client) UpdateBook(ctx context.Context, id int64, in model.BookInput) (model.Book, error) {
	var book model.Book
	err := c.do(ctx, request{method: http.MethodPut, path: idPath("/api/admin/books", id), body: in, auth: true}, &book)
	return book, err
}

// DeleteBook removes a book from the catalog. Admin only.
func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: idPath("/api/admin/books", id), auth: true}, nil)
}

func (c *Client) bookList(ctx context.Context, path string, params url.Values) ([]model.Book, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: path, query: params}, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Book](raw, "books", "items")
}
