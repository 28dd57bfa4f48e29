package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/bookstore/storefront/internal/model"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is where the bookstore API listens in development.
	DefaultBaseURL = "http://127.0.0.1:5555"

	defaultTimeout = 10 * time.Second
	csrfCookieName = "csrf_access_token"
	csrfHeaderName = "X-CSRF-TOKEN"
)

// ErrEmptyBaseURL is returned when the client is configured without an API address.
var ErrEmptyBaseURL = errors.New("api: empty base url")

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit is the sustained requests per second. Zero disables throttling.
	RateLimit float64
	Burst     int
	Logger    *zap.Logger
	// HTTPClient overrides the transport. Its Jar is replaced when nil.
	HTTPClient *http.Client
}

// Client talks JSON to the bookstore REST API. The session lives in the cookie jar.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewClient builds a client for opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if raw == "" {
		return nil, ErrEmptyBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("api: cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		limiter: limiter,
		log:     log,
	}, nil
}

// BaseURL returns the API address the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// csrfToken returns the CSRF cookie the server set on login, if any.
func (c *Client) csrfToken() string {
	for _, cookie := range c.http.Jar.Cookies(c.baseURL) {
		if cookie.Name == csrfCookieName {
			return cookie.Value
		}
	}
	return ""
}

// request describes one API call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	auth   bool
}

// do performs req and decodes a successful JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("api: rate limit: %w", err)
		}
	}

	endpoint := c.baseURL.JoinPath(req.path)
	if len(req.query) > 0 {
		endpoint.RawQuery = req.query.Encode()
	}

	var body *bytes.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("api: marshal %s %s: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint.String(), body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.auth {
		if token := c.csrfToken(); token != "" {
			httpReq.Header.Set(csrfHeaderName, token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Warn("API request failed",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Error(err),
		)
		return fmt.Errorf("api: %s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := readError(resp)
		c.log.Debug("API request rejected",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Int("status", resp.StatusCode),
			zap.String("error", apiErr.Message),
		)
		return apiErr
	}

	c.log.Debug("API request completed",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", req.method, req.path, err)
	}
	return nil
}

// decodeList normalizes a list payload that may be a bare array or an object
// wrapping the array under one of keys. The result is never nil.
func decodeList[T any](raw json.RawMessage, keys ...string) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	for _, key := range keys {
		if inner, ok := envelope[key]; ok {
			return decodeList[T](inner)
		}
	}
	return []T{}, nil
}

// decodePagination reads the "pagination" field of an envelope, if present.
func decodePagination(raw json.RawMessage) (model.Pagination, error) {
	var envelope struct {
		Pagination *model.Pagination `json:"pagination"`
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return model.Pagination{}, nil
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return model.Pagination{}, err
	}
	if envelope.Pagination == nil {
		return model.Pagination{}, nil
	}
	return *envelope.Pagination, nil
}

// idPath joins path segments with an integer id.
func idPath(prefix string, id int64, suffix ...string) string {
	p := fmt.Sprintf("%s/%d", prefix, id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}
