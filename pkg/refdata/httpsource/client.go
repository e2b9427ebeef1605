// Package httpsource implements refdata.Source over a REST upstream.
//
// Endpoints, relative to the base URL:
//
//	GET /warehouses
//	GET /variants
//	GET /variants/{id}
//	GET /variants/{id}/prices
//	GET /suppliers
//	GET /users
//	GET /users/{id}
//	GET /business-info
//	GET /expense-categories
//
// Requests are throttled by a token bucket so a cold cache cannot flood the
// upstream.
package httpsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmitrymomot/refcache/pkg/refdata"
)

var (
	// ErrNotFound is returned when the upstream answers 404.
	ErrNotFound = fmt.Errorf("httpsource: %w", refdata.ErrNotFound)

	// ErrInvalidBaseURL is returned by New for an empty or malformed base URL.
	ErrInvalidBaseURL = errors.New("httpsource: invalid base url")

	// ErrDecode is returned when a response body is not the expected JSON.
	ErrDecode = errors.New("httpsource: failed to decode response")
)

// StatusError reports an unexpected upstream status code.
type StatusError struct {
	Path       string
	Body       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpsource: GET %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

const maxErrorBody = 512

// Client fetches reference data from the upstream API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	header  http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
// Default: a client with a 10 second timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit caps the request rate. A non-positive rps disables throttling.
// Default: 10 requests per second, burst 5.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithHeader adds a header sent with every request, e.g. an API token.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Add(key, value)
	}
}

// New returns a client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(10), 5),
		header:  make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Warehouses(ctx context.Context) ([]refdata.Warehouse, error) {
	return get[[]refdata.Warehouse](ctx, c, "/warehouses")
}

func (c *Client) Variants(ctx context.Context) ([]refdata.Variant, error) {
	return get[[]refdata.Variant](ctx, c, "/variants")
}

func (c *Client) Variant(ctx context.Context, id string) (refdata.Variant, error) {
	return get[refdata.Variant](ctx, c, "/variants/"+url.PathEscape(id))
}

func (c *Client) Suppliers(ctx context.Context) ([]refdata.Supplier, error) {
	return get[[]refdata.Supplier](ctx, c, "/suppliers")
}

func (c *Client) Users(ctx context.Context) ([]refdata.User, error) {
	return get[[]refdata.User](ctx, c, "/users")
}

func (c *Client) User(ctx context.Context, id string) (refdata.User, error) {
	return get[refdata.User](ctx, c, "/users/"+url.PathEscape(id))
}

func (c *Client) Prices(ctx context.Context, variantID string) ([]refdata.Price, error) {
	return get[[]refdata.Price](ctx, c, "/variants/"+url.PathEscape(variantID)+"/prices")
}

func (c *Client) BusinessInfo(ctx context.Context) (refdata.BusinessInfo, error) {
	return get[refdata.BusinessInfo](ctx, c, "/business-info")
}

func (c *Client) ExpenseCategories(ctx context.Context) ([]refdata.ExpenseCategory, error) {
	return get[[]refdata.ExpenseCategory](ctx, c, "/expense-categories")
}

// Healthcheck reports whether the upstream answers at all.
func (c *Client) Healthcheck(ctx context.Context) error {
	_, err := get[refdata.BusinessInfo](ctx, c, "/business-info")
	return err
}

func get[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out T

	if err := c.limiter.Wait(ctx); err != nil {
		return out, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return out, err
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return out, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return out, &StatusError{
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, errors.Join(ErrDecode, err)
	}
	return out, nil
}

var _ refdata.Source = (*Client)(nil)
