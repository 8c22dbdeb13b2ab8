// Package httpx is the HTTP transport shared by the REST-style adapters.
// It never retries; a failed request fails immediately.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
)

// HTTPError is returned for any non-2xx response
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		body = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, body)
}

// Client wraps an http.Client
type Client struct {
	http *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a Client on a pooled transport with the library defaults
func New(opts ...Option) *Client {
	c := &Client{http: cleanhttp.DefaultPooledClient()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request is a GET request under construction
type Request struct {
	url    string
	query  url.Values
	header http.Header
}

// Get starts a GET request for rawURL
func Get(rawURL string) *Request {
	return &Request{
		url:    rawURL,
		query:  make(url.Values),
		header: make(http.Header),
	}
}

// Query adds a query parameter; empty values are skipped
func (r *Request) Query(key, value string) *Request {
	if value != "" {
		r.query.Add(key, value)
	}
	return r
}

// Header sets a header; empty values are skipped
func (r *Request) Header(key, value string) *Request {
	if value != "" {
		r.header.Set(key, value)
	}
	return r
}

// URL renders the final request URL
func (r *Request) URL() (string, error) {
	u, err := url.Parse(r.url)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if len(r.query) > 0 {
		q := u.Query()
		for k, vs := range r.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Response is a fully read response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do executes r and reads the body. Non-2xx responses become *HTTPError.
func (c *Client) Do(ctx context.Context, r *Request) (*Response, error) {
	target, err := r.URL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	slog.DebugContext(ctx, "http request", "method", req.Method, "url", target)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       body,
		}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// JSON executes r and decodes the body into out
func (c *Client) JSON(ctx context.Context, r *Request, out any) error {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// JoinURL concatenates a base URL and path segments with single slashes
func JoinURL(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		out += "/" + p
	}
	return out
}
