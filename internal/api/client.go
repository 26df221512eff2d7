// Package api is the HTTP client for the hypertension program admin API.
// Every authenticated request carries a bearer token; any 401 response
// triggers the registered unauthorized handler before the error is returned.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"htnadmin/internal/logging"

	"github.com/google/uuid"
)

// TokenSource supplies the current bearer token, or "" when signed out.
type TokenSource interface {
	Token() string
}

// Client talks to the admin API.
type Client struct {
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	userAgent string

	mu             sync.RWMutex
	tokens         TokenSource
	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets a per-request timeout. Zero leaves requests unbounded.
// It applies to the client given by WithHTTPClient regardless of option order.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client for baseURL (for example https://host/api).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{},
		userAgent: "htnadmin",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.baseURL }

// SetTokenSource wires the session that owns the bearer token.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

// SetUnauthorizedHandler registers fn to run on every 401 response.
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *Client) handleUnauthorized() {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// newRequest builds a request with auth, user agent and request id headers.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Request, string, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}

	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, reqID, nil
}

// send performs req and maps transport and status failures onto the error
// taxonomy. On success the caller owns resp.Body.
func (c *Client) send(req *http.Request, reqID string) (*http.Response, error) {
	log := logging.WithRequestID(logging.CategoryAPI, reqID)
	path := req.URL.Path
	timer := logging.StartTimer(logging.CategoryAPI, req.Method+" "+path)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("%s %s failed: %v", req.Method, path, err)
		return nil, &NetworkError{Method: req.Method, Path: path, Err: err}
	}
	timer.StopWithThreshold(5 * time.Second)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		log.Info("%s %s -> 401, clearing session", req.Method, path)
		c.handleUnauthorized()
		return nil, &UnauthorizedError{Path: path}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		defer resp.Body.Close()
		se := newServerError(resp)
		log.Warn("%s %s -> %d: %s", req.Method, path, resp.StatusCode, se.Message)
		return nil, se
	}
	log.Debug("%s %s -> %d", req.Method, path, resp.StatusCode)
	return resp, nil
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	req, reqID, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	resp, err := c.send(req, reqID)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServerError{Status: resp.StatusCode, Message: fmt.Sprintf("Invalid response from server: %v", err)}
	}
	return nil
}

// Download streams a non-JSON response body into w and returns the
// Content-Disposition filename when the server supplied one.
func (c *Client) Download(ctx context.Context, path string, query url.Values, w io.Writer) (string, int64, error) {
	req, reqID, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return "", 0, err
	}
	resp, err := c.send(req, reqID)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return "", n, &NetworkError{Method: req.Method, Path: req.URL.Path, Err: err}
	}
	return attachmentName(resp.Header.Get("Content-Disposition")), n, nil
}

func attachmentName(cd string) string {
	if cd == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(cd)
	if err != nil {
		return ""
	}
	return params["filename"]
}
