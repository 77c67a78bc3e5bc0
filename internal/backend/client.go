package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rryowa/testskool_session/internal/models"
)

const (
	defaultHTTPStatusThreshold = 300
	maxErrorBody               = 64 << 10
)

// RequestInterceptor runs before an authenticated request is sent. It may
// block, and may change the request's headers.
type RequestInterceptor func(req *http.Request) error

type InterceptorID int

type registeredInterceptor struct {
	id InterceptorID
	fn RequestInterceptor
}

// Client talks JSON to the TestSkool backend. Requests made through Get, Post
// and Put pass through the registered interceptors; Login, Register and
// Refresh never do.
type Client struct {
	baseURL string
	authed  *http.Client
	plain   *http.Client
	log     *zap.SugaredLogger

	mu           sync.RWMutex
	interceptors []registeredInterceptor
	nextID       InterceptorID
}

func NewClient(baseURL string, timeout time.Duration, log *zap.SugaredLogger) *Client {
	c := &Client{
		baseURL: baseURL,
		plain:   &http.Client{Timeout: timeout},
		log:     log,
	}
	c.authed = &http.Client{
		Timeout:   timeout,
		Transport: &interceptTransport{client: c, next: http.DefaultTransport},
	}
	return c
}

// Use registers an interceptor and returns the handle needed to eject it.
func (c *Client) Use(fn RequestInterceptor) InterceptorID {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	c.interceptors = append(c.interceptors, registeredInterceptor{id: c.nextID, fn: fn})
	return c.nextID
}

// Eject removes a previously registered interceptor. Unknown ids are ignored.
func (c *Client) Eject(id InterceptorID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, ic := range c.interceptors {
		if ic.id == id {
			c.interceptors = append(c.interceptors[:i:i], c.interceptors[i+1:]...)
			return
		}
	}
}

func (c *Client) InterceptorCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.interceptors)
}

func (c *Client) snapshot() []RequestInterceptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]RequestInterceptor, 0, len(c.interceptors))
	for _, ic := range c.interceptors {
		out = append(out, ic.fn)
	}
	return out
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, c.authed, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, c.authed, http.MethodPost, path, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, c.authed, http.MethodPut, path, in, out)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(models.RequestIDHeader, uuid.NewString())

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= defaultHTTPStatusThreshold || resp.StatusCode < http.StatusOK {
		se := &StatusError{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
		c.log.Debugw("Backend returned non-2xx", "method", method, "path", path, "status", resp.StatusCode)
		return se
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrMalformedResponse, path, err)
	}
	return nil
}

// readDetail extracts the human readable reason from an error body.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}

	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Detail != "" {
		return payload.Detail
	}
	return payload.Message
}

type interceptTransport struct {
	client *Client
	next   http.RoundTripper
}

func (t *interceptTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTripper не должен менять исходный запрос.
	r := req.Clone(req.Context())
	for _, fn := range t.client.snapshot() {
		if err := fn(r); err != nil {
			if r.Body != nil {
				_ = r.Body.Close()
			}
			return nil, fmt.Errorf("request interceptor: %w", err)
		}
	}
	return t.next.RoundTrip(r)
}
