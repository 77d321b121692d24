package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"k8s.io/client-go/transport"

	"github.com/giantswarm/sxwl-client/pkg/config"
)

// apiPrefix is prepended to every resource path.
const apiPrefix = "/api"

// Response is a successful platform response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Transport sends authenticated JSON requests to the platform API. It never
// retries; callers decide what a failure means.
type Transport struct {
	baseURL string
	headers http.Header
	client  *http.Client
	metrics *Metrics
	logger  *slog.Logger
}

// TransportOption customizes a Transport.
type TransportOption func(*Transport)

// WithHTTPClient sets the underlying HTTP client. Its RoundTripper is wrapped
// with bearer auth and the configured User-Agent.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) {
		if c != nil {
			t.client = c
		}
	}
}

// WithMetrics records request metrics.
func WithMetrics(m *Metrics) TransportOption {
	return func(t *Transport) {
		t.metrics = m
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) TransportOption {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTransport creates a Transport for cfg.
func NewTransport(cfg *config.Config, opts ...TransportOption) *Transport {
	t := &Transport{
		baseURL: cfg.BaseURL,
		headers: cfg.Headers.Clone(),
		client:  &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}

	// Copy so the caller's client is never mutated.
	hc := *t.client
	rt := hc.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	rt = transport.NewUserAgentRoundTripper(cfg.UserAgent, rt)
	hc.Transport = transport.NewBearerAuthRoundTripper(cfg.Token, rt)
	if hc.Timeout == 0 {
		hc.Timeout = cfg.Timeout
	}
	t.client = &hc

	return t
}

// BaseURL returns the platform base URL without the API prefix.
func (t *Transport) BaseURL() string {
	return t.baseURL
}

// Do sends method to base_url + "/api" + path. body, when non-nil, is sent
// as JSON. Non-2xx responses and network failures return a *TransportError.
func (t *Transport) Do(ctx context.Context, method, path string, body any, query url.Values) (*Response, error) {
	target := t.baseURL + apiPrefix + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	for k, v := range t.headers {
		req.Header[k] = append([]string(nil), v...)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		t.metrics.observe(method, path, 0, time.Since(start))
		t.logger.Debug("platform request failed",
			"method", method,
			"path", path,
			"request_id", requestID,
			"error", err,
		)
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	t.metrics.observe(method, path, resp.StatusCode, elapsed)
	t.logger.Debug("platform request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", elapsed,
	)
	if err != nil {
		return nil, &TransportError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to read response body: %w", err),
		}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &TransportError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
