package llm

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrInvalidChatURL is returned by every call of a client built with a chat
// URL that is not an absolute http(s) URL.
var ErrInvalidChatURL = errors.New("invalid chat URL")

// Float64Ptr returns a pointer to the given float64 value.
func Float64Ptr(v float64) *float64 {
	return &v
}

// clientConfig holds configuration for an LLM client.
type clientConfig struct {
	baseURL     string
	apiKey      string
	model       string
	temperature *float64
	chatURL     *url.URL
	httpClient  *http.Client
	err         error
}

// Option is a functional option for configuring an LLM client.
type Option func(*clientConfig)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithChatURL sends every request to u exactly, instead of deriving the
// path from the base URL. Inference services advertise a complete chat
// completions URL, so this is what the inference controller uses.
// A URL without an http(s) scheme or a host makes every call fail with
// ErrInvalidChatURL.
func WithChatURL(u string) Option {
	return func(c *clientConfig) {
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			c.err = fmt.Errorf("%w: %q", ErrInvalidChatURL, u)
			return
		}
		c.chatURL = parsed
		c.baseURL = u
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) {
		c.apiKey = key
	}
}

// WithModel sets the default model name for requests.
// Per-request model settings in ChatRequest take precedence.
func WithModel(model string) Option {
	return func(c *clientConfig) {
		c.model = model
	}
}

// WithTemperature sets the default temperature for requests.
// Per-request temperature settings in ChatRequest take precedence.
func WithTemperature(temp float64) Option {
	return func(c *clientConfig) {
		c.temperature = &temp
	}
}

// fixedURLDoer sends every request to one URL.
type fixedURLDoer struct {
	target *url.URL
	client *http.Client
}

func (d *fixedURLDoer) Do(req *http.Request) (*http.Response, error) {
	u := *d.target
	req.URL = &u
	req.Host = u.Host
	return d.client.Do(req)
}

// doer returns the HTTP doer for go-openai, or nil for its default.
func (c *clientConfig) doer() interface {
	Do(*http.Request) (*http.Response, error)
} {
	hc := c.httpClient
	if c.chatURL != nil {
		if hc == nil {
			hc = http.DefaultClient
		}
		return &fixedURLDoer{target: c.chatURL, client: hc}
	}
	if hc != nil {
		return hc
	}
	return nil
}
