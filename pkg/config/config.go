// Package config resolves SXWL platform credentials into the request
// configuration shared by the transport and the controllers built on it.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is used when no base URL is configured anywhere.
	DefaultBaseURL = "https://sxwl.ai"

	// DefaultTimeout bounds every platform call that has no explicit timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent identifies this client to the platform.
	DefaultUserAgent = "sxwl-client-go"

	// EnvAPIKey and EnvBaseURL name the environment variables read by FromEnv.
	EnvAPIKey  = "SXWL_API_KEY"
	EnvBaseURL = "SXWL_BASE_URL"
)

// ErrConfiguration is matched by every ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports missing or invalid credentials.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + e.Reason
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Credentials is the process-wide credential state: an API key and the
// platform base URL.
type Credentials struct {
	APIKey  string `json:"api_key" yaml:"api_key" toml:"api_key"`
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url"`
}

// Merge returns c with empty fields filled from fallback.
func (c Credentials) Merge(fallback Credentials) Credentials {
	if c.APIKey == "" {
		c.APIKey = fallback.APIKey
	}
	if c.BaseURL == "" {
		c.BaseURL = fallback.BaseURL
	}
	return c
}

// FromEnv reads credentials from SXWL_API_KEY and SXWL_BASE_URL.
func FromEnv() Credentials {
	return Credentials{
		APIKey:  strings.TrimSpace(os.Getenv(EnvAPIKey)),
		BaseURL: strings.TrimSpace(os.Getenv(EnvBaseURL)),
	}
}

// Config is the immutable request configuration derived from Credentials.
// Authorization and User-Agent are applied by the transport, not Headers.
type Config struct {
	BaseURL   string
	Token     string
	Headers   http.Header
	Timeout   time.Duration
	UserAgent string
}

// Option customizes a Config during New.
type Option func(*Config)

// WithTimeout sets the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		if ua != "" {
			c.UserAgent = ua
		}
	}
}

// New builds a Config. It fails with a ConfigurationError when the API key
// is empty or the base URL is not an absolute http(s) URL.
func New(creds Credentials, opts ...Option) (*Config, error) {
	token := strings.TrimSpace(creds.APIKey)
	if token == "" {
		return nil, &ConfigurationError{Reason: "API key is not set (use --api-key, " + EnvAPIKey + " or a credentials profile)"}
	}

	baseURL := strings.TrimSpace(creds.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("invalid base URL %q: %v", baseURL, err)}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("base URL %q must be an absolute http or https URL", baseURL)}
	}

	cfg := &Config{
		BaseURL:   baseURL,
		Token:     token,
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
		Headers: http.Header{
			"Accept":       {"application/json, text/plain, */*"},
			"Content-Type": {"application/json"},
			"Origin":       {baseURL},
			"Connection":   {"keep-alive"},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg, nil
}
