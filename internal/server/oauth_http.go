package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	oauth "github.com/giantswarm/mcp-oauth"
	"github.com/giantswarm/mcp-oauth/providers/dex"
	oauthserver "github.com/giantswarm/mcp-oauth/server"
	"github.com/giantswarm/mcp-oauth/storage/memory"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OAuthProviderDex is the Dex OIDC provider.
	OAuthProviderDex = "dex"

	// DefaultShutdownTimeout bounds graceful shutdown of the HTTP servers.
	DefaultShutdownTimeout = 10 * time.Second

	defaultMaxClientsPerIP = 10
)

// Environment variables consulted by OAuthConfig.WithEnvDefaults.
const (
	EnvDexIssuerURL    = "DEX_ISSUER_URL"
	EnvDexClientID     = "DEX_CLIENT_ID"
	EnvDexClientSecret = "DEX_CLIENT_SECRET"
)

// OAuthEndpoints lists the OAuth routes served next to the MCP endpoint.
var OAuthEndpoints = []struct {
	Path        string
	Description string
}{
	{"/.well-known/oauth-authorization-server", "Authorization Server Metadata"},
	{"/.well-known/oauth-protected-resource", "Protected Resource Metadata"},
	{"/oauth/register", "Client Registration"},
	{"/oauth/authorize", "Authorization"},
	{"/oauth/token", "Token"},
	{"/oauth/callback", "Callback"},
	{"/oauth/revoke", "Revocation"},
	{"/oauth/introspect", "Introspection"},
}

// OAuthConfig holds configuration for the OAuth-enabled HTTP server.
type OAuthConfig struct {
	// BaseURL is the server's public base URL (e.g. https://sxwl-mcp.example.com).
	BaseURL string

	// Provider is the OAuth provider name. Only "dex" is supported; empty means dex.
	Provider string

	DexIssuerURL    string
	DexClientID     string
	DexClientSecret string

	// MaxClientsPerIP caps dynamic client registrations per address (default 10).
	MaxClientsPerIP int
}

// WithEnvDefaults returns a copy of c with empty Dex settings read through getenv.
func (c OAuthConfig) WithEnvDefaults(getenv func(string) string) OAuthConfig {
	if c.DexIssuerURL == "" {
		c.DexIssuerURL = getenv(EnvDexIssuerURL)
	}
	if c.DexClientID == "" {
		c.DexClientID = getenv(EnvDexClientID)
	}
	if c.DexClientSecret == "" {
		c.DexClientSecret = getenv(EnvDexClientSecret)
	}
	return c
}

// Validate reports every missing or invalid setting at once.
func (c OAuthConfig) Validate() error {
	var errs []error
	if c.Provider != "" && c.Provider != OAuthProviderDex {
		errs = append(errs, fmt.Errorf("unsupported OAuth provider %q (supported: %s)", c.Provider, OAuthProviderDex))
	}
	if err := validateHTTPSRequirement(c.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("OAuth base URL validation failed: %w", err))
	}
	if c.DexIssuerURL == "" {
		errs = append(errs, fmt.Errorf("dex issuer URL is required (--dex-issuer-url or %s)", EnvDexIssuerURL))
	}
	if c.DexClientID == "" {
		errs = append(errs, fmt.Errorf("dex client ID is required (--dex-client-id or %s)", EnvDexClientID))
	}
	if c.DexClientSecret == "" {
		errs = append(errs, fmt.Errorf("dex client secret is required (--dex-client-secret or %s)", EnvDexClientSecret))
	}
	return errors.Join(errs...)
}

// OAuthHTTPServer serves MCP behind OAuth 2.1 bearer token validation.
type OAuthHTTPServer struct {
	handler     http.Handler
	oauthServer *oauth.Server
	httpServer  *http.Server
	logger      *slog.Logger
}

// NewOAuthHTTPServer validates cfg and builds the OAuth server, the Dex
// provider and the router. Tokens and clients are kept in memory, so the
// server is meant to run as a single instance.
func NewOAuthHTTPServer(mcpSrv *mcpserver.MCPServer, mcpEndpoint string, gatherer prometheus.Gatherer, cfg OAuthConfig) (*OAuthHTTPServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxClientsPerIP <= 0 {
		cfg.MaxClientsPerIP = defaultMaxClientsPerIP
	}

	logger := slog.Default().With("component", "oauth")

	provider, err := dex.NewProvider(&dex.Config{
		IssuerURL:    cfg.DexIssuerURL,
		ClientID:     cfg.DexClientID,
		ClientSecret: cfg.DexClientSecret,
		RedirectURL:  cfg.BaseURL + "/oauth/callback",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Dex provider: %w", err)
	}

	store := memory.New()
	oauthSrv, err := oauth.NewServer(provider, store, store, store, &oauthserver.Config{
		Issuer:                    cfg.BaseURL,
		AllowRefreshTokenRotation: true,
		MaxClientsPerIP:           cfg.MaxClientsPerIP,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth server: %w", err)
	}

	h := oauth.NewHandler(oauthSrv, logger)
	mcpHandler := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(mcpEndpoint),
	)

	r := newRouter(mcpEndpoint, h.ValidateToken(mcpHandler), gatherer)
	r.NotFound(oauthMux(h, mcpEndpoint).ServeHTTP)

	return &OAuthHTTPServer{
		handler:     r,
		oauthServer: oauthSrv,
		logger:      logger,
	}, nil
}

// oauthMux carries the OAuth routes. The mcp-oauth metadata helpers register
// on a ServeMux, so the chi router falls through to it for unknown paths.
func oauthMux(h *oauth.Handler, mcpEndpoint string) *http.ServeMux {
	mux := http.NewServeMux()
	h.RegisterAuthorizationServerMetadataRoutes(mux)
	h.RegisterProtectedResourceMetadataRoutes(mux, mcpEndpoint)
	mux.HandleFunc("/oauth/authorize", h.ServeAuthorization)
	mux.HandleFunc("/oauth/token", h.ServeToken)
	mux.HandleFunc("/oauth/callback", h.ServeCallback)
	mux.HandleFunc("/oauth/register", h.ServeClientRegistration)
	mux.HandleFunc("/oauth/revoke", h.ServeTokenRevocation)
	mux.HandleFunc("/oauth/introspect", h.ServeTokenIntrospection)
	return mux
}

// Handler returns the root handler.
func (s *OAuthHTTPServer) Handler() http.Handler {
	return s.handler
}

// Start listens on addr until Shutdown is called.
func (s *OAuthHTTPServer) Start(addr string) error {
	s.httpServer = newHTTPServer(addr, s.handler)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the OAuth background workers, then the listener.
func (s *OAuthHTTPServer) Shutdown(ctx context.Context) error {
	if err := s.oauthServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown OAuth server", "error", err)
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// validateHTTPSRequirement allows plain HTTP only for loopback hosts.
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return nil
		}
		return fmt.Errorf("OAuth 2.1 requires HTTPS for production (got: %s). Use HTTPS or localhost for development", baseURL)
	default:
		return fmt.Errorf("invalid URL scheme: %s (must be http for localhost or https)", u.Scheme)
	}
}
