package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	mcptools "github.com/giantswarm/sxwl-client/internal/mcp"
	"github.com/giantswarm/sxwl-client/internal/server"
	"github.com/giantswarm/sxwl-client/pkg/client"
	"github.com/giantswarm/sxwl-client/pkg/endpoint"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

func newServeCmd() *cobra.Command {
	var (
		transport    string
		httpAddr     string
		httpEndpoint string
		configDir    string
		cleanup      bool
		debug        bool

		enableOAuth     bool
		oauthBaseURL    string
		oauthProvider   string
		dexIssuerURL    string
		dexClientID     string
		dexClientSecret string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server to expose the platform operations via the Model Context Protocol.

Supports multiple transport types:
  - stdio: Standard input/output (default, for IDE integration)
  - streamable-http: HTTP with streaming support (for remote access)

When using streamable-http transport, /healthz and /metrics are served next to
the MCP endpoint and OAuth 2.1 authentication can be enabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			sc := &server.ServerContext{
				Endpoint:  newEndpointFromFlags(cmd, endpoint.WithMetrics(client.NewMetrics(registry))),
				ConfigDir: configDir,
				Registry:  registry,
			}

			mcpSrv := mcpserver.NewMCPServer("sxwl", rootCmd.Version,
				mcpserver.WithToolCapabilities(true),
			)

			if err := mcptools.RegisterTools(mcpSrv, sc); err != nil {
				return fmt.Errorf("failed to register MCP tools: %w", err)
			}

			if cleanup {
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
					defer cancel()
					if left := sc.Endpoint.Cleanup(ctx); left > 0 {
						slog.Warn("some resources could not be deleted", "remaining", left)
					}
				}()
			}

			// Set up graceful shutdown.
			shutdownCtx, cancel := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer cancel()

			switch transport {
			case transportStdio:
				return runStdioServer(mcpSrv)
			case transportStreamableHTTP:
				fmt.Printf("Starting sxwl MCP server with %s transport...\n", transport)
				if enableOAuth {
					return runOAuthHTTPServer(mcpSrv, registry, httpAddr, httpEndpoint, shutdownCtx, server.OAuthConfig{
						BaseURL:         oauthBaseURL,
						Provider:        oauthProvider,
						DexIssuerURL:    dexIssuerURL,
						DexClientID:     dexClientID,
						DexClientSecret: dexClientSecret,
					})
				}
				return runHTTPServer(mcpSrv, registry, httpAddr, httpEndpoint, shutdownCtx)
			default:
				return fmt.Errorf("unsupported transport: %s (supported: stdio, streamable-http)", transport)
			}
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http)")
	cmd.Flags().StringVar(&httpEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http)")
	cmd.Flags().StringVar(&configDir, "config-dir", "", "Directory of job files the config_file tool argument may read")
	cmd.Flags().BoolVar(&cleanup, "cleanup-on-exit", false, "Delete the services and jobs created by this server when it stops")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	// OAuth flags.
	cmd.Flags().BoolVar(&enableOAuth, "enable-oauth", false, "Enable OAuth 2.1 authentication (for HTTP transport)")
	cmd.Flags().StringVar(&oauthBaseURL, "oauth-base-url", "", "OAuth base URL (e.g. https://sxwl-mcp.example.com)")
	cmd.Flags().StringVar(&oauthProvider, "oauth-provider", "dex", "OAuth provider: dex")
	cmd.Flags().StringVar(&dexIssuerURL, "dex-issuer-url", "", "Dex OIDC issuer URL")
	cmd.Flags().StringVar(&dexClientID, "dex-client-id", "", "Dex OAuth client ID")
	cmd.Flags().StringVar(&dexClientSecret, "dex-client-secret", "", "Dex OAuth client secret")

	return cmd
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// httpServer is implemented by the plain and OAuth HTTP servers.
type httpServer interface {
	Start(addr string) error
	Shutdown(ctx context.Context) error
}

func runHTTPServer(mcpSrv *mcpserver.MCPServer, gatherer prometheus.Gatherer, addr, mcpEndpoint string, ctx context.Context) error {
	fmt.Printf("  HTTP endpoint: %s\n", mcpEndpoint)
	fmt.Printf("  Health: /healthz\n")
	fmt.Printf("  Metrics: /metrics\n")

	return serveUntilDone(ctx, server.NewHTTPServer(mcpSrv, mcpEndpoint, gatherer), addr, "HTTP server")
}

func runOAuthHTTPServer(mcpSrv *mcpserver.MCPServer, gatherer prometheus.Gatherer, addr, mcpEndpoint string, ctx context.Context, cfg server.OAuthConfig) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("--oauth-base-url is required when --enable-oauth is set")
	}

	oauthSrv, err := server.NewOAuthHTTPServer(mcpSrv, mcpEndpoint, gatherer, cfg.WithEnvDefaults(os.Getenv))
	if err != nil {
		return fmt.Errorf("failed to create OAuth HTTP server: %w", err)
	}

	fmt.Printf("OAuth-enabled HTTP server starting on %s\n", addr)
	fmt.Printf("  Base URL: %s\n", cfg.BaseURL)
	fmt.Printf("  Provider: %s\n", cfg.Provider)
	fmt.Printf("  MCP endpoint: %s (requires OAuth Bearer token)\n", mcpEndpoint)
	fmt.Printf("  Health: /healthz\n")
	fmt.Printf("  Metrics: /metrics\n")
	fmt.Printf("  OAuth endpoints:\n")
	for _, ep := range server.OAuthEndpoints {
		fmt.Printf("    - %s: %s\n", ep.Description, ep.Path)
	}

	return serveUntilDone(ctx, oauthSrv, addr, "OAuth HTTP server")
}

func serveUntilDone(ctx context.Context, srv httpServer, addr, name string) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.Start(addr); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Printf("Shutdown signal received, stopping %s...\n", name)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down %s: %w", name, err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("%s error: %w", name, err)
		}
	}

	fmt.Printf("%s stopped\n", name)
	return nil
}
