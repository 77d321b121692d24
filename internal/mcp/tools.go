package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/sxwl-client/internal/server"
	"github.com/giantswarm/sxwl-client/pkg/config"
)

// RegisterTools registers all MCP tools with the server.
func RegisterTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	var reg toolRegistrar = s
	if sc.Registry != nil {
		reg = &instrumentedRegistrar{s: s, metrics: newToolMetrics(sc.Registry)}
	}

	registerInferenceTools(reg, sc)
	registerFinetuneTools(reg, sc)
	registerPlatformTools(reg, sc)
	return nil
}

type toolRegistrar interface {
	AddTool(tool mcp.Tool, handler mcpserver.ToolHandlerFunc)
}

type instrumentedRegistrar struct {
	s       *mcpserver.MCPServer
	metrics *toolMetrics
}

func (r *instrumentedRegistrar) AddTool(tool mcp.Tool, handler mcpserver.ToolHandlerFunc) {
	r.s.AddTool(tool, r.metrics.instrument(tool.Name, handler))
}

// Arguments shared by the job tools.
func jobConfigOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithObject("config",
			mcp.Description("Request body as a JSON object"),
		),
		mcp.WithString("config_file",
			mcp.Description("Job file (JSON, YAML or TOML) inside the server's config directory, used when config is omitted"),
		),
		mcp.WithBoolean("wait",
			mcp.Description("Block until the job finishes (default: false)"),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Upper bound for wait=true (default: 86400)"),
		),
	}
}

func endpointMissing(sc *server.ServerContext) *mcp.CallToolResult {
	if sc.Endpoint == nil {
		return mcp.NewToolResultError("SXWL endpoint is not configured")
	}
	return nil
}

// jobConfig returns the inline config, or reads config_file from the
// config directory.
func jobConfig(args map[string]any, configDir string) (map[string]any, error) {
	if cfg, ok := args["config"].(map[string]any); ok && len(cfg) > 0 {
		return cfg, nil
	}

	name, _ := args["config_file"].(string)
	if name == "" {
		return nil, fmt.Errorf("config or config_file is required")
	}
	path, err := resolveConfigPath(configDir, name)
	if err != nil {
		return nil, err
	}
	return config.ReadJobFile(path)
}

func timeoutArg(args map[string]any) time.Duration {
	if secs, ok := args["timeout_seconds"].(float64); ok && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return 0
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

// handlerFor adapts a handler taking the server context.
func handlerFor(sc *server.ServerContext, h func(context.Context, mcp.CallToolRequest, *server.ServerContext) (*mcp.CallToolResult, error)) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return h(ctx, request, sc)
	}
}
