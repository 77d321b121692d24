package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/sxwl-client/internal/server"
)

func registerPlatformTools(s toolRegistrar, sc *server.ServerContext) {
	// health
	healthTool := mcp.NewTool("health",
		mcp.WithDescription("Check the health of the platform job service. Failures are reported as {\"status\": \"error\"}."),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Request timeout (default: 3)"),
		),
	)
	s.AddTool(healthTool, handlerFor(sc, handleHealth))

	// purge_queue
	purgeTool := mcp.NewTool("purge_queue",
		mcp.WithDescription("Purge the platform job queue"),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Request timeout (default: 3)"),
		),
	)
	s.AddTool(purgeTool, handlerFor(sc, handlePurgeQueue))

	// list_tracked
	trackedTool := mcp.NewTool("list_tracked",
		mcp.WithDescription("List inference services and fine-tune jobs created through this server that have not been deleted"),
	)
	s.AddTool(trackedTool, handlerFor(sc, handleListTracked))
}

func handleHealth(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if res := endpointMissing(sc); res != nil {
		return res, nil
	}
	return jsonResult(sc.Endpoint.Health(ctx, timeoutArg(request.GetArguments())))
}

func handlePurgeQueue(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if res := endpointMissing(sc); res != nil {
		return res, nil
	}
	return jsonResult(sc.Endpoint.PurgeQueue(ctx, timeoutArg(request.GetArguments())))
}

type trackedResources struct {
	Services []string `json:"inference_services"`
	Jobs     []string `json:"finetune_jobs"`
}

func handleListTracked(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if res := endpointMissing(sc); res != nil {
		return res, nil
	}
	tr := sc.Endpoint.Tracker()
	return jsonResult(trackedResources{Services: tr.Services(), Jobs: tr.Jobs()})
}
