package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/sxwl-client/internal/llm"
	"github.com/giantswarm/sxwl-client/internal/server"
	"github.com/giantswarm/sxwl-client/pkg/inference"
	"github.com/giantswarm/sxwl-client/pkg/poll"
)

func registerInferenceTools(s toolRegistrar, sc *server.ServerContext) {
	// list_models
	listTool := mcp.NewTool("list_models",
		mcp.WithDescription("List the public and user models available on the SXWL platform"),
	)
	s.AddTool(listTool, handlerFor(sc, handleListModels))

	// deploy_inference
	deployOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Deploy an inference service. The config is sent under \"input\" unless it already has one. With wait=true, blocks until the service is running and returns its chat URL."),
	}, jobConfigOptions()...)
	s.AddTool(mcp.NewTool("deploy_inference", deployOpts...), handlerFor(sc, handleDeployInference))

	// inference_status
	statusTool := mcp.NewTool("inference_status",
		mcp.WithDescription("Show the status of an inference service, or its chat URL once it is running"),
		mcp.WithString("service_name",
			mcp.Required(),
			mcp.Description("Name returned by deploy_inference"),
		),
	)
	s.AddTool(statusTool, handlerFor(sc, handleInferenceStatus))

	// chat
	chatTool := mcp.NewTool("chat",
		mcp.WithDescription("Send a chat message to a running inference service"),
		mcp.WithString("service_name",
			mcp.Required(),
			mcp.Description("Name of a running inference service"),
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("User message"),
		),
		mcp.WithString("system",
			mcp.Description("Optional system prompt"),
		),
	)
	s.AddTool(chatTool, handlerFor(sc, handleChat))

	// delete_inference
	deleteTool := mcp.NewTool("delete_inference",
		mcp.WithDescription("Delete an inference service"),
		mcp.WithString("service_name",
			mcp.Required(),
			mcp.Description("Name of the inference service to delete"),
		),
	)
	s.AddTool(deleteTool, handlerFor(sc, handleDeleteInference))
}

func handleListModels(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if res := endpointMissing(sc); res != nil {
		return res, nil
	}
	return jsonResult(sc.Endpoint.ListModels(ctx))
}

func handleDeployInference(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if res := endpointMissing(sc); res != nil {
		return res, nil
	}

	args := request.GetArguments()

	cfg, err := jobConfig(args, sc.ConfigDir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if wait, _ := args["wait"].(bool); wait {
		summary, err := sc.Endpoint.RunSync(ctx, cfg, timeoutArg(args))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to deploy inference service: %v", err)), nil
		}
		return jsonResult(summary)
	}

	svc, err := sc.Endpoint.Run(ctx, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to deploy inference service: %v", err)), nil
	}
	return jsonResult(map[string]string{
		"service_name": svc.ServiceName(),
		"state":        string(svc.State()),
	})
}

type inferenceStatus struct {
	ServiceName string `json:"service_name"`
	inference.Output
}

func handleInferenceStatus(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if res := endpointMissing(sc); res != nil {
		return res, nil
	}

	name := stringArg(request.GetArguments(), "service_name")
	if name == "" {
		return mcp.NewToolResultError("service_name is required"), nil
	}

	svc, err := sc.Endpoint.Service(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to query inference service: %v", err)), nil
	}
	out, err := svc.Output(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to query inference service: %v", err)), nil
	}
	return jsonResult(inferenceStatus{ServiceName: name, Output: out})
}

func handleChat(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if res := endpointMissing(sc); res != nil {
		return res, nil
	}

	args := request.GetArguments()

	name := stringArg(args, "service_name")
	if name == "" {
		return mcp.NewToolResultError("service_name is required"), nil
	}
	message := stringArg(args, "message")
	if message == "" {
		return mcp.NewToolResultError("message is required"), nil
	}

	svc, err := sc.Endpoint.Service(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to reach inference service: %v", err)), nil
	}
	// One status check: chat only targets services that are already running.
	if err := svc.WaitUntilReady(ctx, poll.Options{MaxAttempts: 1}); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("inference service %s is not ready: %v", name, err)), nil
	}

	var messages []llm.Message
	if system := stringArg(args, "system"); system != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	resp, err := svc.Chat(ctx, messages)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chat failed: %v", err)), nil
	}
	return mcp.NewToolResultText(resp.Content), nil
}

func handleDeleteInference(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if res := endpointMissing(sc); res != nil {
		return res, nil
	}

	name := stringArg(request.GetArguments(), "service_name")
	if name == "" {
		return mcp.NewToolResultError("service_name is required"), nil
	}

	if !sc.Endpoint.DeleteInference(ctx, name) {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete inference service %q (see server logs)", name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Inference service %q deleted", name)), nil
}
