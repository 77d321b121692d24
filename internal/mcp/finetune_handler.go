package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/sxwl-client/internal/server"
	"github.com/giantswarm/sxwl-client/pkg/finetune"
	"github.com/giantswarm/sxwl-client/pkg/poll"
)

func registerFinetuneTools(s toolRegistrar, sc *server.ServerContext) {
	// start_finetune
	startOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Start a fine-tune job. With wait=true, blocks until the job succeeds and returns the adapter it produced."),
	}, jobConfigOptions()...)
	s.AddTool(mcp.NewTool("start_finetune", startOpts...), handlerFor(sc, handleStartFinetune))

	// finetune_status
	statusTool := mcp.NewTool("finetune_status",
		mcp.WithDescription("Show the status of a fine-tune job and, once it succeeded, its adapter ID"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("ID returned by start_finetune"),
		),
	)
	s.AddTool(statusTool, handlerFor(sc, handleFinetuneStatus))

	// delete_finetune
	deleteTool := mcp.NewTool("delete_finetune",
		mcp.WithDescription("Delete a fine-tune job"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("ID of the fine-tune job to delete"),
		),
	)
	s.AddTool(deleteTool, handlerFor(sc, handleDeleteFinetune))
}

func handleStartFinetune(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if res := endpointMissing(sc); res != nil {
		return res, nil
	}

	args := request.GetArguments()

	cfg, err := jobConfig(args, sc.ConfigDir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if wait, _ := args["wait"].(bool); wait {
		summary, err := sc.Endpoint.FinetuneSync(ctx, cfg, timeoutArg(args))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("fine-tune job failed: %v", err)), nil
		}
		return jsonResult(summary)
	}

	job, err := sc.Endpoint.Finetune(ctx, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to start fine-tune job: %v", err)), nil
	}
	return jsonResult(map[string]string{
		"job_id": job.JobID(),
		"state":  string(job.State()),
	})
}

type finetuneStatus struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	AdapterID string `json:"adapter_id,omitempty"`
}

func handleFinetuneStatus(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if res := endpointMissing(sc); res != nil {
		return res, nil
	}

	id := stringArg(request.GetArguments(), "job_id")
	if id == "" {
		return mcp.NewToolResultError("job_id is required"), nil
	}

	job, err := sc.Endpoint.Job(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to query fine-tune job: %v", err)), nil
	}
	status, err := job.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to query fine-tune job: %v", err)), nil
	}

	out := finetuneStatus{JobID: id, Status: status}
	if status == finetune.StatusSucceeded {
		if err := job.WaitUntilCompletion(ctx, poll.Options{MaxAttempts: 1}); err == nil {
			// The adapter may not be indexed yet; the status alone is still useful.
			if adapterID, err := job.ResolveAdapterID(ctx); err == nil {
				out.AdapterID = adapterID
			}
		}
	}
	return jsonResult(out)
}

func handleDeleteFinetune(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if res := endpointMissing(sc); res != nil {
		return res, nil
	}

	id := stringArg(request.GetArguments(), "job_id")
	if id == "" {
		return mcp.NewToolResultError("job_id is required"), nil
	}

	if !sc.Endpoint.DeleteFinetune(ctx, id) {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete fine-tune job %q (see server logs)", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Fine-tune job %q deleted", id)), nil
}
