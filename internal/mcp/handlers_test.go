package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/sxwl-client/internal/server"
	"github.com/giantswarm/sxwl-client/internal/testutil"
	"github.com/giantswarm/sxwl-client/pkg/client"
	"github.com/giantswarm/sxwl-client/pkg/endpoint"
	"github.com/giantswarm/sxwl-client/pkg/poll"
)

func newServerContext(t *testing.T, p *testutil.Platform) *server.ServerContext {
	t.Helper()
	return &server.ServerContext{
		Endpoint: endpoint.New("",
			endpoint.WithCredentials(p.Credentials()),
			endpoint.WithPollOptions(poll.Options{MaxAttempts: 10, Interval: 10 * time.Millisecond}),
		),
	}
}

func call(args map[string]any) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	return request
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	content, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return content.Text
}

func TestHandlersRequireEndpoint(t *testing.T) {
	sc := &server.ServerContext{}

	handlers := map[string]func(context.Context, mcp.CallToolRequest, *server.ServerContext) (*mcp.CallToolResult, error){
		"list_models":      handleListModels,
		"deploy_inference": handleDeployInference,
		"inference_status": handleInferenceStatus,
		"chat":             handleChat,
		"delete_inference": handleDeleteInference,
		"start_finetune":   handleStartFinetune,
		"finetune_status":  handleFinetuneStatus,
		"delete_finetune":  handleDeleteFinetune,
		"health":           handleHealth,
		"purge_queue":      handlePurgeQueue,
		"list_tracked":     handleListTracked,
	}

	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			result, err := h(context.Background(), call(map[string]any{}), sc)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, text(t, result), "SXWL endpoint is not configured")
		})
	}
}

func TestHandleListModels(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.Models = map[string]any{
		"public_list": []any{map[string]any{"model_id": "p-1", "model_name": "qwen"}},
		"user_list":   []any{},
	}
	sc := newServerContext(t, p)

	result, err := handleListModels(context.Background(), call(nil), sc)
	require.NoError(t, err)

	var models []client.Model
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &models))
	require.Len(t, models, 1)
	assert.Equal(t, "qwen", models[0].Name)
}

func TestHandleDeployInferenceMissingConfig(t *testing.T) {
	p := testutil.NewPlatform(t)
	sc := newServerContext(t, p)

	result, err := handleDeployInference(context.Background(), call(map[string]any{}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "config or config_file is required")
	assert.Zero(t, p.Calls(testutil.RouteDeployInference))
}

func TestHandleDeployInference(t *testing.T) {
	p := testutil.NewPlatform(t)
	sc := newServerContext(t, p)

	result, err := handleDeployInference(context.Background(), call(map[string]any{
		"config": map[string]any{"model_id": "m-1"},
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, text(t, result))

	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &out))
	assert.Equal(t, "infer-123", out["service_name"])
	assert.Equal(t, "deploying", out["state"])
	assert.Equal(t, map[string]any{"input": map[string]any{"model_id": "m-1"}}, p.LastBody(testutil.RouteDeployInference))
}

func TestHandleDeployInferenceWait(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference(
		[]client.InferenceStatus{{ServiceName: "infer-123", Status: "pending"}},
		[]client.InferenceStatus{{ServiceName: "infer-123", Status: "running", API: p.ChatURL()}},
	)
	sc := newServerContext(t, p)

	result, err := handleDeployInference(context.Background(), call(map[string]any{
		"config":          map[string]any{"model_id": "m-1"},
		"wait":            true,
		"timeout_seconds": float64(30),
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, text(t, result))
	assert.Contains(t, text(t, result), p.ChatURL())
}

func TestHandleDeployInferenceConfigFile(t *testing.T) {
	p := testutil.NewPlatform(t)
	sc := newServerContext(t, p)
	sc.ConfigDir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(sc.ConfigDir, "qwen.yaml"), []byte("model_id: m-9\n"), 0o644))

	result, err := handleDeployInference(context.Background(), call(map[string]any{"config_file": "qwen.yaml"}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, text(t, result))
	assert.Equal(t, map[string]any{"input": map[string]any{"model_id": "m-9"}}, p.LastBody(testutil.RouteDeployInference))

	result, err = handleDeployInference(context.Background(), call(map[string]any{"config_file": "../etc/passwd"}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "within config directory")
}

func TestHandleInferenceStatus(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference(
		nil,
		[]client.InferenceStatus{{ServiceName: "svc-1", Status: "running", API: p.ChatURL()}},
	)
	sc := newServerContext(t, p)

	result, err := handleInferenceStatus(context.Background(), call(map[string]any{"service_name": "svc-1"}), sc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"service_name":"svc-1","status":"unknown"}`, text(t, result))

	result, err = handleInferenceStatus(context.Background(), call(map[string]any{"service_name": "svc-1"}), sc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"service_name":"svc-1","chat_url":"`+p.ChatURL()+`"}`, text(t, result))
}

func TestHandleChat(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference([]client.InferenceStatus{{ServiceName: "svc-1", Status: "running", API: p.ChatURL()}})
	sc := newServerContext(t, p)

	result, err := handleChat(context.Background(), call(map[string]any{
		"service_name": "svc-1",
		"message":      "hi",
		"system":       "be brief",
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, text(t, result))
	assert.Equal(t, "hello there", text(t, result))
	assert.Len(t, p.LastBody(testutil.RouteChat)["messages"], 2)
}

func TestHandleChatNotReady(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference([]client.InferenceStatus{{ServiceName: "svc-1", Status: "pending"}})
	sc := newServerContext(t, p)

	result, err := handleChat(context.Background(), call(map[string]any{
		"service_name": "svc-1",
		"message":      "hi",
	}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "is not ready")
	assert.Equal(t, 1, p.Calls(testutil.RouteListInference))
	assert.Zero(t, p.Calls(testutil.RouteChat))
}

func TestHandleChatMissingArgs(t *testing.T) {
	p := testutil.NewPlatform(t)
	sc := newServerContext(t, p)

	result, err := handleChat(context.Background(), call(map[string]any{"service_name": "svc-1"}), sc)
	require.NoError(t, err)
	assert.Contains(t, text(t, result), "message is required")
}

func TestHandleDeleteInference(t *testing.T) {
	p := testutil.NewPlatform(t)
	sc := newServerContext(t, p)

	result, err := handleDeleteInference(context.Background(), call(map[string]any{"service_name": "svc-1"}), sc)
	require.NoError(t, err)
	assert.Contains(t, text(t, result), `"svc-1" deleted`)

	p.Fail(testutil.RouteDeleteInference, http.StatusInternalServerError)
	result, err = handleDeleteInference(context.Background(), call(map[string]any{"service_name": "svc-1"}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleStartFinetuneWait(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetTraining([]client.TrainingJob{{JobName: "ft-123", Status: "succeeded"}})
	p.AdaptersJSON = `{"user_list":[{"id":"a-1","meta":"{\"finetune_id\":\"ft-123\"}"}]}`
	sc := newServerContext(t, p)

	result, err := handleStartFinetune(context.Background(), call(map[string]any{
		"config": map[string]any{"model": "m-1"},
		"wait":   true,
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, text(t, result))
	assert.JSONEq(t, `{"job_id":"ft-123","adapter_id":"a-1","status":"succeeded"}`, text(t, result))
}

func TestHandleStartFinetuneFailure(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetTraining([]client.TrainingJob{{JobName: "ft-123", Status: "failed"}})
	sc := newServerContext(t, p)

	result, err := handleStartFinetune(context.Background(), call(map[string]any{
		"config": map[string]any{"model": "m-1"},
		"wait":   true,
	}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), `failed with status "failed"`)
}

func TestHandleFinetuneStatus(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetTraining([]client.TrainingJob{{JobName: "ft-7", Status: "succeeded"}})
	p.AdaptersJSON = `{"user_list":[{"id":"a-7","meta":"{\"finetune_id\":\"ft-7\"}"}]}`
	sc := newServerContext(t, p)

	result, err := handleFinetuneStatus(context.Background(), call(map[string]any{"job_id": "ft-7"}), sc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"job_id":"ft-7","status":"succeeded","adapter_id":"a-7"}`, text(t, result))
}

func TestHandleFinetuneStatusRunning(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetTraining([]client.TrainingJob{{JobName: "ft-7", Status: "running"}})
	sc := newServerContext(t, p)

	result, err := handleFinetuneStatus(context.Background(), call(map[string]any{"job_id": "ft-7"}), sc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"job_id":"ft-7","status":"running"}`, text(t, result))
	assert.Zero(t, p.Calls(testutil.RouteListAdapters))
}

func TestHandleDeleteFinetune(t *testing.T) {
	p := testutil.NewPlatform(t)
	sc := newServerContext(t, p)

	result, err := handleDeleteFinetune(context.Background(), call(map[string]any{"job_id": "ft-1"}), sc)
	require.NoError(t, err)
	assert.Contains(t, text(t, result), `"ft-1" deleted`)
	assert.Equal(t, map[string]any{"job_id": "ft-1"}, p.LastBody(testutil.RouteDeleteFinetune))
}

func TestHandleHealthAndPurge(t *testing.T) {
	p := testutil.NewPlatform(t)
	sc := newServerContext(t, p)

	result, err := handleHealth(context.Background(), call(map[string]any{"timeout_seconds": float64(1)}), sc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, text(t, result))

	p.Fail(testutil.RoutePurgeQueue, http.StatusBadGateway)
	result, err = handlePurgeQueue(context.Background(), call(nil), sc)
	require.NoError(t, err)
	assert.Contains(t, text(t, result), `"status": "error"`)
}

func TestHandleListTracked(t *testing.T) {
	p := testutil.NewPlatform(t)
	sc := newServerContext(t, p)

	_, err := handleDeployInference(context.Background(), call(map[string]any{"config": map[string]any{"model_id": "m"}}), sc)
	require.NoError(t, err)
	_, err = handleStartFinetune(context.Background(), call(map[string]any{"config": map[string]any{"model": "m"}}), sc)
	require.NoError(t, err)

	result, err := handleListTracked(context.Background(), call(nil), sc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"inference_services":["infer-123"],"finetune_jobs":["ft-123"]}`, text(t, result))
}

func TestRegisterTools(t *testing.T) {
	p := testutil.NewPlatform(t)
	sc := newServerContext(t, p)
	sc.Registry = prometheus.NewRegistry()

	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterTools(s, sc))
}

func TestInstrumentCountsResults(t *testing.T) {
	p := testutil.NewPlatform(t)
	sc := newServerContext(t, p)
	reg := prometheus.NewRegistry()
	m := newToolMetrics(reg)

	health := m.instrument("health", handlerFor(sc, handleHealth))
	_, err := health(context.Background(), call(nil))
	require.NoError(t, err)

	status := m.instrument("inference_status", handlerFor(sc, handleInferenceStatus))
	_, err = status(context.Background(), call(map[string]any{}))
	require.NoError(t, err)

	// A second registration reuses the collector.
	again := newToolMetrics(reg)
	assert.Equal(t, 1.0, promtestutil.ToFloat64(again.calls.WithLabelValues("health", "ok")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(again.calls.WithLabelValues("inference_status", "error")))
}

func TestResolveConfigPath(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		dir     string
		file    string
		wantErr string
	}{
		{name: "relative file", dir: dir, file: "a.json"},
		{name: "nested file", dir: dir, file: "sub/a.json"},
		{name: "traversal", dir: dir, file: "../a.json", wantErr: "within config directory"},
		{name: "absolute outside", dir: dir, file: "/etc/passwd", wantErr: "within config directory"},
		{name: "empty", dir: dir, file: " ", wantErr: "config_file is required"},
		{name: "no config dir", dir: "", file: "a.json", wantErr: "--config-dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveConfigPath(tt.dir, tt.file)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tt.file), got)
		})
	}
}
