package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIClientDefaults(t *testing.T) {
	client := NewOpenAIClient()
	assert.Empty(t, client.model)
	assert.Nil(t, client.temperature)
}

func TestNewOpenAIClientWithModel(t *testing.T) {
	client := NewOpenAIClient(WithModel("/mnt/models"))
	assert.Equal(t, "/mnt/models", client.model)
}

func TestNewOpenAIClientWithTemperature(t *testing.T) {
	client := NewOpenAIClient(WithTemperature(0.7))
	require.NotNil(t, client.temperature)
	assert.Equal(t, 0.7, *client.temperature)
}

func TestApplyDefaultsRequestValuesTakePrecedence(t *testing.T) {
	client := NewOpenAIClient(WithModel("default-model"), WithTemperature(0.8))

	req := client.applyDefaults(ChatRequest{})
	assert.Equal(t, "default-model", req.Model)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.8, *req.Temperature)

	req = client.applyDefaults(ChatRequest{Model: "other", Temperature: Float64Ptr(0)})
	assert.Equal(t, "other", req.Model)
	assert.Equal(t, 0.0, *req.Temperature)
}

func TestWithChatURLRejectsInvalid(t *testing.T) {
	tests := []string{
		"not a url",
		"127.0.0.1:8000/v1/chat/completions",
		"/v1/chat/completions",
		"ftp://svc.example.com/v1/chat/completions",
	}

	for _, u := range tests {
		t.Run(u, func(t *testing.T) {
			client := NewOpenAIClient(WithChatURL(u))

			_, err := client.ChatCompletion(context.Background(), ChatRequest{Messages: UserMessages("hi")})
			assert.ErrorIs(t, err, ErrInvalidChatURL)

			_, err = client.ChatCompletionStream(context.Background(), ChatRequest{Messages: UserMessages("hi")})
			assert.ErrorIs(t, err, ErrInvalidChatURL)
		})
	}
}

func TestWithChatURLAcceptsAbsolute(t *testing.T) {
	cfg := &clientConfig{}
	WithChatURL("http://svc.example.com/v1/chat/completions")(cfg)
	require.NoError(t, cfg.err)
	require.NotNil(t, cfg.chatURL)
	assert.NotNil(t, cfg.doer())
}

func TestChatCompletionPostsToChatURL(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","model":"/mnt/models","choices":[{"index":0,"message":{"role":"assistant","content":"pong"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(WithChatURL(srv.URL+"/inference/abc/chat"), WithModel("/mnt/models"))
	resp, err := client.ChatCompletion(context.Background(), ChatRequest{Messages: UserMessages("ping")})
	require.NoError(t, err)

	assert.Equal(t, "/inference/abc/chat", gotPath)
	assert.Equal(t, "/mnt/models", gotBody["model"])
	assert.Equal(t, []any{map[string]any{"role": "user", "content": "ping"}}, gotBody["messages"])
	assert.Equal(t, "pong", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 2, resp.Usage.TotalTokens)
}

func TestHTTPStatusFromAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"model loading","type":"server_error"}}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(WithChatURL(srv.URL + "/v1/chat/completions"))
	_, err := client.ChatCompletion(context.Background(), ChatRequest{Model: "m", Messages: UserMessages("hi")})
	require.Error(t, err)

	code, msg, ok := HTTPStatus(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "model loading", msg)
}

func TestHTTPStatusWithoutResponse(t *testing.T) {
	_, _, ok := HTTPStatus(assert.AnError)
	assert.False(t, ok)
}
