package inference

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/sxwl-client/internal/llm"
	"github.com/giantswarm/sxwl-client/internal/testutil"
	"github.com/giantswarm/sxwl-client/pkg/client"
	"github.com/giantswarm/sxwl-client/pkg/poll"
	"github.com/giantswarm/sxwl-client/pkg/tracker"
)

var fastPoll = poll.Options{MaxAttempts: 60, Interval: 10 * time.Millisecond}

func status(name, s, api string) []client.InferenceStatus {
	return []client.InferenceStatus{
		{ServiceName: "someone-else", Status: "running", API: "http://other/v1/chat/completions"},
		{ServiceName: name, Status: s, API: api},
	}
}

func deployed(t *testing.T, p *testutil.Platform, opts ...Option) *Service {
	t.Helper()
	s := New(p.Client(t), opts...)
	require.NoError(t, s.Deploy(context.Background(), map[string]any{"model_id": "m-1"}))
	return s
}

func TestDeployWrapsInputAndTracks(t *testing.T) {
	p := testutil.NewPlatform(t)
	tr := tracker.New()

	s := deployed(t, p, WithTracker(tr))

	assert.Equal(t, "infer-123", s.ServiceName())
	assert.Equal(t, Deploying, s.State())
	assert.Equal(t, []string{"infer-123"}, tr.Services())
	assert.Equal(t, map[string]any{"input": map[string]any{"model_id": "m-1"}}, p.LastBody(testutil.RouteDeployInference))
}

func TestDeployKeepsNestedInput(t *testing.T) {
	p := testutil.NewPlatform(t)
	s := New(p.Client(t))

	require.NoError(t, s.Deploy(context.Background(), map[string]any{"input": map[string]any{"model_id": "m-2"}}))
	assert.Equal(t, map[string]any{"input": map[string]any{"model_id": "m-2"}}, p.LastBody(testutil.RouteDeployInference))
}

func TestDeployMissingServiceName(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.DeployResponse = map[string]any{"message": "accepted"}
	tr := tracker.New()
	s := New(p.Client(t), WithTracker(tr))

	err := s.Deploy(context.Background(), map[string]any{"model_id": "m-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrDeployment)
	assert.Equal(t, Undeployed, s.State())
	assert.Zero(t, tr.Len())
}

func TestDeployTwiceFails(t *testing.T) {
	p := testutil.NewPlatform(t)
	s := deployed(t, p)

	err := s.Deploy(context.Background(), map[string]any{"model_id": "m-1"})
	assert.ErrorIs(t, err, client.ErrAlreadyStarted)
	assert.Equal(t, 1, p.Calls(testutil.RouteDeployInference))
}

func TestDeployTransportError(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.Fail(testutil.RouteDeployInference, http.StatusInternalServerError)
	s := New(p.Client(t))

	err := s.Deploy(context.Background(), map[string]any{"model_id": "m-1"})
	assert.ErrorIs(t, err, client.ErrTransport)
	assert.Equal(t, Undeployed, s.State())
}

func TestStatusAndOutputUnknownWhenNotListed(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference([]client.InferenceStatus{{ServiceName: "another", Status: "running", API: "http://x"}})
	s := deployed(t, p)

	st, err := s.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, st)

	out, err := s.Output(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Output{Status: StatusUnknown}, out)
}

func TestOutputBeforePollingReflectsRemoteStatus(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference(status("infer-123", "deploying", ""))
	s := deployed(t, p)

	out, err := s.Output(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Output{Status: "deploying"}, out)
	assert.Equal(t, Deploying, s.State())
	assert.Empty(t, s.APIEndpoint())
}

func TestOutputRunningReturnsChatURL(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference(status("infer-123", "running", p.ChatURL()))
	s := deployed(t, p)

	out, err := s.Output(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Output{ChatURL: p.ChatURL()}, out)

	st, err := s.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, st)
}

func TestWaitUntilReadyStopsAtRunning(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference(
		status("infer-123", "pending", ""),
		status("infer-123", "pending", ""),
		status("infer-123", "running", p.ChatURL()),
	)
	s := deployed(t, p)

	require.NoError(t, s.WaitUntilReady(context.Background(), fastPoll))

	assert.Equal(t, 3, p.Calls(testutil.RouteListInference))
	assert.Equal(t, Ready, s.State())
	assert.Equal(t, p.ChatURL(), s.APIEndpoint())
}

func TestWaitUntilReadyWaitsForChatURL(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference(
		status("infer-123", "running", ""),
		status("infer-123", "running", p.ChatURL()),
	)
	s := deployed(t, p)

	require.NoError(t, s.WaitUntilReady(context.Background(), fastPoll))

	assert.Equal(t, 2, p.Calls(testutil.RouteListInference))
	assert.Equal(t, p.ChatURL(), s.APIEndpoint())
}

func TestWaitUntilReadyTimesOutWithoutChatURL(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference(status("infer-123", "running", ""))
	s := deployed(t, p)

	err := s.WaitUntilReady(context.Background(), poll.Options{MaxAttempts: 2, Interval: time.Millisecond})
	assert.ErrorIs(t, err, client.ErrTimeout)
	assert.Equal(t, TimedOut, s.State())
}

func TestWaitUntilReadyTreatsMissingAsPending(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference(
		nil,
		status("infer-123", "running", p.ChatURL()),
	)
	s := deployed(t, p)

	require.NoError(t, s.WaitUntilReady(context.Background(), fastPoll))
	assert.Equal(t, 2, p.Calls(testutil.RouteListInference))
}

func TestWaitUntilReadyTimesOut(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference(status("infer-123", "pending", ""))
	s := deployed(t, p)

	err := s.WaitUntilReady(context.Background(), poll.Options{MaxAttempts: 3, Interval: time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrTimeout)

	var te *client.TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 3, te.Attempts)
	assert.Equal(t, TimedOut, s.State())
	assert.Equal(t, 3, p.Calls(testutil.RouteListInference))
}

func TestWaitUntilReadyFailsFast(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference(status("infer-123", "failed", ""))
	s := deployed(t, p)

	err := s.WaitUntilReady(context.Background(), poll.Options{MaxAttempts: 5, Interval: time.Second})
	assert.ErrorIs(t, err, client.ErrJobFailed)
	assert.Equal(t, Failed, s.State())
	assert.Equal(t, 1, p.Calls(testutil.RouteListInference))
}

func TestWaitUntilReadyPropagatesTransportError(t *testing.T) {
	p := testutil.NewPlatform(t)
	s := deployed(t, p)
	p.Fail(testutil.RouteListInference, http.StatusBadGateway)

	err := s.WaitUntilReady(context.Background(), fastPoll)
	assert.ErrorIs(t, err, client.ErrTransport)
	assert.Equal(t, Deploying, s.State())
}

func TestWaitUntilReadyRequiresDeploy(t *testing.T) {
	p := testutil.NewPlatform(t)
	s := New(p.Client(t))

	err := s.WaitUntilReady(context.Background(), fastPoll)
	assert.ErrorIs(t, err, client.ErrNotReady)
	assert.Zero(t, p.Calls(testutil.RouteListInference))
}

func TestWaitUntilComplete(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference(status("infer-123", "running", p.ChatURL()))
	s := deployed(t, p)

	summary, err := s.WaitUntilComplete(context.Background(), fastPoll)
	require.NoError(t, err)
	assert.Equal(t, Summary{ServiceName: "infer-123", APIEndpoint: p.ChatURL(), Status: StatusRunning}, summary)
}

func TestChatRequiresReady(t *testing.T) {
	p := testutil.NewPlatform(t)
	s := deployed(t, p)

	_, err := s.Chat(context.Background(), llm.UserMessages("hi"))
	assert.ErrorIs(t, err, client.ErrNotReady)

	var nre *client.NotReadyError
	require.True(t, errors.As(err, &nre))
	assert.Equal(t, string(Deploying), nre.State)
}

func TestChatUsesFixedModel(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference(status("infer-123", "running", p.ChatURL()))

	mock := &testutil.MockLLMClient{Responses: map[string]string{"hi": "hello"}}
	var gotURL string
	s := deployed(t, p, WithChatClientFunc(func(chatURL string) llm.Client {
		gotURL = chatURL
		return mock
	}))
	require.NoError(t, s.WaitUntilReady(context.Background(), fastPoll))

	resp, err := s.Chat(context.Background(), llm.UserMessages("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, p.ChatURL(), gotURL)
	assert.Equal(t, ChatModel, mock.LastRequest.Model)
}

func TestChatOverHTTP(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference(status("infer-123", "running", p.ChatURL()))
	s := deployed(t, p)
	require.NoError(t, s.WaitUntilReady(context.Background(), fastPoll))

	resp, err := s.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "be brief"},
		{Role: llm.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)

	body := p.LastBody(testutil.RouteChat)
	assert.Equal(t, ChatModel, body["model"])
	assert.Len(t, body["messages"], 2)
}

func TestChatNon2xxIsTransportError(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference(status("infer-123", "running", p.ChatURL()))
	s := deployed(t, p)
	require.NoError(t, s.WaitUntilReady(context.Background(), fastPoll))
	p.Fail(testutil.RouteChat, http.StatusServiceUnavailable)

	_, err := s.Chat(context.Background(), llm.UserMessages("hi"))
	require.Error(t, err)

	var te *client.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
}

func TestChatRejectsURLWithoutScheme(t *testing.T) {
	p := testutil.NewPlatform(t)
	p.SetInference(status("infer-123", "running", strings.TrimPrefix(p.ChatURL(), "http://")))
	s := deployed(t, p)
	require.NoError(t, s.WaitUntilReady(context.Background(), fastPoll))

	_, err := s.Chat(context.Background(), llm.UserMessages("hi"))

	var te *client.TransportError
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, llm.ErrInvalidChatURL)
	assert.Zero(t, p.Calls(testutil.RouteChat))

	_, err = s.ChatStream(context.Background(), llm.UserMessages("hi"))
	assert.ErrorIs(t, err, llm.ErrInvalidChatURL)
}

func TestDeleteUntracksOnSuccessOnly(t *testing.T) {
	p := testutil.NewPlatform(t)
	tr := tracker.New()
	s := deployed(t, p, WithTracker(tr))

	p.Fail(testutil.RouteDeleteInference, http.StatusInternalServerError)
	require.Error(t, s.Delete(context.Background()))
	assert.Equal(t, []string{"infer-123"}, tr.Services())

	p.Fail(testutil.RouteDeleteInference, 0)
	require.NoError(t, s.Delete(context.Background()))
	assert.Empty(t, tr.Services())
}

func TestAttach(t *testing.T) {
	p := testutil.NewPlatform(t)
	tr := tracker.New()
	p.SetInference(status("existing", "running", p.ChatURL()))

	s := Attach(p.Client(t), "existing", WithTracker(tr))
	assert.Equal(t, Deploying, s.State())
	assert.Zero(t, tr.Len())

	require.NoError(t, s.WaitUntilReady(context.Background(), fastPoll))
	assert.Equal(t, p.ChatURL(), s.APIEndpoint())
}

func TestWrapInput(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want map[string]any
	}{
		{
			name: "flat config is wrapped",
			in:   map[string]any{"model_id": "m"},
			want: map[string]any{"input": map[string]any{"model_id": "m"}},
		},
		{
			name: "nested config is kept",
			in:   map[string]any{"input": map[string]any{"model_id": "m"}},
			want: map[string]any{"input": map[string]any{"model_id": "m"}},
		},
		{
			name: "zero integer input from TOML is wrapped",
			in:   map[string]any{"input": int64(0)},
			want: map[string]any{"input": map[string]any{"input": int64(0)}},
		},
		{
			name: "non-zero integer input is kept",
			in:   map[string]any{"input": int64(3)},
			want: map[string]any{"input": int64(3)},
		},
		{
			name: "empty input is wrapped",
			in:   map[string]any{"input": map[string]any{}},
			want: map[string]any{"input": map[string]any{"input": map[string]any{}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WrapInput(tt.in))
		})
	}
}
