// Package testutil provides shared test helpers.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/giantswarm/sxwl-client/pkg/client"
	"github.com/giantswarm/sxwl-client/pkg/config"
)

// Token is the bearer token accepted by Platform.
const Token = "test-token"

// ChatPath is the chat completions path served by Platform. Inference
// statuses reported as "running" usually point here.
const ChatPath = "/serving/demo/v1/chat/completions"

// Route keys used by Calls, Fail and LastBody.
const (
	RouteListModels      = "GET /api/resource/models"
	RouteDeployInference = "POST /api/job/inference"
	RouteListInference   = "GET /api/job/inference"
	RouteDeleteInference = "DELETE /api/job/inference"
	RouteStartFinetune   = "POST /api/job/finetune"
	RouteListTraining    = "GET /api/job/training"
	RouteDeleteFinetune  = "POST /api/userJob/job_del"
	RouteListAdapters    = "GET /api/resource/adapters"
	RouteHealth          = "GET /api/job/health"
	RoutePurgeQueue      = "POST /api/job/purge-queue"
	RouteChat            = "POST " + ChatPath
)

// Request is a request recorded by Platform.
type Request struct {
	Header http.Header
	Query  map[string][]string
	Body   map[string]any
}

// Platform is a scripted in-memory SXWL API served over httptest.
//
// InferenceResponses and TrainingResponses are consumed one per poll; the
// last entry repeats once the sequence is exhausted.
type Platform struct {
	Server *httptest.Server

	mu                 sync.Mutex
	Models             map[string]any
	DeployResponse     map[string]any
	StartResponse      map[string]any
	InferenceResponses [][]client.InferenceStatus
	TrainingResponses  [][]client.TrainingJob
	AdaptersJSON       string
	HealthResponse     map[string]any
	PurgeResponse      map[string]any
	ChatResponse       map[string]any

	failures map[string]int
	calls    map[string]int
	requests map[string][]Request
}

// NewPlatform starts a Platform with benign defaults. It is closed with t.
func NewPlatform(t *testing.T) *Platform {
	t.Helper()

	p := &Platform{
		Models:         map[string]any{"public_list": []any{}, "user_list": []any{}},
		DeployResponse: map[string]any{"service_name": "infer-123"},
		StartResponse:  map[string]any{"job_id": "ft-123"},
		AdaptersJSON:   `{"user_list":[]}`,
		HealthResponse: map[string]any{"status": "ok"},
		PurgeResponse:  map[string]any{"removed": float64(0)},
		ChatResponse: map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "/mnt/models",
			"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": "hello there"}, "finish_reason": "stop"}},
			"usage":   map[string]any{"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5},
		},
		failures: map[string]int{},
		calls:    map[string]int{},
		requests: map[string][]Request{},
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(p.requireToken)
		r.Get("/resource/models", p.serveJSON(RouteListModels, func() any { return p.Models }))
		r.Post("/job/inference", p.serveJSON(RouteDeployInference, func() any { return p.DeployResponse }))
		r.Get("/job/inference", p.serveJSON(RouteListInference, p.nextInference))
		r.Delete("/job/inference", p.serveJSON(RouteDeleteInference, func() any { return map[string]any{} }))
		r.Post("/job/finetune", p.serveJSON(RouteStartFinetune, func() any { return p.StartResponse }))
		r.Get("/job/training", p.serveJSON(RouteListTraining, p.nextTraining))
		r.Post("/userJob/job_del", p.serveJSON(RouteDeleteFinetune, func() any { return map[string]any{} }))
		r.Get("/resource/adapters", p.serveJSON(RouteListAdapters, func() any { return json.RawMessage(p.AdaptersJSON) }))
		r.Get("/job/health", p.serveJSON(RouteHealth, func() any { return p.HealthResponse }))
		r.Post("/job/purge-queue", p.serveJSON(RoutePurgeQueue, func() any { return p.PurgeResponse }))
	})
	r.Post(ChatPath, p.serveJSON(RouteChat, func() any { return p.ChatResponse }))

	p.Server = httptest.NewServer(r)
	t.Cleanup(p.Server.Close)
	return p
}

// URL returns the platform base URL.
func (p *Platform) URL() string {
	return p.Server.URL
}

// ChatURL returns the absolute chat completions URL.
func (p *Platform) ChatURL() string {
	return p.Server.URL + ChatPath
}

// Credentials returns credentials accepted by the platform.
func (p *Platform) Credentials() config.Credentials {
	return config.Credentials{APIKey: Token, BaseURL: p.Server.URL}
}

// Client returns a resource client wired to the platform.
func (p *Platform) Client(t *testing.T) *client.Client {
	t.Helper()
	cfg, err := config.New(p.Credentials())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return client.New(client.NewTransport(cfg))
}

// Fail makes route answer with status until cleared with status 0.
func (p *Platform) Fail(route string, status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if status == 0 {
		delete(p.failures, route)
		return
	}
	p.failures[route] = status
}

// Calls returns how many times route was requested.
func (p *Platform) Calls(route string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[route]
}

// Requests returns the recorded requests for route.
func (p *Platform) Requests(route string) []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Request(nil), p.requests[route]...)
}

// LastBody returns the JSON body of the most recent request to route.
func (p *Platform) LastBody(route string) map[string]any {
	reqs := p.Requests(route)
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1].Body
}

// SetInference replaces the scripted inference listings.
func (p *Platform) SetInference(responses ...[]client.InferenceStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.InferenceResponses = responses
}

// SetTraining replaces the scripted training job listings.
func (p *Platform) SetTraining(responses ...[]client.TrainingJob) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TrainingResponses = responses
}

func (p *Platform) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token {
			http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (p *Platform) serveJSON(route string, body func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := Request{Header: r.Header.Clone(), Query: r.URL.Query()}
		if data, err := io.ReadAll(r.Body); err == nil && len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}

		p.mu.Lock()
		p.calls[route]++
		p.requests[route] = append(p.requests[route], rec)
		status, failing := p.failures[route]
		p.mu.Unlock()

		if failing {
			http.Error(w, `{"message":"scripted failure"}`, status)
			return
		}

		p.mu.Lock()
		payload := body()
		p.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// nextInference and nextTraining are called with p.mu held.
func (p *Platform) nextInference() any {
	var data []client.InferenceStatus
	if n := len(p.InferenceResponses); n > 0 {
		data = p.InferenceResponses[0]
		if n > 1 {
			p.InferenceResponses = p.InferenceResponses[1:]
		}
	}
	return map[string]any{"data": data}
}

func (p *Platform) nextTraining() any {
	var content []client.TrainingJob
	if n := len(p.TrainingResponses); n > 0 {
		content = p.TrainingResponses[0]
		if n > 1 {
			p.TrainingResponses = p.TrainingResponses[1:]
		}
	}
	return map[string]any{"content": content}
}
