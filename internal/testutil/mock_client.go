package testutil

import (
	"context"
	"fmt"

	"github.com/giantswarm/sxwl-client/internal/llm"
)

// MockLLMClient is a configurable mock for llm.Client used across test packages.
type MockLLMClient struct {
	// Responses maps the last user message to canned responses.
	Responses map[string]string

	// DefaultResponse is returned when no matching key is found in Responses.
	DefaultResponse string

	// Err, when set, is returned by every call.
	Err error

	// Calls tracks the number of ChatCompletion invocations.
	Calls int

	// LastRequest stores the most recent ChatRequest for inspection.
	LastRequest llm.ChatRequest
}

func (m *MockLLMClient) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	m.Calls++
	m.LastRequest = req

	if m.Err != nil {
		return nil, m.Err
	}

	var last string
	if n := len(req.Messages); n > 0 {
		last = req.Messages[n-1].Content
	}
	if resp, ok := m.Responses[last]; ok {
		return &llm.ChatResponse{Model: req.Model, Content: resp}, nil
	}

	if m.DefaultResponse != "" {
		return &llm.ChatResponse{Model: req.Model, Content: m.DefaultResponse}, nil
	}

	return &llm.ChatResponse{Model: req.Model, Content: "mock response"}, nil
}

func (m *MockLLMClient) ChatCompletionStream(_ context.Context, _ llm.ChatRequest) (*llm.StreamReader, error) {
	return nil, fmt.Errorf("streaming not supported in mock")
}
