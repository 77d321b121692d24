// Package inference tracks a deployed inference service from creation until
// it serves chat requests.
//
// A Service moves Undeployed -> Deploying -> {Ready, Failed, TimedOut}.
// Deploy alone is fire-and-forget; Deploy followed by WaitUntilComplete is
// the blocking variant of the same state machine.
package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/giantswarm/sxwl-client/internal/llm"
	"github.com/giantswarm/sxwl-client/pkg/client"
	"github.com/giantswarm/sxwl-client/pkg/poll"
	"github.com/giantswarm/sxwl-client/pkg/tracker"
)

// State is the client-side lifecycle state of a Service.
type State string

const (
	Undeployed State = "undeployed"
	Deploying  State = "deploying"
	Ready      State = "ready"
	Failed     State = "failed"
	TimedOut   State = "timed_out"
)

const (
	// StatusRunning is the remote status of a service accepting requests.
	StatusRunning = "running"
	// StatusUnknown is reported while the platform has not indexed the service.
	StatusUnknown = "unknown"
	// ChatModel is the model name the serving runtime registers.
	ChatModel = "/mnt/models"

	resourceName = "inference service"
)

// ChatClientFunc builds a chat client for a service's chat URL.
type ChatClientFunc func(chatURL string) llm.Client

// Output is the result of Output: a chat URL once running, else a status.
type Output struct {
	ChatURL string `json:"chat_url,omitempty"`
	Status  string `json:"status,omitempty"`
}

// Summary is returned by WaitUntilComplete.
type Summary struct {
	ServiceName string `json:"service_name"`
	APIEndpoint string `json:"api_endpoint"`
	Status      string `json:"status"`
}

// Service is the controller for one inference service. It is not safe for
// concurrent use.
type Service struct {
	client   *client.Client
	tracker  *tracker.Tracker
	logger   *slog.Logger
	chatFunc ChatClientFunc

	serviceName string
	apiEndpoint string
	state       State
}

// Option customizes a Service.
type Option func(*Service)

// WithTracker records deployed services in t.
func WithTracker(t *tracker.Tracker) Option {
	return func(s *Service) {
		s.tracker = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithChatClientFunc overrides how chat clients are built.
func WithChatClientFunc(fn ChatClientFunc) Option {
	return func(s *Service) {
		if fn != nil {
			s.chatFunc = fn
		}
	}
}

// New creates an undeployed Service.
func New(c *client.Client, opts ...Option) *Service {
	s := &Service{
		client: c,
		logger: slog.Default(),
		state:  Undeployed,
		chatFunc: func(chatURL string) llm.Client {
			return llm.NewOpenAIClient(llm.WithChatURL(chatURL), llm.WithModel(ChatModel))
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach creates a Service for an existing remote service, in state
// Deploying. It is not added to the tracker.
func Attach(c *client.Client, serviceName string, opts ...Option) *Service {
	s := New(c, opts...)
	s.serviceName = serviceName
	s.state = Deploying
	return s
}

func (s *Service) ServiceName() string { return s.serviceName }
func (s *Service) APIEndpoint() string { return s.apiEndpoint }
func (s *Service) State() State        { return s.state }

// Deploy creates the remote service. modelConfig is wrapped under "input"
// unless it already carries a non-empty "input" value.
func (s *Service) Deploy(ctx context.Context, modelConfig map[string]any) error {
	if s.serviceName != "" {
		return fmt.Errorf("deploy inference service %s: %w", s.serviceName, client.ErrAlreadyStarted)
	}

	resp, err := s.client.DeployInference(ctx, WrapInput(modelConfig))
	if err != nil {
		return err
	}
	if resp.ServiceName == "" {
		return &client.DeploymentError{Operation: "deploy inference service", Field: "service_name"}
	}

	s.serviceName = resp.ServiceName
	s.state = Deploying
	s.tracker.TrackService(s.serviceName)

	s.logger.Info("inference service created", "service_name", s.serviceName)
	return nil
}

// Status returns the remote status, or StatusUnknown when the platform does
// not list the service.
func (s *Service) Status(ctx context.Context) (string, error) {
	item, found, err := s.lookup(ctx)
	if err != nil {
		return "", err
	}
	if !found {
		return StatusUnknown, nil
	}
	return item.Status, nil
}

// Output returns the chat URL when the service is running, otherwise its
// current remote status.
func (s *Service) Output(ctx context.Context) (Output, error) {
	item, found, err := s.lookup(ctx)
	if err != nil {
		return Output{}, err
	}
	if !found {
		return Output{Status: StatusUnknown}, nil
	}
	if item.Status == StatusRunning {
		return Output{ChatURL: item.API}, nil
	}
	return Output{Status: item.Status}, nil
}

// WaitUntilReady polls until the service is running with a chat URL. A
// service missing from the listing, or running without an "api" value, is
// still pending. Unlike a plain status poll it stops as soon as the platform
// reports "failed" or "error", returning a *client.JobFailedError and moving
// the service to Failed. It returns a *client.TimeoutError once opts are
// exhausted.
func (s *Service) WaitUntilReady(ctx context.Context, opts poll.Options) error {
	if s.serviceName == "" {
		return &client.NotReadyError{Operation: "wait for inference service", State: string(s.state)}
	}
	if s.state == Ready {
		return nil
	}
	opts = opts.WithDefaults()

	err := poll.Until(ctx, opts, func(ctx context.Context, attempt int) (bool, error) {
		item, found, err := s.lookup(ctx)
		if err != nil {
			return false, err
		}

		status := StatusUnknown
		if found {
			status = item.Status
			switch status {
			case StatusRunning:
				if item.API == "" {
					s.logger.Info("inference service running without chat URL",
						"service_name", s.serviceName,
						"attempt", attempt,
					)
					return false, nil
				}
				s.apiEndpoint = item.API
				s.state = Ready
				s.logger.Info("inference service ready",
					"service_name", s.serviceName,
					"api", item.API,
				)
				return true, nil
			case "failed", "error":
				return false, &client.JobFailedError{Resource: resourceName, ID: s.serviceName, Status: status}
			}
		}

		s.logger.Info("inference service starting",
			"service_name", s.serviceName,
			"status", status,
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
		)
		return false, nil
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, poll.ErrExhausted):
		s.state = TimedOut
		return &client.TimeoutError{Resource: resourceName, ID: s.serviceName, Attempts: opts.MaxAttempts}
	case errors.Is(err, client.ErrJobFailed):
		s.state = Failed
		return err
	default:
		return err
	}
}

// WaitUntilComplete waits for readiness and summarizes the running service.
func (s *Service) WaitUntilComplete(ctx context.Context, opts poll.Options) (Summary, error) {
	if err := s.WaitUntilReady(ctx, opts); err != nil {
		return Summary{}, err
	}
	return Summary{
		ServiceName: s.serviceName,
		APIEndpoint: s.apiEndpoint,
		Status:      StatusRunning,
	}, nil
}

// Chat sends messages to the running service. It requires state Ready.
// Non-2xx replies from the service are returned as *client.TransportError.
func (s *Service) Chat(ctx context.Context, messages []llm.Message) (*llm.ChatResponse, error) {
	if s.state != Ready || s.apiEndpoint == "" {
		return nil, &client.NotReadyError{Operation: "chat", State: string(s.state)}
	}

	resp, err := s.chatFunc(s.apiEndpoint).ChatCompletion(ctx, llm.ChatRequest{
		Model:    ChatModel,
		Messages: messages,
	})
	if err != nil {
		return nil, s.chatError(err)
	}
	return resp, nil
}

// ChatStream is the streaming variant of Chat.
func (s *Service) ChatStream(ctx context.Context, messages []llm.Message) (*llm.StreamReader, error) {
	if s.state != Ready || s.apiEndpoint == "" {
		return nil, &client.NotReadyError{Operation: "chat", State: string(s.state)}
	}

	stream, err := s.chatFunc(s.apiEndpoint).ChatCompletionStream(ctx, llm.ChatRequest{
		Model:    ChatModel,
		Messages: messages,
	})
	if err != nil {
		return nil, s.chatError(err)
	}
	return stream, nil
}

// Delete removes the remote service and stops tracking it on success.
func (s *Service) Delete(ctx context.Context) error {
	if s.serviceName == "" {
		return &client.NotReadyError{Operation: "delete inference service", State: string(s.state)}
	}
	if err := s.client.DeleteInference(ctx, s.serviceName); err != nil {
		return err
	}
	s.tracker.UntrackService(s.serviceName)
	s.logger.Info("inference service deleted", "service_name", s.serviceName)
	return nil
}

func (s *Service) lookup(ctx context.Context) (client.InferenceStatus, bool, error) {
	if s.serviceName == "" {
		return client.InferenceStatus{}, false, nil
	}
	items, err := s.client.ListInferenceStatus(ctx)
	if err != nil {
		return client.InferenceStatus{}, false, err
	}
	for _, item := range items {
		if item.ServiceName == s.serviceName {
			return item, true, nil
		}
	}
	return client.InferenceStatus{}, false, nil
}

func (s *Service) chatError(err error) error {
	if code, msg, ok := llm.HTTPStatus(err); ok {
		return &client.TransportError{Method: "POST", URL: s.apiEndpoint, StatusCode: code, Body: msg, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &client.TransportError{Method: "POST", URL: s.apiEndpoint, Err: err}
}

// WrapInput nests cfg under "input" unless cfg["input"] is already set to a
// non-empty value.
func WrapInput(cfg map[string]any) map[string]any {
	if v, ok := cfg["input"]; ok && !isEmpty(v) {
		return cfg
	}
	return map[string]any{"input": cfg}
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(x) == 0
	case []any:
		return len(x) == 0
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0
	case int:
		return x == 0
	case int64:
		return x == 0
	case uint64:
		return x == 0
	default:
		return false
	}
}
