// Package endpoint is the entry point of the SDK. An Endpoint composes the
// configuration, transport and controllers into single calls.
//
// Credentials are resolved on every call, so an Endpoint created before the
// credentials are configured picks them up later.
package endpoint

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/giantswarm/sxwl-client/pkg/client"
	"github.com/giantswarm/sxwl-client/pkg/config"
	"github.com/giantswarm/sxwl-client/pkg/finetune"
	"github.com/giantswarm/sxwl-client/pkg/inference"
	"github.com/giantswarm/sxwl-client/pkg/poll"
	"github.com/giantswarm/sxwl-client/pkg/tracker"
)

const (
	// DefaultID names the endpoint used for inference jobs.
	DefaultID = "INFERENCE"

	DefaultRunTimeout     = 24 * time.Hour
	DefaultRequestTimeout = 3 * time.Second
)

// CredentialsFunc supplies the credentials for one call.
type CredentialsFunc func() (config.Credentials, error)

// Endpoint submits inference and fine-tune work to the platform. It is safe
// for concurrent use; the controllers it returns are not.
type Endpoint struct {
	id          string
	credentials CredentialsFunc
	httpClient  *http.Client
	logger      *slog.Logger
	tracker     *tracker.Tracker
	metrics     *client.Metrics
	poll        poll.Options
	configOpts  []config.Option
	chatFunc    inference.ChatClientFunc
}

// Option customizes an Endpoint.
type Option func(*Endpoint)

// WithCredentialsFunc replaces the default environment lookup.
func WithCredentialsFunc(fn CredentialsFunc) Option {
	return func(e *Endpoint) {
		if fn != nil {
			e.credentials = fn
		}
	}
}

// WithCredentials uses fixed credentials.
func WithCredentials(creds config.Credentials) Option {
	return WithCredentialsFunc(func() (config.Credentials, error) {
		return creds, nil
	})
}

func WithHTTPClient(c *http.Client) Option {
	return func(e *Endpoint) {
		e.httpClient = c
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Endpoint) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracker shares t instead of a tracker private to the Endpoint.
func WithTracker(t *tracker.Tracker) Option {
	return func(e *Endpoint) {
		if t != nil {
			e.tracker = t
		}
	}
}

// WithMetrics records every platform request in m.
func WithMetrics(m *client.Metrics) Option {
	return func(e *Endpoint) {
		e.metrics = m
	}
}

// WithPollOptions sets the polling budget of the blocking calls.
func WithPollOptions(o poll.Options) Option {
	return func(e *Endpoint) {
		e.poll = o.WithDefaults()
	}
}

// WithConfigOptions is applied to every Config the Endpoint builds.
func WithConfigOptions(opts ...config.Option) Option {
	return func(e *Endpoint) {
		e.configOpts = append(e.configOpts, opts...)
	}
}

// WithChatClientFunc overrides how inference services build chat clients.
func WithChatClientFunc(fn inference.ChatClientFunc) Option {
	return func(e *Endpoint) {
		e.chatFunc = fn
	}
}

// New creates an Endpoint. Without WithCredentialsFunc, credentials come
// from the environment.
func New(id string, opts ...Option) *Endpoint {
	if id == "" {
		id = DefaultID
	}
	e := &Endpoint{
		id: id,
		credentials: func() (config.Credentials, error) {
			return config.FromEnv(), nil
		},
		logger:  slog.Default(),
		tracker: tracker.New(),
		poll:    poll.Defaults(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Endpoint) ID() string                { return e.id }
func (e *Endpoint) Tracker() *tracker.Tracker { return e.tracker }
func (e *Endpoint) PollOptions() poll.Options { return e.poll }

// Client builds a resource client from the current credentials.
func (e *Endpoint) Client() (*client.Client, error) {
	creds, err := e.credentials()
	if err != nil {
		return nil, err
	}
	cfg, err := config.New(creds, e.configOpts...)
	if err != nil {
		return nil, err
	}

	opts := []client.TransportOption{
		client.WithLogger(e.logger),
		client.WithMetrics(e.metrics),
	}
	if e.httpClient != nil {
		opts = append(opts, client.WithHTTPClient(e.httpClient))
	}
	return client.New(client.NewTransport(cfg, opts...)), nil
}

// Run deploys an inference service and returns without waiting for it.
func (e *Endpoint) Run(ctx context.Context, input map[string]any) (*inference.Service, error) {
	c, err := e.Client()
	if err != nil {
		return nil, err
	}
	svc := inference.New(c, e.inferenceOptions()...)
	if err := svc.Deploy(ctx, input); err != nil {
		return nil, err
	}
	return svc, nil
}

// RunSync deploys an inference service and waits until it serves requests
// or timeout elapses. A non-positive timeout means DefaultRunTimeout.
func (e *Endpoint) RunSync(ctx context.Context, input map[string]any, timeout time.Duration) (inference.Summary, error) {
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	svc, err := e.Run(ctx, input)
	if err != nil {
		return inference.Summary{}, err
	}
	return svc.WaitUntilComplete(ctx, e.poll)
}

// Service attaches to an existing inference service.
func (e *Endpoint) Service(serviceName string) (*inference.Service, error) {
	c, err := e.Client()
	if err != nil {
		return nil, err
	}
	return inference.Attach(c, serviceName, e.inferenceOptions()...), nil
}

// Finetune submits a fine-tune job and returns without waiting for it.
func (e *Endpoint) Finetune(ctx context.Context, cfg map[string]any) (*finetune.Job, error) {
	c, err := e.Client()
	if err != nil {
		return nil, err
	}
	job := finetune.New(c, e.finetuneOptions()...)
	if err := job.Start(ctx, cfg); err != nil {
		return nil, err
	}
	return job, nil
}

// FinetuneSync submits a fine-tune job and waits for its adapter.
func (e *Endpoint) FinetuneSync(ctx context.Context, cfg map[string]any, timeout time.Duration) (finetune.Summary, error) {
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	job, err := e.Finetune(ctx, cfg)
	if err != nil {
		return finetune.Summary{}, err
	}
	return job.WaitUntilComplete(ctx, e.poll)
}

// Job attaches to an existing fine-tune job.
func (e *Endpoint) Job(jobID string) (*finetune.Job, error) {
	c, err := e.Client()
	if err != nil {
		return nil, err
	}
	return finetune.Attach(c, jobID, e.finetuneOptions()...), nil
}

// ListModels returns the public and user models. Failures are logged and
// yield an empty list.
func (e *Endpoint) ListModels(ctx context.Context) []client.Model {
	c, err := e.Client()
	if err != nil {
		e.logger.Warn("failed to list models", "error", err)
		return []client.Model{}
	}
	models, err := c.ListModels(ctx)
	if err != nil {
		e.logger.Warn("failed to list models", "error", err)
		return []client.Model{}
	}
	return models
}

// DeleteInference deletes an inference service. Failures are logged and
// reported as false; the service then stays tracked.
func (e *Endpoint) DeleteInference(ctx context.Context, serviceName string) bool {
	svc, err := e.Service(serviceName)
	if err == nil {
		err = svc.Delete(ctx)
	}
	if err != nil {
		e.logger.Warn("failed to delete inference service", "service_name", serviceName, "error", err)
		return false
	}
	return true
}

// DeleteFinetune deletes a fine-tune job with the same policy as
// DeleteInference.
func (e *Endpoint) DeleteFinetune(ctx context.Context, jobID string) bool {
	job, err := e.Job(jobID)
	if err == nil {
		err = job.Delete(ctx)
	}
	if err != nil {
		e.logger.Warn("failed to delete fine-tune job", "job_id", jobID, "error", err)
		return false
	}
	return true
}

// Cleanup deletes every tracked resource and returns how many remain
// tracked afterwards.
func (e *Endpoint) Cleanup(ctx context.Context) int {
	for _, name := range e.tracker.Services() {
		e.DeleteInference(ctx, name)
	}
	for _, id := range e.tracker.Jobs() {
		e.DeleteFinetune(ctx, id)
	}
	return e.tracker.Len()
}

// Health returns the platform health payload. Any failure is returned as
// {"status": "error", "message": ...}. A non-positive timeout means
// DefaultRequestTimeout.
func (e *Endpoint) Health(ctx context.Context, timeout time.Duration) map[string]any {
	return e.payload(ctx, timeout, "health check", (*client.Client).Health)
}

// PurgeQueue purges the job queue with the same policy as Health.
func (e *Endpoint) PurgeQueue(ctx context.Context, timeout time.Duration) map[string]any {
	return e.payload(ctx, timeout, "purge queue", (*client.Client).PurgeQueue)
}

func (e *Endpoint) payload(ctx context.Context, timeout time.Duration, op string, call func(*client.Client, context.Context) (map[string]any, error)) map[string]any {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, err := e.Client()
	if err != nil {
		return errorPayload(err)
	}
	out, err := call(c, ctx)
	if err != nil {
		e.logger.Warn(op+" failed", "endpoint", e.id, "error", err)
		return errorPayload(err)
	}
	return out
}

func errorPayload(err error) map[string]any {
	return map[string]any{"status": "error", "message": err.Error()}
}

func (e *Endpoint) inferenceOptions() []inference.Option {
	opts := []inference.Option{
		inference.WithTracker(e.tracker),
		inference.WithLogger(e.logger),
	}
	if e.chatFunc != nil {
		opts = append(opts, inference.WithChatClientFunc(e.chatFunc))
	}
	return opts
}

func (e *Endpoint) finetuneOptions() []finetune.Option {
	return []finetune.Option{
		finetune.WithTracker(e.tracker),
		finetune.WithLogger(e.logger),
	}
}
