// Package finetune tracks a fine-tune job from submission until its adapter
// is known.
package finetune

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/giantswarm/sxwl-client/pkg/client"
	"github.com/giantswarm/sxwl-client/pkg/poll"
	"github.com/giantswarm/sxwl-client/pkg/tracker"
)

// State is the client-side lifecycle state of a Job.
type State string

const (
	Unstarted State = "unstarted"
	Running   State = "running"
	Succeeded State = "succeeded"
	Failed    State = "failed"
	TimedOut  State = "timed_out"
)

const (
	// StatusSucceeded is the remote status of a finished job.
	StatusSucceeded = "succeeded"
	// StatusUnknown is reported while the job is not in the listing.
	StatusUnknown = "unknown"

	// The platform pages training jobs; one large page covers a user's history.
	listPage     = 1
	listPageSize = 1000

	resourceName = "fine-tune job"
)

// Summary is returned by WaitUntilComplete.
type Summary struct {
	JobID     string `json:"job_id"`
	AdapterID string `json:"adapter_id"`
	Status    string `json:"status"`
}

// Job is the controller for one fine-tune job. It is not safe for concurrent
// use.
type Job struct {
	client  *client.Client
	tracker *tracker.Tracker
	logger  *slog.Logger

	jobID     string
	adapterID string
	state     State
}

// Option customizes a Job.
type Option func(*Job)

// WithTracker records started jobs in t.
func WithTracker(t *tracker.Tracker) Option {
	return func(j *Job) {
		j.tracker = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(j *Job) {
		if l != nil {
			j.logger = l
		}
	}
}

// New creates an unstarted Job.
func New(c *client.Client, opts ...Option) *Job {
	j := &Job{
		client: c,
		logger: slog.Default(),
		state:  Unstarted,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Attach creates a Job for an already submitted job, in state Running. It is
// not added to the tracker.
func Attach(c *client.Client, jobID string, opts ...Option) *Job {
	j := New(c, opts...)
	j.jobID = jobID
	j.state = Running
	return j
}

func (j *Job) JobID() string     { return j.jobID }
func (j *Job) AdapterID() string { return j.adapterID }
func (j *Job) State() State      { return j.state }

// Start submits the job.
func (j *Job) Start(ctx context.Context, cfg map[string]any) error {
	if j.jobID != "" {
		return fmt.Errorf("start fine-tune job %s: %w", j.jobID, client.ErrAlreadyStarted)
	}

	resp, err := j.client.StartFinetune(ctx, cfg)
	if err != nil {
		return err
	}
	if resp.JobID == "" {
		return &client.DeploymentError{Operation: "start fine-tune job", Field: "job_id"}
	}

	j.jobID = resp.JobID
	j.state = Running
	j.tracker.TrackJob(j.jobID)

	j.logger.Info("fine-tune job started", "job_id", j.jobID)
	return nil
}

// Status returns the remote job status, or StatusUnknown when the job is not
// listed.
func (j *Job) Status(ctx context.Context) (string, error) {
	item, found, err := j.lookup(ctx)
	if err != nil {
		return "", err
	}
	if !found {
		return StatusUnknown, nil
	}
	return item.Status, nil
}

// WaitUntilCompletion polls until the job succeeds. A "failed" or "error"
// status ends the wait at once with a *client.JobFailedError.
func (j *Job) WaitUntilCompletion(ctx context.Context, opts poll.Options) error {
	if j.jobID == "" {
		return &client.NotReadyError{Operation: "wait for fine-tune job", State: string(j.state)}
	}
	if j.state == Succeeded {
		return nil
	}
	opts = opts.WithDefaults()

	err := poll.Until(ctx, opts, func(ctx context.Context, attempt int) (bool, error) {
		item, found, err := j.lookup(ctx)
		if err != nil {
			return false, err
		}

		status := StatusUnknown
		if found {
			status = item.Status
			switch status {
			case StatusSucceeded:
				j.state = Succeeded
				j.logger.Info("fine-tune job succeeded", "job_id", j.jobID)
				return true, nil
			case "failed", "error":
				return false, &client.JobFailedError{Resource: resourceName, ID: j.jobID, Status: status}
			}
		}

		j.logger.Info("fine-tune job in progress",
			"job_id", j.jobID,
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
		j.state = TimedOut
		return &client.TimeoutError{Resource: resourceName, ID: j.jobID, Attempts: opts.MaxAttempts}
	case errors.Is(err, client.ErrJobFailed):
		j.state = Failed
		return err
	default:
		return err
	}
}

// ResolveAdapterID finds the adapter produced by the job. Adapters whose
// metadata is missing or unreadable are skipped; the first match wins.
func (j *Job) ResolveAdapterID(ctx context.Context) (string, error) {
	if j.state != Succeeded {
		return "", &client.NotReadyError{Operation: "resolve adapter", State: string(j.state)}
	}
	if j.adapterID != "" {
		return j.adapterID, nil
	}

	adapters, err := j.client.ListAdapters(ctx)
	if err != nil {
		return "", err
	}

	for _, a := range adapters {
		meta, ok := a.ParseMeta()
		if !ok {
			j.logger.Debug("skipping adapter with unreadable metadata", "adapter_id", a.ID)
			continue
		}
		if meta.FinetuneID == j.jobID {
			j.adapterID = a.ID
			j.logger.Info("adapter resolved", "job_id", j.jobID, "adapter_id", a.ID)
			return a.ID, nil
		}
	}
	return "", &client.AdapterNotFoundError{JobID: j.jobID}
}

// WaitUntilComplete waits for success and resolves the adapter.
func (j *Job) WaitUntilComplete(ctx context.Context, opts poll.Options) (Summary, error) {
	if err := j.WaitUntilCompletion(ctx, opts); err != nil {
		return Summary{}, err
	}
	adapterID, err := j.ResolveAdapterID(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summary{JobID: j.jobID, AdapterID: adapterID, Status: StatusSucceeded}, nil
}

// Delete removes the remote job and stops tracking it on success.
func (j *Job) Delete(ctx context.Context) error {
	if j.jobID == "" {
		return &client.NotReadyError{Operation: "delete fine-tune job", State: string(j.state)}
	}
	if err := j.client.DeleteFinetune(ctx, j.jobID); err != nil {
		return err
	}
	j.tracker.UntrackJob(j.jobID)
	j.logger.Info("fine-tune job deleted", "job_id", j.jobID)
	return nil
}

func (j *Job) lookup(ctx context.Context) (client.TrainingJob, bool, error) {
	jobs, err := j.client.ListTrainingJobs(ctx, listPage, listPageSize)
	if err != nil {
		return client.TrainingJob{}, false, err
	}
	for _, item := range jobs {
		if item.JobName == j.jobID {
			return item, true, nil
		}
	}
	return client.TrainingJob{}, false, nil
}
