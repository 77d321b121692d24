package client

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is by the typed errors below.
var (
	ErrTransport       = errors.New("transport error")
	ErrDeployment      = errors.New("deployment error")
	ErrNotReady        = errors.New("not ready")
	ErrAlreadyStarted  = errors.New("already started")
	ErrTimeout         = errors.New("timed out")
	ErrJobFailed       = errors.New("job failed")
	ErrAdapterNotFound = errors.New("adapter not found")
)

// TransportError is returned for network failures and non-2xx responses.
// StatusCode is zero when no response was received.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, truncate(e.Body, 512))
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	default:
		return fmt.Sprintf("%s %s: request failed", e.Method, e.URL)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// DeploymentError reports a create response missing its identifier field.
type DeploymentError struct {
	Operation string
	Field     string
}

func (e *DeploymentError) Error() string {
	return fmt.Sprintf("%s: response is missing %q", e.Operation, e.Field)
}

func (e *DeploymentError) Is(target error) bool { return target == ErrDeployment }

// NotReadyError reports an operation attempted before its required state.
type NotReadyError struct {
	Operation string
	State     string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("cannot %s in state %q", e.Operation, e.State)
}

func (e *NotReadyError) Is(target error) bool { return target == ErrNotReady }

// TimeoutError reports an exhausted polling budget.
type TimeoutError struct {
	Resource string
	ID       string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s did not finish after %d attempts", e.Resource, e.ID, e.Attempts)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// JobFailedError reports a remote terminal failure status. It is never retried.
type JobFailedError struct {
	Resource string
	ID       string
	Status   string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("%s %s failed with status %q", e.Resource, e.ID, e.Status)
}

func (e *JobFailedError) Is(target error) bool { return target == ErrJobFailed }

// AdapterNotFoundError reports that no adapter references a finished job.
type AdapterNotFoundError struct {
	JobID string
}

func (e *AdapterNotFoundError) Error() string {
	return fmt.Sprintf("no adapter found for fine-tune job %s", e.JobID)
}

func (e *AdapterNotFoundError) Is(target error) bool { return target == ErrAdapterNotFound }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
