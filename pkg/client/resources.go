package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Client wraps a Transport with typed calls for each platform capability.
// Every method returns its error; best-effort handling is left to callers.
type Client struct {
	t *Transport
}

// New creates a Client.
func New(t *Transport) *Client {
	return &Client{t: t}
}

// Transport returns the underlying transport.
func (c *Client) Transport() *Transport {
	return c.t
}

// ListModels returns public models followed by the user's own models.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	resp, err := c.t.Do(ctx, http.MethodGet, "/resource/models", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	var list modelList
	if err := resp.Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	models := make([]Model, 0, len(list.Public)+len(list.User))
	models = append(models, list.Public...)
	models = append(models, list.User...)
	return models, nil
}

// DeployInference creates an inference service from payload.
func (c *Client) DeployInference(ctx context.Context, payload map[string]any) (DeployResponse, error) {
	var out DeployResponse
	resp, err := c.t.Do(ctx, http.MethodPost, "/job/inference", payload, nil)
	if err != nil {
		return out, fmt.Errorf("failed to create inference service: %w", err)
	}
	if err := resp.Decode(&out); err != nil {
		return out, fmt.Errorf("failed to create inference service: %w", err)
	}
	return out, nil
}

// ListInferenceStatus returns the status of every inference service.
func (c *Client) ListInferenceStatus(ctx context.Context) ([]InferenceStatus, error) {
	resp, err := c.t.Do(ctx, http.MethodGet, "/job/inference", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list inference services: %w", err)
	}

	var list inferenceList
	if err := resp.Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to list inference services: %w", err)
	}
	return list.Data, nil
}

// DeleteInference deletes the named inference service.
func (c *Client) DeleteInference(ctx context.Context, serviceName string) error {
	q := url.Values{"service_name": {serviceName}}
	if _, err := c.t.Do(ctx, http.MethodDelete, "/job/inference", nil, q); err != nil {
		return fmt.Errorf("failed to delete inference service %s: %w", serviceName, err)
	}
	return nil
}

// StartFinetune submits a fine-tune job from payload.
func (c *Client) StartFinetune(ctx context.Context, payload map[string]any) (StartResponse, error) {
	var out StartResponse
	resp, err := c.t.Do(ctx, http.MethodPost, "/job/finetune", payload, nil)
	if err != nil {
		return out, fmt.Errorf("failed to start fine-tune job: %w", err)
	}
	if err := resp.Decode(&out); err != nil {
		return out, fmt.Errorf("failed to start fine-tune job: %w", err)
	}
	return out, nil
}

// ListTrainingJobs returns one page of training jobs. page is 1-based.
func (c *Client) ListTrainingJobs(ctx context.Context, page, pageSize int) ([]TrainingJob, error) {
	q := url.Values{
		"current": {strconv.Itoa(page)},
		"size":    {strconv.Itoa(pageSize)},
	}
	resp, err := c.t.Do(ctx, http.MethodGet, "/job/training", nil, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list training jobs: %w", err)
	}

	var list trainingList
	if err := resp.Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to list training jobs: %w", err)
	}
	return list.Content, nil
}

// ListAdapters returns the user's adapters.
func (c *Client) ListAdapters(ctx context.Context) ([]Adapter, error) {
	resp, err := c.t.Do(ctx, http.MethodGet, "/resource/adapters", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list adapters: %w", err)
	}

	var list adapterList
	if err := resp.Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to list adapters: %w", err)
	}
	return list.User, nil
}

// DeleteFinetune deletes a fine-tune job.
func (c *Client) DeleteFinetune(ctx context.Context, jobID string) error {
	body := map[string]string{"job_id": jobID}
	if _, err := c.t.Do(ctx, http.MethodPost, "/userJob/job_del", body, nil); err != nil {
		return fmt.Errorf("failed to delete fine-tune job %s: %w", jobID, err)
	}
	return nil
}

// Health returns the platform's job health payload.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	return c.doPayload(ctx, http.MethodGet, "/job/health")
}

// PurgeQueue purges the job queue and returns the platform's result payload.
func (c *Client) PurgeQueue(ctx context.Context) (map[string]any, error) {
	return c.doPayload(ctx, http.MethodPost, "/job/purge-queue")
}

func (c *Client) doPayload(ctx context.Context, method, path string) (map[string]any, error) {
	resp, err := c.t.Do(ctx, method, path, nil, nil)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
