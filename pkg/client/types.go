package client

import (
	"bytes"
	"encoding/json"
)

// Model describes a model available on the platform. It is read-only.
type Model struct {
	ID       string `json:"model_id"`
	Name     string `json:"model_name"`
	Size     int64  `json:"model_size"`
	IsPublic bool   `json:"model_is_public"`
	Template string `json:"model_template"`
	Category string `json:"model_category,omitempty"`
	Meta     string `json:"model_meta,omitempty"`
}

// DeployResponse is returned when an inference service is created.
type DeployResponse struct {
	ServiceName string `json:"service_name"`
}

// InferenceStatus is one entry of the inference service listing.
type InferenceStatus struct {
	ServiceName string `json:"service_name"`
	Status      string `json:"status"`
	API         string `json:"api"`
}

// StartResponse is returned when a fine-tune job is submitted.
type StartResponse struct {
	JobID string `json:"job_id"`
}

// TrainingJob is one entry of the paginated training job listing.
type TrainingJob struct {
	JobName string `json:"jobName"`
	Status  string `json:"status"`
}

// Adapter is a fine-tuning output artifact. Meta normally holds a
// JSON-encoded string; see ParseMeta.
type Adapter struct {
	ID   string          `json:"id"`
	Name string          `json:"name,omitempty"`
	Meta json.RawMessage `json:"meta,omitempty"`
}

// AdapterMeta is the part of an adapter's metadata used for correlation.
type AdapterMeta struct {
	FinetuneID string `json:"finetune_id"`
}

// ParseMeta decodes the adapter metadata. The platform stores it as a JSON
// string holding a JSON object; a bare object is accepted too. It reports
// false for absent or malformed metadata.
func (a Adapter) ParseMeta() (AdapterMeta, bool) {
	raw := bytes.TrimSpace(a.Meta)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return AdapterMeta{}, false
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return AdapterMeta{}, false
		}
		raw = bytes.TrimSpace([]byte(s))
	}
	if len(raw) == 0 || raw[0] != '{' {
		return AdapterMeta{}, false
	}

	var meta AdapterMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return AdapterMeta{}, false
	}
	return meta, true
}

type modelList struct {
	Public []Model `json:"public_list"`
	User   []Model `json:"user_list"`
}

type inferenceList struct {
	Data []InferenceStatus `json:"data"`
}

type trainingList struct {
	Content []TrainingJob `json:"content"`
}

type adapterList struct {
	User []Adapter `json:"user_list"`
}
