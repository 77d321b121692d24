package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Job file formats accepted by DecodeJob.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// FormatFromPath maps a file extension to a job file format. Unknown
// extensions are treated as JSON.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// DecodeJob parses a deploy or fine-tune request body. The top level must be
// an object.
func DecodeJob(data []byte, format string) (map[string]any, error) {
	var (
		out map[string]any
		err error
	)
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &out)
	case FormatTOML:
		err = toml.Unmarshal(data, &out)
	case FormatJSON, "":
		err = json.Unmarshal(data, &out)
	default:
		return nil, fmt.Errorf("unsupported job file format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s job file: %w", format, err)
	}
	if out == nil {
		return nil, fmt.Errorf("job file is empty")
	}
	return out, nil
}

// ReadJobFile reads and decodes the job file at path.
func ReadJobFile(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	return DecodeJob(b, FormatFromPath(path))
}
