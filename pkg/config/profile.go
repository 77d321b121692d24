package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultProfile is the profile used when none is named.
const DefaultProfile = "default"

// DefaultProfilePath returns ~/.sxwl/config.toml.
func DefaultProfilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".sxwl", "config.toml"), nil
}

// LoadProfile reads the named profile from a credentials file. The format
// is chosen by extension (.toml, .yaml/.yml, .json); the file maps profile
// names to credentials:
//
//	[default]
//	api_key = "..."
//	base_url = "https://sxwl.ai"
//
// A missing file yields empty credentials and no error.
func LoadProfile(path, profile string) (Credentials, error) {
	if profile == "" {
		profile = DefaultProfile
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, nil
		}
		return Credentials{}, fmt.Errorf("failed to read credentials file %s: %w", path, err)
	}

	profiles := map[string]Credentials{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(b, &profiles)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &profiles)
	case ".json":
		err = json.Unmarshal(b, &profiles)
	default:
		return Credentials{}, &ConfigurationError{Reason: "unsupported credentials file extension: " + ext}
	}
	if err != nil {
		return Credentials{}, &ConfigurationError{Reason: fmt.Sprintf("failed to parse credentials file %s: %v", path, err)}
	}

	creds, ok := profiles[profile]
	if !ok {
		return Credentials{}, &ConfigurationError{Reason: fmt.Sprintf("profile %q not found in %s", profile, path)}
	}
	return creds, nil
}

// Resolve layers credentials: explicit values first, then the environment,
// then the profile file. An empty path selects DefaultProfilePath.
func Resolve(explicit Credentials, path, profile string) (Credentials, error) {
	creds := explicit.Merge(FromEnv())
	if creds.APIKey != "" && creds.BaseURL != "" {
		return creds, nil
	}

	if path == "" {
		p, err := DefaultProfilePath()
		if err != nil {
			return creds, nil
		}
		path = p
	}

	fromFile, err := LoadProfile(path, profile)
	if err != nil {
		// The file only fills gaps; a usable key elsewhere wins over a broken file.
		if creds.APIKey != "" {
			return creds, nil
		}
		return creds, err
	}
	return creds.Merge(fromFile), nil
}
