package mcp

import (
	"fmt"
	"path/filepath"
	"strings"
)

// resolveConfigPath resolves a job file name inside configDir.
func resolveConfigPath(configDir, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("config_file is required")
	}
	if configDir == "" {
		return "", fmt.Errorf("config_file requires the server to be started with --config-dir")
	}
	return resolvePathWithinBase(configDir, name)
}

func resolvePathWithinBase(baseDir, pathValue string) (string, error) {
	baseAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	target := pathValue
	if !filepath.IsAbs(target) {
		target = filepath.Join(baseAbs, target)
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	rel, err := filepath.Rel(baseAbs, targetAbs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path must be within config directory")
	}
	return targetAbs, nil
}
