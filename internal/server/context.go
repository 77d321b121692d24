package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/giantswarm/sxwl-client/pkg/endpoint"
)

// ServerContext holds shared dependencies for MCP tool handlers.
type ServerContext struct {
	Endpoint  *endpoint.Endpoint
	ConfigDir string // directory of job files the tools may read (optional)
	Registry  *prometheus.Registry
}
