package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
)

type toolMetrics struct {
	calls *prometheus.CounterVec
}

func newToolMetrics(reg prometheus.Registerer) *toolMetrics {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sxwl_mcp_tool_calls_total",
		Help: "MCP tool calls by tool and result.",
	}, []string{"tool", "result"})

	if err := reg.Register(calls); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				calls = existing
			}
		}
	}
	return &toolMetrics{calls: calls}
}

func (m *toolMetrics) instrument(tool string, h mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := h(ctx, request)
		result := "ok"
		if err != nil || (res != nil && res.IsError) {
			result = "error"
		}
		m.calls.WithLabelValues(tool, result).Inc()
		return res, err
	}
}
