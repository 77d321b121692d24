package client

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records platform request counts and latencies. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the request collectors and registers them on reg.
// Collectors already registered by another Metrics are reused, so several
// endpoints may share one registry. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sxwl",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Platform API requests by method, path and status code.",
	}, []string{"method", "path", "code"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sxwl",
		Subsystem: "client",
		Name:      "request_duration_seconds",
		Help:      "Platform API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	if reg != nil {
		requests = register(reg, requests)
		duration = register(reg, duration)
	}

	return &Metrics{requests: requests, duration: duration}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) observe(method, path string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if code != 0 {
		label = strconv.Itoa(code)
	}
	m.requests.WithLabelValues(method, path, label).Inc()
	m.duration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
