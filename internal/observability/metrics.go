// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package observability holds the per-run Prometheus metrics.
// A CLI run has no scrape endpoint, so the registry is written to a
// node-exporter textfile when a path is configured.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a private registry plus the collectors the pipeline updates.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	attempts        *prometheus.CounterVec
	queries         *prometheus.CounterVec
	attemptDuration prometheus.Histogram
}

// New registers a fresh set of collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlai_completion_attempts_total",
				Help: "Completion attempts by result (success, declined, rate_limited, transient, fatal).",
			},
			[]string{"result"},
		),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlai_queries_total",
				Help: "Pipeline runs by final status.",
			},
			[]string{"status"},
		),
		attemptDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sqlai_completion_attempt_duration_seconds",
				Help:    "Latency of individual completion attempts in seconds.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
		),
	}
	m.registry.MustRegister(m.attempts, m.queries, m.attemptDuration)
	return m
}

// ObserveAttempt records one completion attempt.
func (m *Metrics) ObserveAttempt(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(result).Inc()
	m.attemptDuration.Observe(d.Seconds())
}

// ObserveQuery records how a run ended.
func (m *Metrics) ObserveQuery(status string) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(status).Inc()
}

// WriteTextfile writes every collected metric to path in text exposition format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
