// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the workflow
// service.
//
// # Description
//
// Metrics cover the HTTP surface of the compiler and executor:
//   - Request counters (by endpoint, status)
//   - Compiled pattern counter (by pattern name)
//   - Workflow run counters and duration histograms (by pattern, status)
//   - Active run gauge
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "rag2dag"

const serviceSubsystem = "service"

// ServiceMetrics holds all Prometheus metrics for the workflow service.
// Initialize once at startup via InitMetrics().
type ServiceMetrics struct {
	// RequestsTotal counts API requests by endpoint and status.
	// Labels: endpoint (compile, execute, runs), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// PatternsCompiledTotal counts compiled workflows by pattern.
	// Labels: pattern
	PatternsCompiledTotal *prometheus.CounterVec

	// RunsTotal counts completed workflow runs by pattern and outcome.
	// Labels: pattern, status (succeeded, partial, failed)
	RunsTotal *prometheus.CounterVec

	// RunDurationSeconds measures wall-clock run duration.
	// Labels: pattern
	RunDurationSeconds *prometheus.HistogramVec

	// ActiveRuns tracks workflow runs currently executing.
	ActiveRuns prometheus.Gauge

	// CostUnitsTotal accumulates billed cost units across runs.
	// Labels: pattern
	CostUnitsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of ServiceMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *ServiceMetrics

// InitMetrics creates and registers all service metrics. Call once at
// application startup; a second call panics on duplicate registration.
func InitMetrics() *ServiceMetrics {
	DefaultMetrics = &ServiceMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: serviceSubsystem,
				Name:      "requests_total",
				Help:      "Total number of API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		PatternsCompiledTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: serviceSubsystem,
				Name:      "patterns_compiled_total",
				Help:      "Total workflows compiled by pattern",
			},
			[]string{"pattern"},
		),

		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: serviceSubsystem,
				Name:      "runs_total",
				Help:      "Total completed workflow runs by pattern and outcome",
			},
			[]string{"pattern", "status"},
		),

		RunDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: serviceSubsystem,
				Name:      "run_duration_seconds",
				Help:      "Wall-clock workflow run duration in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"pattern"},
		),

		ActiveRuns: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: serviceSubsystem,
				Name:      "active_runs",
				Help:      "Number of workflow runs currently executing",
			},
		),

		CostUnitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: serviceSubsystem,
				Name:      "cost_units_total",
				Help:      "Accumulated billed cost units across runs",
			},
			[]string{"pattern"},
		),
	}

	return DefaultMetrics
}

// RecordRequest records a completed API request.
func (m *ServiceMetrics) RecordRequest(endpoint string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// RecordCompile records a successfully compiled workflow.
func (m *ServiceMetrics) RecordCompile(pattern string) {
	m.PatternsCompiledTotal.WithLabelValues(pattern).Inc()
}

// RunStarted increments the active run gauge.
func (m *ServiceMetrics) RunStarted() {
	m.ActiveRuns.Inc()
}

// RunEnded records a completed run's outcome, duration, and cost, and
// decrements the active run gauge.
func (m *ServiceMetrics) RunEnded(pattern, status string, seconds, costUnits float64) {
	m.ActiveRuns.Dec()
	m.RunsTotal.WithLabelValues(pattern, status).Inc()
	m.RunDurationSeconds.WithLabelValues(pattern).Observe(seconds)
	m.CostUnitsTotal.WithLabelValues(pattern).Add(costUnits)
}
