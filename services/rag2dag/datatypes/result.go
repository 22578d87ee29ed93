// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "time"

// NodeStatus is the lifecycle state of a node during one execution run.
//
// Transitions: pending -> ready -> running -> succeeded | failed.
// A node moves from ready directly to skipped when any of its upstream
// dependencies terminated as failed or skipped.
type NodeStatus string

const (
	NodePending   NodeStatus = "pending"
	NodeReady     NodeStatus = "ready"
	NodeRunning   NodeStatus = "running"
	NodeSucceeded NodeStatus = "succeeded"
	NodeFailed    NodeStatus = "failed"
	NodeSkipped   NodeStatus = "skipped"
)

// Terminal reports whether the status is an end state.
func (s NodeStatus) Terminal() bool {
	return s == NodeSucceeded || s == NodeFailed || s == NodeSkipped
}

// NodeResult records the outcome of one node in one execution run.
// A fresh result set is created per run; re-running the same spec never
// reuses results.
type NodeResult struct {
	NodeID string     `json:"node_id"`
	Status NodeStatus `json:"status"`

	// Output is the generated text for succeeded nodes, empty otherwise.
	Output string `json:"output,omitempty"`

	// Error is set iff Status is failed.
	Error string `json:"error,omitempty"`

	// Attempts counts invocation attempts including retries. Zero for
	// nodes that never ran.
	Attempts int `json:"attempts,omitempty"`

	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// RunStatus is the graph-level outcome of an execution run.
type RunStatus string

const (
	// RunSucceeded means every node succeeded.
	RunSucceeded RunStatus = "succeeded"

	// RunPartial means at least one node succeeded and at least one
	// failed or was skipped. Callers decide whether partial output is
	// usable.
	RunPartial RunStatus = "partial"

	// RunFailed means no node produced useful output.
	RunFailed RunStatus = "failed"
)

// ExecutionReport is the complete record of one execution run. The
// executor always returns a report, even on partial failure, so callers
// never lose successfully computed node outputs.
type ExecutionReport struct {
	WorkflowID  string       `json:"workflow_id"`
	PatternName string       `json:"pattern_name"`
	Status      RunStatus    `json:"status"`
	Nodes       []NodeResult `json:"nodes"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// CostUnits accumulates the profile cost estimate of every
	// successful invocation in this run.
	CostUnits float64 `json:"cost_units"`

	// EstimatedCostUSD is CostUnits times the profile's cost-per-unit
	// baseline (default 1.50 USD).
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// Succeeded returns the number of nodes that reached NodeSucceeded.
func (r *ExecutionReport) Succeeded() int {
	return r.countStatus(NodeSucceeded)
}

// Failed returns the number of nodes that reached NodeFailed.
func (r *ExecutionReport) Failed() int {
	return r.countStatus(NodeFailed)
}

// Skipped returns the number of nodes that reached NodeSkipped.
func (r *ExecutionReport) Skipped() int {
	return r.countStatus(NodeSkipped)
}

func (r *ExecutionReport) countStatus(status NodeStatus) int {
	count := 0
	for _, n := range r.Nodes {
		if n.Status == status {
			count++
		}
	}
	return count
}
