// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the shared types for the RAG2DAG service:
// the pattern catalog entries, compiled workflow specs, and execution
// results that cross package boundaries.
//
// The serialized form of WorkflowSpec is a published contract consumed
// by the CLI, the HTTP service, and external dashboards. Field names in
// the wire structs must not change.
package datatypes

import (
	"encoding/json"
	"fmt"
)

// PatternType identifies a RAG execution pattern in the catalog.
type PatternType string

const (
	PatternMultiDocumentCompare PatternType = "multi_document_compare"
	PatternSingleDocumentQA     PatternType = "single_document_qa"
	PatternSummarizeThenExtract PatternType = "summarize_then_extract"
	PatternIterativeRefine      PatternType = "iterative_refine"
	PatternBatchSummarize       PatternType = "batch_summarize"
	PatternClassifyRoute        PatternType = "classify_route"
)

// OperationKind is the closed set of model-invocation operations a DAG
// node can perform. The compiler refuses any operation missing from the
// profile's model table, so an unknown kind is caught before execution.
type OperationKind string

const (
	OpExtract    OperationKind = "extract"
	OpSummarize  OperationKind = "summarize"
	OpCompare    OperationKind = "compare"
	OpSynthesize OperationKind = "synthesize"
	OpClassify   OperationKind = "classify"
	OpRefine     OperationKind = "refine"
)

// Pattern is an immutable catalog entry describing how a class of
// analysis tasks decomposes into DAG nodes.
type Pattern struct {
	Type        PatternType
	Name        string
	Description string

	// IntentKeywords are matched as case-insensitive substrings of the
	// query; each hit contributes weight 2 to the classifier score.
	IntentKeywords []string

	// FileTypeHints are file extensions (without the dot) that boost
	// matching confidence; each matching input file contributes weight 1.
	FileTypeHints []string

	// ComplexityScore is 0-10, fixed per pattern. Lower scores win
	// classifier ties (cheaper default).
	ComplexityScore int

	// CostFactor is a positive relative multiplier against a baseline
	// unit cost.
	CostFactor float64

	// StreamingCapable marks patterns whose partial outputs are useful
	// before the whole graph completes.
	StreamingCapable bool
}

// DAGNode is one model-invocation step in a compiled workflow.
type DAGNode struct {
	NodeID      string        `json:"node_id"`
	Operation   OperationKind `json:"operation"`
	ModelID     string        `json:"model_id"`
	Instruction string        `json:"instruction"`

	// InputFrom lists upstream node IDs whose outputs become this
	// node's inputs, in declaration order. Empty for root nodes.
	InputFrom []string `json:"input_from"`

	// ParallelGroup tags nodes with no dependency relationship between
	// them that are intended to run concurrently. Empty means ungrouped.
	ParallelGroup string `json:"parallel_group,omitempty"`
}

// ExecutionPlan is the derived scheduling summary for a workflow.
type ExecutionPlan struct {
	MaxParallelNodes          int     `json:"max_parallel_nodes"`
	TotalEstimatedTimeSeconds float64 `json:"total_estimated_time_seconds"`
	EnableStreaming           bool    `json:"enable_streaming"`
}

// WorkflowSpec is the compiler's output: a validated DAG of model
// invocations plus its execution plan. A spec is immutable once built
// and safe to share across concurrent executions.
type WorkflowSpec struct {
	WorkflowID string
	Pattern    Pattern

	// Nodes are in creation order. Every InputFrom entry references a
	// node declared earlier in this slice, which makes the graph
	// acyclic by construction.
	Nodes []DAGNode

	// EstimatedCostFactor is the pattern cost factor carried onto the
	// spec; callers multiply it by their deployment's cost-per-unit to
	// get a dollar estimate.
	EstimatedCostFactor float64

	Plan ExecutionPlan
}

// workflowSpecWire is the published JSON shape of a WorkflowSpec.
type workflowSpecWire struct {
	WorkflowID          string        `json:"workflow_id"`
	PatternName         string        `json:"pattern_name"`
	ComplexityScore     int           `json:"complexity_score"`
	EstimatedCostFactor float64       `json:"estimated_cost_factor"`
	DAGNodes            []DAGNode     `json:"dag_nodes"`
	ExecutionPlan       ExecutionPlan `json:"execution_plan"`
}

// MarshalJSON serializes the spec into its published wire form.
func (s WorkflowSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(workflowSpecWire{
		WorkflowID:          s.WorkflowID,
		PatternName:         s.Pattern.Name,
		ComplexityScore:     s.Pattern.ComplexityScore,
		EstimatedCostFactor: s.EstimatedCostFactor,
		DAGNodes:            s.Nodes,
		ExecutionPlan:       s.Plan,
	})
}

// UnmarshalJSON restores a spec from its wire form. The full Pattern is
// not on the wire, so only its display name, complexity, and cost
// factor survive a round trip; the DAG and plan are complete.
func (s *WorkflowSpec) UnmarshalJSON(data []byte) error {
	var wire workflowSpecWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decoding workflow spec: %w", err)
	}
	s.WorkflowID = wire.WorkflowID
	s.Pattern = Pattern{
		Name:            wire.PatternName,
		ComplexityScore: wire.ComplexityScore,
		CostFactor:      wire.EstimatedCostFactor,
	}
	s.EstimatedCostFactor = wire.EstimatedCostFactor
	s.Nodes = wire.DAGNodes
	s.Plan = wire.ExecutionPlan
	return nil
}

// Node returns the node with the given ID, or false if absent.
func (s *WorkflowSpec) Node(id string) (DAGNode, bool) {
	for _, n := range s.Nodes {
		if n.NodeID == id {
			return n, true
		}
	}
	return DAGNode{}, false
}

// Roots returns the IDs of nodes with no upstream dependencies, in
// declaration order.
func (s *WorkflowSpec) Roots() []string {
	roots := make([]string, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		if len(n.InputFrom) == 0 {
			roots = append(roots, n.NodeID)
		}
	}
	return roots
}

// Leaves returns the IDs of terminal nodes (no one depends on them), in
// declaration order.
func (s *WorkflowSpec) Leaves() []string {
	hasDependent := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		for _, dep := range n.InputFrom {
			hasDependent[dep] = true
		}
	}
	leaves := make([]string, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		if !hasDependent[n.NodeID] {
			leaves = append(leaves, n.NodeID)
		}
	}
	return leaves
}
