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

// CompileRequest is the body of POST /v1/workflows/compile and
// POST /v1/workflows/execute. Files are opaque identifiers; only their
// extensions influence pattern classification.
type CompileRequest struct {
	Query   string   `json:"query"`
	Files   []string `json:"files,omitempty"`
	Profile string   `json:"profile,omitempty"`
}

// CompileResponse carries the compiled spec plus the classification
// that produced it.
type CompileResponse struct {
	Pattern  string        `json:"pattern"`
	Workflow *WorkflowSpec `json:"workflow"`
}

// RunSummary is the listing row for GET /v1/workflows/runs. Full
// reports are fetched per workflow id.
type RunSummary struct {
	WorkflowID  string  `json:"workflow_id"`
	PatternName string  `json:"pattern_name"`
	Status      string  `json:"status"`
	NodeCount   int     `json:"node_count"`
	CostUnits   float64 `json:"cost_units"`
	StartedAt   string  `json:"started_at"`
}

// SummarizeRun projects a report into its listing row.
func SummarizeRun(report *ExecutionReport) RunSummary {
	return RunSummary{
		WorkflowID:  report.WorkflowID,
		PatternName: report.PatternName,
		Status:      string(report.Status),
		NodeCount:   len(report.Nodes),
		CostUnits:   report.CostUnits,
		StartedAt:   report.StartedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
