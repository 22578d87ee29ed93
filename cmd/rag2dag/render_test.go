// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for CLI rendering

package main

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	require.NoError(t, w.Close())
	os.Stdout = old

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestPrintWorkflow_PlanLine(t *testing.T) {
	spec := &datatypes.WorkflowSpec{
		WorkflowID: "wf_render",
		Pattern:    datatypes.Pattern{Name: "Multi-Document Compare"},
		Nodes: []datatypes.DAGNode{
			{NodeID: "extract_1", Operation: datatypes.OpExtract, ModelID: "m", ParallelGroup: "extract"},
			{NodeID: "synthesize", Operation: datatypes.OpSynthesize, ModelID: "m", InputFrom: []string{"extract_1"}},
		},
		Plan: datatypes.ExecutionPlan{
			MaxParallelNodes:          2,
			TotalEstimatedTimeSeconds: 27,
			EnableStreaming:           true,
		},
	}

	out := captureOutput(t, func() { printWorkflow(spec) })

	assert.Contains(t, out, "wf_render")
	assert.Contains(t, out, "extract_1")
	assert.Contains(t, out, "~27s")
	assert.Contains(t, out, "streaming=true")
	// A mismatched fmt verb would leave a %! marker in the output.
	assert.NotContains(t, out, "%!")
}

func TestPrintReport_Summary(t *testing.T) {
	started := time.Now()
	report := &datatypes.ExecutionReport{
		WorkflowID:  "wf_render",
		PatternName: "Multi-Document Compare",
		Status:      datatypes.RunSucceeded,
		Nodes: []datatypes.NodeResult{
			{NodeID: "synthesize", Status: datatypes.NodeSucceeded, Output: "the answer"},
		},
		StartedAt:        started,
		FinishedAt:       started.Add(2 * time.Second),
		CostUnits:        2.0,
		EstimatedCostUSD: 3.0,
	}

	out := captureOutput(t, func() { printReport(report) })

	assert.Contains(t, out, "1 succeeded, 0 failed, 0 skipped")
	assert.Contains(t, out, "$3.00")
	assert.Contains(t, out, "the answer")
	assert.NotContains(t, out, "%!")
}
