// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/rag2dag/pkg/ux"
	"github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"
)

// printWorkflow renders a compiled spec as an indented node list with
// dependencies and the execution plan summary.
func printWorkflow(spec *datatypes.WorkflowSpec) {
	ux.Title(fmt.Sprintf("Workflow %s (%s)", spec.WorkflowID, spec.Pattern.Name))
	for _, node := range spec.Nodes {
		line := fmt.Sprintf("%s %s [%s, %s]",
			ux.IconBullet, node.NodeID, node.Operation, node.ModelID)
		if len(node.InputFrom) > 0 {
			line += " " + ux.Styles.Muted.Render(string(ux.IconArrow)+" "+strings.Join(node.InputFrom, ", "))
		}
		if node.ParallelGroup != "" {
			line += " " + ux.Styles.Subtitle.Render("("+node.ParallelGroup+")")
		}
		ux.Info(line)
	}
	ux.Muted(fmt.Sprintf("plan: %d parallel, ~%.0fs, streaming=%v",
		spec.Plan.MaxParallelNodes,
		spec.Plan.TotalEstimatedTimeSeconds,
		spec.Plan.EnableStreaming,
	))
}

// printNodeResult is the executor's node observer for interactive runs.
func printNodeResult(res datatypes.NodeResult) {
	switch res.Status {
	case datatypes.NodeSucceeded:
		elapsed := res.FinishedAt.Sub(res.StartedAt).Round(10 * time.Millisecond)
		ux.Success(fmt.Sprintf("%s (%s)", res.NodeID, elapsed))
	case datatypes.NodeFailed:
		ux.Error(fmt.Sprintf("%s: %s", res.NodeID, res.Error))
	case datatypes.NodeSkipped:
		fmt.Printf("%s %s\n", ux.IconSkipped.Render(), ux.Styles.Muted.Render(res.NodeID+" skipped"))
	}
}

// printReport renders the final execution report.
func printReport(report *datatypes.ExecutionReport) {
	elapsed := report.FinishedAt.Sub(report.StartedAt).Round(10 * time.Millisecond)
	summary := fmt.Sprintf("%d succeeded, %d failed, %d skipped in %s",
		report.Succeeded(), report.Failed(), report.Skipped(), elapsed)

	switch report.Status {
	case datatypes.RunSucceeded:
		ux.Success(summary)
	case datatypes.RunPartial:
		ux.Warning("partial: " + summary)
	default:
		ux.Error("failed: " + summary)
	}
	ux.Muted(fmt.Sprintf("cost: %.1f units (~$%.2f)", report.CostUnits, report.EstimatedCostUSD))

	// The last node in spec order is the workflow's answer when it ran.
	if len(report.Nodes) > 0 {
		last := report.Nodes[len(report.Nodes)-1]
		if last.Status == datatypes.NodeSucceeded && last.Output != "" {
			ux.Box("Result", last.Output)
		}
	}
}
