// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package compiler turns a classified pattern into an executable
// workflow spec: concrete DAG nodes with models, instructions, and
// dependency edges, plus the derived execution plan.
//
// Compilation is template-driven. Each pattern type owns a fixed node
// template list; the compiler expands per-file fan-out steps, wires
// edges, resolves models from the optimization profile, and computes
// the plan (concurrency bound, critical-path estimate, streaming flag).
// All failure modes here are configuration errors caught before any
// execution is attempted.
package compiler

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"
)

// Compile expands a pattern into a validated WorkflowSpec.
//
// # Description
//
// Instantiates one node per template entry (per-file templates fan out
// to one node per input file, all sharing a parallel group), wires
// input_from edges as the template specifies, resolves each node's
// model from the profile's operation table, substitutes the query and
// file path into the instruction, and derives the execution plan.
//
// # Inputs
//
//   - pattern: The catalog entry chosen by the classifier.
//   - query: The natural-language task, substituted into instructions.
//   - files: Already-resolved input paths. Never opened here.
//   - profile: Model/latency/cost tables and the parallelism default.
//
// # Outputs
//
//   - *datatypes.WorkflowSpec: Immutable compiled workflow.
//   - error: ErrUnknownPattern, ErrNoInputFiles, or ErrMissingModel
//     (wrapped with detail). No spec is produced on error.
func Compile(
	pattern datatypes.Pattern,
	query string,
	files []string,
	profile OptimizationProfile,
) (*datatypes.WorkflowSpec, error) {
	tmpl, ok := templates[pattern.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, pattern.Type)
	}
	if tmpl.requiresFiles && len(files) == 0 {
		return nil, fmt.Errorf("%w: pattern %q", ErrNoInputFiles, pattern.Type)
	}

	nodes := make([]datatypes.DAGNode, 0, len(tmpl.nodes)+len(files))
	// instances maps a template ID to the node IDs it expanded into.
	instances := make(map[string][]string, len(tmpl.nodes))

	for _, nt := range tmpl.nodes {
		model, ok := profile.Models[nt.op]
		if !ok || model == "" {
			return nil, fmt.Errorf("%w: %s (profile %q)", ErrMissingModel, nt.op, profile.Name)
		}

		var deps []string
		for _, depTmpl := range nt.dependsOn {
			deps = append(deps, instances[depTmpl]...)
		}

		if nt.perFile {
			ids := make([]string, 0, len(files))
			for i, file := range files {
				id := fmt.Sprintf("%s_%d", nt.id, i+1)
				nodes = append(nodes, datatypes.DAGNode{
					NodeID:        id,
					Operation:     nt.op,
					ModelID:       model,
					Instruction:   renderInstruction(nt.instruction, query, file),
					InputFrom:     append([]string(nil), deps...),
					ParallelGroup: nt.parallelGroup,
				})
				ids = append(ids, id)
			}
			instances[nt.id] = ids
			continue
		}

		nodes = append(nodes, datatypes.DAGNode{
			NodeID:        nt.id,
			Operation:     nt.op,
			ModelID:       model,
			Instruction:   renderInstruction(nt.instruction, query, ""),
			InputFrom:     deps,
			ParallelGroup: nt.parallelGroup,
		})
		instances[nt.id] = []string{nt.id}
	}

	spec := &datatypes.WorkflowSpec{
		WorkflowID:          "wf_" + uuid.NewString(),
		Pattern:             pattern,
		Nodes:               nodes,
		EstimatedCostFactor: pattern.CostFactor,
	}
	spec.Plan = buildPlan(spec, profile)

	// The construction above can only produce forward references, but
	// hand-edited templates are a config surface; validate anyway.
	if err := ValidateSpec(spec); err != nil {
		return nil, err
	}

	return spec, nil
}

// renderInstruction substitutes the query and file placeholders.
func renderInstruction(instruction, query, file string) string {
	return strings.NewReplacer(
		"{query}", query,
		"{file}", file,
	).Replace(instruction)
}

// buildPlan derives the execution plan for a compiled node list.
func buildPlan(spec *datatypes.WorkflowSpec, profile OptimizationProfile) datatypes.ExecutionPlan {
	widest := widestParallelGroup(spec.Nodes)

	maxParallel := profile.MaxParallelNodes
	if maxParallel <= 0 || widest < maxParallel {
		maxParallel = widest
	}

	leaves := spec.Leaves()

	return datatypes.ExecutionPlan{
		MaxParallelNodes:          maxParallel,
		TotalEstimatedTimeSeconds: criticalPathSeconds(spec, profile),
		EnableStreaming:           len(leaves) > 1 || spec.Pattern.StreamingCapable,
	}
}

// widestParallelGroup returns the size of the largest parallel group,
// at minimum 1 (a graph with no groups still runs one node at a time).
func widestParallelGroup(nodes []datatypes.DAGNode) int {
	widths := make(map[string]int)
	widest := 1
	for _, n := range nodes {
		if n.ParallelGroup == "" {
			continue
		}
		widths[n.ParallelGroup]++
		if widths[n.ParallelGroup] > widest {
			widest = widths[n.ParallelGroup]
		}
	}
	return widest
}

// criticalPathSeconds sums per-node latency estimates along the
// longest dependency chain from any root to any leaf. Independent
// nodes run concurrently, so this is the minimum feasible run time,
// not a flat sum over all nodes.
func criticalPathSeconds(spec *datatypes.WorkflowSpec, profile OptimizationProfile) float64 {
	byID := make(map[string]datatypes.DAGNode, len(spec.Nodes))
	for _, n := range spec.Nodes {
		byID[n.NodeID] = n
	}

	memo := make(map[string]time.Duration, len(spec.Nodes))
	var longest func(id string) time.Duration
	longest = func(id string) time.Duration {
		if d, ok := memo[id]; ok {
			return d
		}
		node := byID[id]
		var upstream time.Duration
		for _, dep := range node.InputFrom {
			if d := longest(dep); d > upstream {
				upstream = d
			}
		}
		total := upstream + profile.Latency(node.Operation)
		memo[id] = total
		return total
	}

	var critical time.Duration
	for _, n := range spec.Nodes {
		if d := longest(n.NodeID); d > critical {
			critical = d
		}
	}
	return critical.Seconds()
}
