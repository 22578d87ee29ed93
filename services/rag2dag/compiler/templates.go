// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package compiler

import "github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"

// nodeTemplate describes one step of a pattern before expansion.
//
// Templates reference each other by template ID, not node ID. A
// dependency on a per-file template expands to a dependency on every
// instance of that template. Instruction strings may use the {query}
// and {file} placeholders; {file} is only meaningful on per-file steps.
type nodeTemplate struct {
	id            string
	op            datatypes.OperationKind
	perFile       bool
	parallelGroup string
	dependsOn     []string
	instruction   string
}

// patternTemplate is the fixed node list a pattern expands into.
type patternTemplate struct {
	// requiresFiles makes compilation fail when no input files are
	// given. Patterns without it degrade gracefully: per-file steps
	// expand to zero nodes and their dependents become roots.
	requiresFiles bool
	nodes         []nodeTemplate
}

// templates is the closed registry of node templates per pattern type.
// Template order is node creation order, so every dependsOn entry must
// reference an earlier template.
var templates = map[datatypes.PatternType]patternTemplate{
	datatypes.PatternSingleDocumentQA: {
		nodes: []nodeTemplate{
			{
				id: "extract", op: datatypes.OpExtract,
				perFile: true, parallelGroup: "extract_fanout",
				instruction: "Extract the passages from {file} that are relevant to: {query}",
			},
			{
				id: "synthesize", op: datatypes.OpSynthesize,
				dependsOn:   []string{"extract"},
				instruction: "Answer the question using the extracted material: {query}",
			},
		},
	},
	datatypes.PatternMultiDocumentCompare: {
		requiresFiles: true,
		nodes: []nodeTemplate{
			{
				id: "extract", op: datatypes.OpExtract,
				perFile: true, parallelGroup: "extract_fanout",
				instruction: "Extract the key facts, figures, and claims from {file}",
			},
			{
				id: "compare", op: datatypes.OpCompare,
				dependsOn:   []string{"extract"},
				instruction: "Compare the extracted documents with respect to: {query}. Note agreements and discrepancies.",
			},
			{
				id: "synthesize", op: datatypes.OpSynthesize,
				dependsOn:   []string{"compare"},
				instruction: "Write the final comparative answer to: {query}",
			},
		},
	},
	datatypes.PatternSummarizeThenExtract: {
		requiresFiles: true,
		nodes: []nodeTemplate{
			{
				id: "summarize", op: datatypes.OpSummarize,
				perFile: true, parallelGroup: "summarize_fanout",
				instruction: "Summarize {file}, preserving figures and named entities",
			},
			{
				id: "extract", op: datatypes.OpExtract,
				dependsOn:   []string{"summarize"},
				instruction: "From the summaries, extract the key points and action items for: {query}",
			},
		},
	},
	datatypes.PatternIterativeRefine: {
		requiresFiles: true,
		nodes: []nodeTemplate{
			{
				id: "extract", op: datatypes.OpExtract,
				perFile: true, parallelGroup: "extract_fanout",
				instruction: "Extract the material from {file} needed for: {query}",
			},
			{
				id: "draft", op: datatypes.OpSynthesize,
				dependsOn:   []string{"extract"},
				instruction: "Draft an initial answer to: {query}",
			},
			{
				id: "refine_1", op: datatypes.OpRefine,
				dependsOn:   []string{"draft"},
				instruction: "Refine the draft answer to: {query}. Fix gaps and unsupported claims.",
			},
			{
				id: "refine_2", op: datatypes.OpRefine,
				dependsOn:   []string{"refine_1"},
				instruction: "Polish the refined answer to: {query} for clarity and concision.",
			},
		},
	},
	datatypes.PatternBatchSummarize: {
		requiresFiles: true,
		nodes: []nodeTemplate{
			{
				id: "summarize", op: datatypes.OpSummarize,
				perFile: true, parallelGroup: "summarize_fanout",
				instruction: "Summarize {file} in isolation",
			},
			{
				id: "synthesize", op: datatypes.OpSynthesize,
				dependsOn:   []string{"summarize"},
				instruction: "Combine the per-document summaries into an overview answering: {query}",
			},
		},
	},
	datatypes.PatternClassifyRoute: {
		requiresFiles: true,
		nodes: []nodeTemplate{
			{
				id: "classify", op: datatypes.OpClassify,
				perFile: true, parallelGroup: "classify_fanout",
				instruction: "Classify {file} by topic and urgency for: {query}",
			},
			{
				id: "synthesize", op: datatypes.OpSynthesize,
				dependsOn:   []string{"classify"},
				instruction: "Produce a triage report from the classifications for: {query}",
			},
		},
	},
}
