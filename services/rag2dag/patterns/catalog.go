// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package patterns holds the static catalog of RAG execution patterns
// and the classifier that picks one for a query and file set.
//
// The catalog is a closed, declaration-ordered registry. Declaration
// order is load-bearing: it is the final classifier tie-break, so
// entries must not be reordered casually.
package patterns

import "github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"

// catalog is the full set of known patterns in declaration order.
var catalog = []datatypes.Pattern{
	{
		Type:             datatypes.PatternSingleDocumentQA,
		Name:             "Single Document Q&A",
		Description:      "Answer a question against one document",
		IntentKeywords:   []string{"what", "who", "when", "where", "why", "how", "explain", "question"},
		FileTypeHints:    []string{"pdf", "txt", "md", "docx"},
		ComplexityScore:  2,
		CostFactor:       1.0,
		StreamingCapable: false,
	},
	{
		Type:             datatypes.PatternMultiDocumentCompare,
		Name:             "Multi-Document Compare",
		Description:      "Extract each document in parallel, compare, then synthesize",
		IntentKeywords:   []string{"compare", "difference", "differences", "versus", "vs", "contrast", "diff"},
		FileTypeHints:    []string{"pdf", "docx", "txt", "md"},
		ComplexityScore:  7,
		CostFactor:       2.5,
		StreamingCapable: false,
	},
	{
		Type:             datatypes.PatternSummarizeThenExtract,
		Name:             "Summarize then Extract",
		Description:      "Summarize documents, then extract structured findings",
		IntentKeywords:   []string{"summarize", "summary", "key points", "action items", "findings", "extract"},
		FileTypeHints:    []string{"pdf", "docx", "txt", "md", "csv"},
		ComplexityScore:  4,
		CostFactor:       1.8,
		StreamingCapable: true,
	},
	{
		Type:             datatypes.PatternIterativeRefine,
		Name:             "Iterative Refine",
		Description:      "Draft an answer and refine it over successive passes",
		IntentKeywords:   []string{"refine", "improve", "iterate", "polish", "rewrite", "draft"},
		FileTypeHints:    []string{"txt", "md", "docx"},
		ComplexityScore:  6,
		CostFactor:       2.2,
		StreamingCapable: true,
	},
	{
		Type:             datatypes.PatternBatchSummarize,
		Name:             "Batch Summarize",
		Description:      "Summarize every document independently, then roll up",
		IntentKeywords:   []string{"all documents", "each file", "batch", "every document", "overview"},
		FileTypeHints:    []string{"pdf", "docx", "txt", "md", "csv", "xlsx"},
		ComplexityScore:  5,
		CostFactor:       2.0,
		StreamingCapable: true,
	},
	{
		Type:             datatypes.PatternClassifyRoute,
		Name:             "Classify and Route",
		Description:      "Classify each document and synthesize a triage report",
		IntentKeywords:   []string{"classify", "categorize", "category", "route", "triage", "label"},
		FileTypeHints:    []string{"pdf", "txt", "md", "csv", "eml"},
		ComplexityScore:  3,
		CostFactor:       1.5,
		StreamingCapable: false,
	},
}

// DefaultPatternType is returned by the classifier when nothing matches.
const DefaultPatternType = datatypes.PatternSingleDocumentQA

// Catalog returns a copy of the catalog in declaration order.
func Catalog() []datatypes.Pattern {
	out := make([]datatypes.Pattern, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for a pattern type.
func Lookup(t datatypes.PatternType) (datatypes.Pattern, bool) {
	for _, p := range catalog {
		if p.Type == t {
			return p, true
		}
	}
	return datatypes.Pattern{}, false
}
