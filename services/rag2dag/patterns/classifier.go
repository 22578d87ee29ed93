// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package patterns

import (
	"path/filepath"
	"strings"

	"github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"
)

// keywordWeight and hintWeight are the scoring weights for intent
// keywords and file-type hints.
const (
	keywordWeight = 2
	hintWeight    = 1
)

// Classify picks the best-matching pattern for a query and file set.
//
// # Description
//
// Scores every catalog pattern: each intent keyword found as a
// case-insensitive substring of the query contributes 2, each input
// file whose extension appears in the pattern's file-type hints
// contributes 1. The highest score wins. Ties prefer the lower
// complexity score (cheaper default), then catalog declaration order.
// When no pattern scores above zero the default pattern is returned;
// classification never fails.
//
// # Inputs
//
//   - query: The natural-language task. May be empty.
//   - files: Input file paths. May be empty. Only extensions are read;
//     the files themselves are never touched.
//
// # Outputs
//
//   - datatypes.Pattern: The chosen catalog entry.
//
// Classify is pure and deterministic: the same (query, files) always
// yields the same pattern regardless of call order or prior state.
func Classify(query string, files []string) datatypes.Pattern {
	best := -1
	bestScore := 0

	for i, p := range catalog {
		score := Score(p, query, files)
		if score <= 0 {
			continue
		}
		switch {
		case best < 0 || score > bestScore:
			best, bestScore = i, score
		case score == bestScore && p.ComplexityScore < catalog[best].ComplexityScore:
			// Equal score: the cheaper pattern is the safer default.
			// Declaration order breaks the remaining ties because we
			// only replace on strictly lower complexity.
			best = i
		}
	}

	if best < 0 {
		fallback, _ := Lookup(DefaultPatternType)
		return fallback
	}
	return catalog[best]
}

// Score computes the match score of one pattern against a query and
// file set. Exported for test fixtures and debugging output; callers
// wanting a decision should use Classify.
func Score(p datatypes.Pattern, query string, files []string) int {
	score := 0
	lowered := strings.ToLower(query)

	for _, kw := range p.IntentKeywords {
		if strings.Contains(lowered, kw) {
			score += keywordWeight
		}
	}

	for _, f := range files {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(f)), ".")
		if ext == "" {
			continue
		}
		for _, hint := range p.FileTypeHints {
			if ext == hint {
				score += hintWeight
				break
			}
		}
	}

	return score
}
