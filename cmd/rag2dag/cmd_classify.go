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
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/rag2dag/pkg/ux"
	"github.com/AleutianAI/rag2dag/services/rag2dag/patterns"
)

// classifyCmd shows which workflow pattern a query maps to, without
// compiling or executing anything. Useful for tuning queries and for
// understanding why a run chose the shape it did.
var classifyCmd = &cobra.Command{
	Use:   "classify [query]",
	Short: "Show the workflow pattern a query would select",
	Long: `Classifies a query against the pattern catalog and prints the match.

Classification is deterministic: the same query and file set always
select the same pattern. Keyword matches in the query score double
compared to file-extension hints.

Examples:
  rag2dag classify "compare these contracts" -f a.pdf -f b.pdf
  rag2dag classify "summarize the findings" -f report.pdf --json`,
	Args: cobra.MinimumNArgs(1),
	Run:  runClassifyCommand,
}

func runClassifyCommand(cmd *cobra.Command, args []string) {
	query := strings.Join(args, " ")
	pattern := patterns.Classify(query, inputFiles)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(pattern); err != nil {
			ux.Error(fmt.Sprintf("encode pattern: %v", err))
			os.Exit(1)
		}
		return
	}

	ux.Title("Pattern: " + pattern.Name)
	ux.Info(pattern.Description)
	ux.Info(fmt.Sprintf("complexity %d, cost factor %.1fx", pattern.ComplexityScore, pattern.CostFactor))
	if pattern.StreamingCapable {
		ux.Muted("streaming capable")
	}
}
