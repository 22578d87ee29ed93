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
	"github.com/AleutianAI/rag2dag/services/rag2dag/compiler"
	"github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"
	"github.com/AleutianAI/rag2dag/services/rag2dag/patterns"
)

// compileCmd compiles a query into a workflow spec and prints it.
var compileCmd = &cobra.Command{
	Use:   "compile [query]",
	Short: "Compile a query into an executable workflow spec",
	Long: `Classifies the query, expands the matching pattern into a DAG of
model invocations for the given files, and prints the resulting spec.

The spec is what 'rag2dag run' executes; --json emits it in the wire
format accepted by the server's execute endpoint.

Examples:
  rag2dag compile "compare pricing terms" -f a.pdf -f b.pdf
  rag2dag compile "summarize these" -f x.md -f y.md -p speed --json`,
	Args: cobra.MinimumNArgs(1),
	Run:  runCompileCommand,
}

// compileQuery is the shared classify-and-compile path for the
// compile and run commands. Exits the process on user error.
func compileQuery(args []string) (*datatypes.WorkflowSpec, compiler.OptimizationProfile) {
	query := strings.Join(args, " ")

	profile, err := compiler.ProfileByName(profileName)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	pattern := patterns.Classify(query, inputFiles)
	spec, err := compiler.Compile(pattern, query, inputFiles, profile)
	if err != nil {
		ux.Error(fmt.Sprintf("compile failed: %v", err))
		os.Exit(1)
	}
	return spec, profile
}

func runCompileCommand(cmd *cobra.Command, args []string) {
	spec, _ := compileQuery(args)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(spec); err != nil {
			ux.Error(fmt.Sprintf("encode workflow: %v", err))
			os.Exit(1)
		}
		return
	}

	printWorkflow(spec)
}
