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
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/rag2dag/pkg/logging"
	"github.com/AleutianAI/rag2dag/pkg/ux"
)

// --- Global Command Variables ---
var (
	inputFiles   []string
	profileName  string
	jsonOutput   bool
	plainOutput  bool
	useStub      bool
	stubDelay    string
	verboseLevel string

	rootCmd = &cobra.Command{
		Use:   "rag2dag",
		Short: "Compile retrieval queries into executable model workflows",
		Long: `rag2dag turns a natural-language query over a set of documents into
a DAG of model invocations, then runs it with bounded parallelism.

The pipeline is classify -> compile -> execute: the classifier picks a
workflow pattern from the query, the compiler expands the pattern into
concrete nodes for the given files, and the executor runs the nodes
against a model provider.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if plainOutput {
				ux.SetPlain(true)
			}
			logger := logging.New(logging.Config{
				Level:   logging.ParseLevel(verboseLevel),
				Service: "cli",
				LogDir:  os.Getenv("RAG2DAG_LOG_DIR"),
			})
			slog.SetDefault(logger.Slog())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&inputFiles, "file", "f", nil,
		"Input file (repeatable)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "balanced",
		"Optimization profile: speed, balanced, or quality")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Emit JSON instead of styled output")
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false,
		"Disable colors and animations")
	rootCmd.PersistentFlags().StringVar(&verboseLevel, "log-level", "warn",
		"Log level: debug, info, warn, error")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(runCmd)
}
