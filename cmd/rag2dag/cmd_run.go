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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/rag2dag/pkg/ux"
	"github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"
	"github.com/AleutianAI/rag2dag/services/rag2dag/executor"
	"github.com/AleutianAI/rag2dag/services/rag2dag/history"
	"github.com/AleutianAI/rag2dag/services/rag2dag/invoker"
)

// runCmd compiles and executes a workflow in one step.
var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Compile a query and execute the resulting workflow",
	Long: `Compiles the query into a workflow and runs it to completion.

Node results stream to the terminal as they finish. Ctrl-C cancels the
run: in-flight nodes drain, pending nodes are skipped, and the partial
report is still printed and recorded.

By default the OpenAI API is used (OPENAI_API_KEY must be set). Use
--stub for an offline dry run that exercises the full scheduler with
canned responses.

Examples:
  rag2dag run "compare the indemnity clauses" -f a.pdf -f b.pdf
  rag2dag run "summarize each report" -f q1.pdf -f q2.pdf -p quality
  rag2dag run "what changed between versions" -f v1.md -f v2.md --stub`,
	Args: cobra.MinimumNArgs(1),
	Run:  runRunCommand,
}

func init() {
	runCmd.Flags().BoolVar(&useStub, "stub", false,
		"Use the offline stub invoker instead of the OpenAI API")
	runCmd.Flags().StringVar(&stubDelay, "stub-delay", "50ms",
		"Simulated per-node latency for --stub")
}

func runRunCommand(cmd *cobra.Command, args []string) {
	spec, profile := compileQuery(args)

	inv, err := buildInvoker()
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	opts := []executor.Option{
		executor.WithNodeObserver(printNodeResult),
	}

	var store *history.Store
	if dir := os.Getenv("RAG2DAG_HISTORY_DIR"); dir != "" {
		store, err = history.Open(history.DefaultConfig(dir))
		if err != nil {
			ux.Warning(fmt.Sprintf("history disabled: %v", err))
		} else {
			defer store.Close()
			opts = append(opts, executor.WithReportSink(store))
		}
	}

	exec, err := executor.New(profile, inv, opts...)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !jsonOutput {
		printWorkflow(spec)
		ux.Muted(fmt.Sprintf("running with profile %q", profile.Name))
	}

	report, err := exec.Execute(ctx, spec)
	if err != nil {
		ux.Error(fmt.Sprintf("execution failed: %v", err))
		os.Exit(1)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			ux.Error(fmt.Sprintf("encode report: %v", err))
			os.Exit(1)
		}
	} else {
		printReport(report)
	}

	if report.Status == datatypes.RunFailed {
		os.Exit(1)
	}
}

// buildInvoker picks the model backend for this run.
func buildInvoker() (invoker.ModelInvoker, error) {
	if useStub {
		delay, err := time.ParseDuration(stubDelay)
		if err != nil {
			return nil, fmt.Errorf("invalid --stub-delay %q: %w", stubDelay, err)
		}
		return &invoker.Stub{Delay: delay, Echo: true}, nil
	}
	return invoker.NewOpenAIInvoker()
}
