// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package executor walks a compiled workflow spec, launching ready
// nodes under the plan's concurrency bound, feeding each node its
// dependency outputs, and collecting per-node results into an
// execution report.
//
// All scheduling state lives in a single goroutine; workers only run
// model invocations and report outcomes over a channel. That keeps
// every status transition serialized without locks: a node is promoted
// exactly once per dependency-satisfaction event, and a downstream
// node never starts before all its upstreams are terminal.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/AleutianAI/rag2dag/services/rag2dag/compiler"
	"github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"
	"github.com/AleutianAI/rag2dag/services/rag2dag/invoker"
)

// ReportSink receives completed execution reports. History storage and
// dashboards sit behind this interface; the executor only ever writes
// through it and never reads past runs back to make decisions.
type ReportSink interface {
	SaveReport(ctx context.Context, report *datatypes.ExecutionReport) error
}

// NodeObserver is called with each node result as it becomes terminal.
// Only invoked when the plan enables streaming.
type NodeObserver func(datatypes.NodeResult)

// Executor runs workflow specs against a model invoker.
//
// # Thread Safety
//
// An Executor is safe for concurrent use; each Execute call owns its
// run state exclusively. Specs are read-only and may be shared across
// concurrent runs.
type Executor struct {
	profile  compiler.OptimizationProfile
	invoker  invoker.ModelInvoker
	logger   *slog.Logger
	sink     ReportSink
	observer NodeObserver
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// WithReportSink makes the executor persist every report after the
// run terminates. Sink failures are logged, never fatal to the run.
func WithReportSink(sink ReportSink) Option {
	return func(e *Executor) { e.sink = sink }
}

// WithNodeObserver streams node results to the given callback as they
// become terminal, when the plan enables streaming. The callback runs
// on the scheduler goroutine and must not block.
func WithNodeObserver(fn NodeObserver) Option {
	return func(e *Executor) { e.observer = fn }
}

// New creates an executor for the given profile and invoker.
func New(profile compiler.OptimizationProfile, inv invoker.ModelInvoker, opts ...Option) (*Executor, error) {
	if inv == nil {
		return nil, ErrNilInvoker
	}
	e := &Executor{
		profile: profile,
		invoker: inv,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// outcome is a worker's completion message back to the scheduler.
type outcome struct {
	nodeID   string
	output   string
	attempts int
	err      error
}

// Execute runs the spec to completion and returns the full report.
//
// # Description
//
// Every node reaches a terminal state before Execute returns: nodes
// whose upstreams failed or were skipped are skipped without running,
// and cancellation skips everything not yet in flight. The report is
// always complete; run-level failure is expressed in report.Status,
// not as an error. The returned error is non-nil only for unusable
// input (nil context, structurally invalid spec).
func (e *Executor) Execute(ctx context.Context, spec *datatypes.WorkflowSpec) (*datatypes.ExecutionReport, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if err := compiler.ValidateSpec(spec); err != nil {
		return nil, err
	}

	initMetrics(e.logger)

	ctx, span := tracer.Start(ctx, "rag2dag.Execute",
		trace.WithAttributes(
			attribute.String("workflow.id", spec.WorkflowID),
			attribute.String("workflow.pattern", spec.Pattern.Name),
			attribute.Int("workflow.node_count", len(spec.Nodes)),
		),
	)
	defer span.End()

	start := time.Now()
	e.logger.Info("workflow execution started",
		slog.String("workflow_id", spec.WorkflowID),
		slog.String("pattern", spec.Pattern.Name),
		slog.Int("nodes", len(spec.Nodes)),
		slog.Int("max_parallel", spec.Plan.MaxParallelNodes),
	)

	report := e.runGraph(ctx, spec, start)

	if runLatency != nil {
		runLatency.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("pattern", spec.Pattern.Name)),
		)
	}

	if report.Status == datatypes.RunSucceeded {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, string(report.Status))
	}

	e.logger.Info("workflow execution finished",
		slog.String("workflow_id", spec.WorkflowID),
		slog.String("status", string(report.Status)),
		slog.Duration("duration", time.Since(start)),
		slog.Int("succeeded", report.Succeeded()),
		slog.Int("failed", report.Failed()),
		slog.Int("skipped", report.Skipped()),
	)

	if e.sink != nil {
		// Persist with a fresh context: the run's context may already
		// be canceled, and losing history must not fail the run.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := e.sink.SaveReport(saveCtx, report); err != nil {
			e.logger.Warn("failed to persist execution report",
				slog.String("workflow_id", spec.WorkflowID),
				slog.String("error", err.Error()),
			)
		}
	}

	return report, nil
}

// runGraph is the scheduling loop. It owns all run state; nothing in
// here is touched by worker goroutines.
func (e *Executor) runGraph(ctx context.Context, spec *datatypes.WorkflowSpec, start time.Time) *datatypes.ExecutionReport {
	n := len(spec.Nodes)
	byID := make(map[string]datatypes.DAGNode, n)
	results := make(map[string]*datatypes.NodeResult, n)
	outputs := make(map[string]string, n)
	dependents := make(map[string][]string, n)
	remaining := make(map[string]int, n)
	upstreamBad := make(map[string]bool, n)

	for _, node := range spec.Nodes {
		byID[node.NodeID] = node
		results[node.NodeID] = &datatypes.NodeResult{NodeID: node.NodeID, Status: datatypes.NodePending}
		remaining[node.NodeID] = len(node.InputFrom)
		for _, dep := range node.InputFrom {
			dependents[dep] = append(dependents[dep], node.NodeID)
		}
	}

	maxParallel := spec.Plan.MaxParallelNodes
	if maxParallel <= 0 {
		maxParallel = 1
	}
	sem := semaphore.NewWeighted(int64(maxParallel))
	outcomes := make(chan outcome, n)

	var ready []string
	for _, node := range spec.Nodes {
		if len(node.InputFrom) == 0 {
			ready = append(ready, node.NodeID)
			results[node.NodeID].Status = datatypes.NodeReady
		}
	}

	terminal := 0
	running := 0
	canceled := false

	emit := func(res *datatypes.NodeResult) {
		if e.observer != nil && spec.Plan.EnableStreaming {
			e.observer(*res)
		}
	}

	// settle marks a node terminal and promotes or skips dependents.
	// A dependent whose upstreams all settled without success is
	// skipped here, exactly once per dependency-satisfaction event.
	var settle func(id string, res *datatypes.NodeResult)
	settle = func(id string, res *datatypes.NodeResult) {
		terminal++
		emit(res)
		succeeded := res.Status == datatypes.NodeSucceeded
		for _, dep := range dependents[id] {
			depRes := results[dep]
			if depRes.Status.Terminal() {
				// Already swept by cancellation.
				continue
			}
			remaining[dep]--
			if !succeeded {
				upstreamBad[dep] = true
			}
			if remaining[dep] > 0 {
				continue
			}
			if upstreamBad[dep] || canceled {
				depRes.Status = datatypes.NodeSkipped
				e.logger.Debug("node skipped",
					slog.String("workflow_id", spec.WorkflowID),
					slog.String("node", dep),
				)
				settle(dep, depRes)
			} else {
				depRes.Status = datatypes.NodeReady
				ready = append(ready, dep)
			}
		}
	}

	// skipPending moves every non-running, non-terminal node to
	// skipped after cancellation. In-flight nodes finish on their own;
	// their invocations see ctx cancellation.
	skipPending := func() {
		ready = ready[:0]
		for _, node := range spec.Nodes {
			res := results[node.NodeID]
			if res.Status == datatypes.NodePending || res.Status == datatypes.NodeReady {
				res.Status = datatypes.NodeSkipped
				terminal++
				emit(res)
			}
		}
	}

	handleOutcome := func(o outcome) {
		node := byID[o.nodeID]
		res := results[o.nodeID]
		res.FinishedAt = time.Now()
		res.Attempts = o.attempts
		if activeNodes != nil {
			activeNodes.Add(ctx, -1)
		}
		if nodeLatency != nil {
			nodeLatency.Record(ctx, res.FinishedAt.Sub(res.StartedAt).Seconds(),
				metric.WithAttributes(attribute.String("operation", string(node.Operation))),
			)
		}

		if o.err != nil && (canceled || ctx.Err() != nil) &&
			(errors.Is(o.err, context.Canceled) || errors.Is(o.err, context.DeadlineExceeded)) {
			// The run was canceled while this node was in flight; it
			// never got a real attempt, so it skips rather than fails.
			// ctx.Err() is consulted directly because the outcome may
			// arrive before the scheduler observes ctx.Done().
			res.Status = datatypes.NodeSkipped
			e.logger.Debug("in-flight node skipped by cancellation",
				slog.String("workflow_id", spec.WorkflowID),
				slog.String("node", node.NodeID),
			)
			settle(node.NodeID, res)
			return
		}

		if o.err != nil {
			res.Status = datatypes.NodeFailed
			res.Error = o.err.Error()
			if nodeFailures != nil {
				nodeFailures.Add(ctx, 1,
					metric.WithAttributes(attribute.String("operation", string(node.Operation))),
				)
			}
			e.logger.Error("node failed",
				slog.String("workflow_id", spec.WorkflowID),
				slog.String("node", node.NodeID),
				slog.Int("attempts", o.attempts),
				slog.String("error", o.err.Error()),
			)
		} else {
			res.Status = datatypes.NodeSucceeded
			res.Output = o.output
			outputs[node.NodeID] = o.output
			if nodeSuccesses != nil {
				nodeSuccesses.Add(ctx, 1,
					metric.WithAttributes(attribute.String("operation", string(node.Operation))),
				)
			}
			e.logger.Info("node completed",
				slog.String("workflow_id", spec.WorkflowID),
				slog.String("node", node.NodeID),
				slog.Duration("duration", res.FinishedAt.Sub(res.StartedAt)),
			)
		}

		settle(node.NodeID, res)
	}

	for terminal < n {
		// Launch as many ready nodes as the bound allows.
		for !canceled && len(ready) > 0 && sem.TryAcquire(1) {
			id := ready[0]
			ready = ready[1:]
			node := byID[id]
			res := results[id]
			res.Status = datatypes.NodeRunning
			res.StartedAt = time.Now()
			running++

			// Snapshot dependency outputs before the worker starts;
			// workers never touch scheduler state.
			inputs := make([]string, 0, len(node.InputFrom))
			for _, dep := range node.InputFrom {
				inputs = append(inputs, outputs[dep])
			}

			if activeNodes != nil {
				activeNodes.Add(ctx, 1)
			}
			go func(node datatypes.DAGNode, inputs []string) {
				out, attempts, err := e.invokeWithRetry(ctx, node, inputs)
				outcomes <- outcome{nodeID: node.NodeID, output: out, attempts: attempts, err: err}
			}(node, inputs)
		}

		if running == 0 {
			// Nothing in flight. Either everything left was settled by
			// skip propagation, or the ready queue will drain on the
			// next launch pass.
			if len(ready) == 0 || canceled {
				break
			}
			continue
		}

		select {
		case <-ctx.Done():
			if !canceled {
				canceled = true
				e.logger.Warn("workflow canceled, skipping pending nodes",
					slog.String("workflow_id", spec.WorkflowID),
					slog.String("reason", ctx.Err().Error()),
				)
				skipPending()
			}
			// Drain one in-flight worker; its invocation sees the
			// cancellation and returns promptly.
			handleOutcome(<-outcomes)
			sem.Release(1)
			running--
		case o := <-outcomes:
			handleOutcome(o)
			sem.Release(1)
			running--
		}
	}

	return e.buildReport(spec, results, start)
}

// buildReport assembles the final report in spec declaration order.
func (e *Executor) buildReport(
	spec *datatypes.WorkflowSpec,
	results map[string]*datatypes.NodeResult,
	start time.Time,
) *datatypes.ExecutionReport {
	report := &datatypes.ExecutionReport{
		WorkflowID:  spec.WorkflowID,
		PatternName: spec.Pattern.Name,
		StartedAt:   start,
		FinishedAt:  time.Now(),
	}

	succeeded, failedOrSkipped := 0, 0
	for _, node := range spec.Nodes {
		res := results[node.NodeID]
		if res.Status == datatypes.NodeSucceeded {
			succeeded++
			report.CostUnits += e.profile.CostUnit(node.Operation)
		} else {
			failedOrSkipped++
		}
		report.Nodes = append(report.Nodes, *res)
	}
	report.EstimatedCostUSD = report.CostUnits * e.profile.CostPerUnitUSD

	switch {
	case failedOrSkipped == 0:
		report.Status = datatypes.RunSucceeded
	case succeeded == 0:
		report.Status = datatypes.RunFailed
	default:
		report.Status = datatypes.RunPartial
	}
	return report
}
