// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP surface of the workflow
// service: compile a query into a workflow spec, execute it with
// streamed node results, and browse past runs.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/rag2dag/services/rag2dag/compiler"
	"github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"
	"github.com/AleutianAI/rag2dag/services/rag2dag/executor"
	"github.com/AleutianAI/rag2dag/services/rag2dag/history"
	"github.com/AleutianAI/rag2dag/services/rag2dag/invoker"
	"github.com/AleutianAI/rag2dag/services/rag2dag/observability"
	"github.com/AleutianAI/rag2dag/services/rag2dag/patterns"
)

var handlerTracer = otel.Tracer("rag2dag.handlers")

// HealthCheck reports service liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// compileFromRequest runs classification and compilation for a bound
// request. Shared by the compile and execute endpoints.
func compileFromRequest(req datatypes.CompileRequest) (datatypes.Pattern, compiler.OptimizationProfile, *datatypes.WorkflowSpec, error) {
	profile, err := compiler.ProfileByName(req.Profile)
	if err != nil {
		return datatypes.Pattern{}, compiler.OptimizationProfile{}, nil, err
	}
	pattern := patterns.Classify(req.Query, req.Files)
	spec, err := compiler.Compile(pattern, req.Query, req.Files, profile)
	if err != nil {
		return datatypes.Pattern{}, compiler.OptimizationProfile{}, nil, err
	}
	return pattern, profile, spec, nil
}

// CompileWorkflow handles POST /v1/workflows/compile.
func CompileWorkflow(metrics *observability.ServiceMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := handlerTracer.Start(c.Request.Context(), "CompileWorkflow")
		defer span.End()

		var req datatypes.CompileRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordRequest("compile", false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if req.Query == "" {
			metrics.RecordRequest("compile", false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
			return
		}

		pattern, _, spec, err := compileFromRequest(req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordRequest("compile", false)
			c.JSON(compileStatusCode(err), gin.H{"error": err.Error()})
			return
		}

		span.SetAttributes(
			attribute.String("pattern", pattern.Name),
			attribute.Int("nodes", len(spec.Nodes)),
		)
		slog.Info("compiled workflow",
			"workflow_id", spec.WorkflowID,
			"pattern", pattern.Name,
			"nodes", len(spec.Nodes),
		)
		metrics.RecordCompile(pattern.Name)
		metrics.RecordRequest("compile", true)
		c.JSON(http.StatusOK, datatypes.CompileResponse{
			Pattern:  pattern.Name,
			Workflow: spec,
		})
	}
}

// ExecuteWorkflow handles POST /v1/workflows/execute. The response is
// a Server-Sent Event stream: one "node" event per terminal node when
// the plan enables streaming, then a final "report" event.
func ExecuteWorkflow(inv invoker.ModelInvoker, store *history.Store, metrics *observability.ServiceMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "ExecuteWorkflow")
		defer span.End()

		var req datatypes.CompileRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordRequest("execute", false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if req.Query == "" {
			metrics.RecordRequest("execute", false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
			return
		}

		pattern, profile, spec, err := compileFromRequest(req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordRequest("execute", false)
			c.JSON(compileStatusCode(err), gin.H{"error": err.Error()})
			return
		}
		span.SetAttributes(
			attribute.String("pattern", pattern.Name),
			attribute.String("workflow_id", spec.WorkflowID),
		)
		metrics.RecordCompile(pattern.Name)

		sse, err := newSSEWriter(c.Writer)
		if err != nil {
			metrics.RecordRequest("execute", false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		opts := []executor.Option{
			executor.WithNodeObserver(func(res datatypes.NodeResult) {
				// A lost event only degrades the stream; the final
				// report still carries every result.
				if err := sse.writeEvent("node", res); err != nil {
					slog.Warn("failed to stream node event",
						"workflow_id", spec.WorkflowID, "node", res.NodeID, "error", err)
				}
			}),
		}
		if store != nil {
			opts = append(opts, executor.WithReportSink(store))
		}

		exec, err := executor.New(profile, inv, opts...)
		if err != nil {
			metrics.RecordRequest("execute", false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		metrics.RunStarted()
		start := time.Now()
		report, err := exec.Execute(ctx, spec)
		if err != nil {
			metrics.RunEnded(pattern.Name, "failed", time.Since(start).Seconds(), 0)
			metrics.RecordRequest("execute", false)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			_ = sse.writeEvent("error", gin.H{"error": err.Error()})
			return
		}
		metrics.RunEnded(pattern.Name, string(report.Status), time.Since(start).Seconds(), report.CostUnits)
		metrics.RecordRequest("execute", true)

		if err := sse.writeEvent("report", report); err != nil {
			slog.Warn("failed to stream final report",
				"workflow_id", spec.WorkflowID, "error", err)
		}
	}
}

// ListRuns handles GET /v1/workflows/runs.
func ListRuns(store *history.Store, metrics *observability.ServiceMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			metrics.RecordRequest("runs", false)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is disabled"})
			return
		}

		limit := 50
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				metrics.RecordRequest("runs", false)
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			limit = parsed
		}

		reports, err := store.ListReports(c.Request.Context(), limit)
		if err != nil {
			slog.Error("failed to list runs", "error", err)
			metrics.RecordRequest("runs", false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
			return
		}

		summaries := make([]datatypes.RunSummary, 0, len(reports))
		for _, report := range reports {
			summaries = append(summaries, datatypes.SummarizeRun(report))
		}
		metrics.RecordRequest("runs", true)
		c.JSON(http.StatusOK, gin.H{"runs": summaries})
	}
}

// GetRun handles GET /v1/workflows/runs/:workflowId.
func GetRun(store *history.Store, metrics *observability.ServiceMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			metrics.RecordRequest("runs", false)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is disabled"})
			return
		}

		workflowID := c.Param("workflowId")
		report, err := store.GetReport(c.Request.Context(), workflowID)
		if errors.Is(err, history.ErrNotFound) {
			metrics.RecordRequest("runs", false)
			c.JSON(http.StatusNotFound, gin.H{"error": "no run found for workflow id " + workflowID})
			return
		}
		if err != nil {
			slog.Error("failed to load run", "workflow_id", workflowID, "error", err)
			metrics.RecordRequest("runs", false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
			return
		}
		metrics.RecordRequest("runs", true)
		c.JSON(http.StatusOK, report)
	}
}

// compileStatusCode maps compile-path errors onto HTTP statuses.
// Everything the caller controls is a 400.
func compileStatusCode(err error) int {
	switch {
	case errors.Is(err, compiler.ErrUnknownProfile),
		errors.Is(err, compiler.ErrNoInputFiles),
		errors.Is(err, compiler.ErrUnknownPattern):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
