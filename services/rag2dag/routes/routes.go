// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/rag2dag/services/rag2dag/handlers"
	"github.com/AleutianAI/rag2dag/services/rag2dag/history"
	"github.com/AleutianAI/rag2dag/services/rag2dag/invoker"
	"github.com/AleutianAI/rag2dag/services/rag2dag/observability"
)

func SetupRoutes(router *gin.Engine, inv invoker.ModelInvoker, store *history.Store,
	metrics *observability.ServiceMetrics) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		workflows := v1.Group("/workflows")
		{
			workflows.POST("/compile", handlers.CompileWorkflow(metrics))
			workflows.POST("/execute", handlers.ExecuteWorkflow(inv, store, metrics))
			workflows.GET("/runs", handlers.ListRuns(store, metrics))
			workflows.GET("/runs/:workflowId", handlers.GetRun(store, metrics))
		}
	}
}
