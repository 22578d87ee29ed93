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
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/rag2dag/services/rag2dag/history"
	"github.com/AleutianAI/rag2dag/services/rag2dag/invoker"
	"github.com/AleutianAI/rag2dag/services/rag2dag/observability"
	"github.com/AleutianAI/rag2dag/services/rag2dag/routes"
)

// initTracer wires the OTLP exporter when a collector endpoint is
// configured. Without one the service runs untraced; spans become
// no-ops through the default provider.
func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return func(context.Context) {}, nil
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("rag2dag-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	port := os.Getenv("RAG2DAG_PORT")
	if port == "" {
		port = "12230"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	metrics := observability.InitMetrics()

	var store *history.Store
	historyDir := os.Getenv("RAG2DAG_HISTORY_DIR")
	if historyDir == "" {
		slog.Warn("RAG2DAG_HISTORY_DIR not set, run history disabled")
	} else {
		cfg := history.DefaultConfig(historyDir)
		cfg.Logger = logger
		store, err = history.Open(cfg)
		if err != nil {
			log.Fatalf("FATAL: could not open the history store: %v", err)
		}
		defer store.Close()
	}

	var inv invoker.ModelInvoker
	if os.Getenv("RAG2DAG_STUB_INVOKER") == "true" {
		slog.Warn("RAG2DAG_STUB_INVOKER=true, serving canned model responses")
		inv = &invoker.Stub{Delay: 50 * time.Millisecond, Echo: true}
	} else {
		inv, err = invoker.NewOpenAIInvoker()
		if err != nil {
			log.Fatalf("FATAL: could not initialize the model invoker: %v", err)
		}
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("rag2dag-service"))

	routes.SetupRoutes(router, inv, store, metrics)
	slog.Info("rag2dag service listening", "port", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
