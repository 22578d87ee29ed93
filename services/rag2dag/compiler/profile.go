// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package compiler

import (
	"fmt"
	"time"

	"github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"
)

// DefaultCostPerUnitUSD is the baseline dollar cost of one cost unit.
// Deployments override it per profile; the default matches the pricing
// the CLI has always displayed.
const DefaultCostPerUnitUSD = 1.50

// defaultOperationTimeout bounds a single invocation attempt when the
// profile has no entry for the operation.
const defaultOperationTimeout = 30 * time.Second

// OptimizationProfile selects which model, latency estimate, and cost
// estimate apply to each operation kind, plus the scheduling knobs the
// executor needs. Profiles are plain data so deployments can extend
// them without code changes.
type OptimizationProfile struct {
	Name string

	// Models maps each operation the templates can emit to a concrete
	// model identifier. A missing entry is a compile-time error.
	Models map[datatypes.OperationKind]string

	// Latencies are per-operation duration estimates used for the
	// critical-path time estimate in the execution plan.
	Latencies map[datatypes.OperationKind]time.Duration

	// Timeouts bound a single invocation attempt per operation.
	Timeouts map[datatypes.OperationKind]time.Duration

	// CostUnits are per-operation cost estimates accumulated into the
	// execution report for each successful invocation.
	CostUnits map[datatypes.OperationKind]float64

	// MaxParallelNodes is the profile's default concurrency bound. The
	// compiler clamps it to the widest parallel group of the graph.
	MaxParallelNodes int

	// MaxRetries is how many times a transient invocation failure is
	// retried before the node is marked failed.
	MaxRetries int

	// RetryBaseDelay is the first backoff delay; it doubles per retry.
	RetryBaseDelay time.Duration

	// CostPerUnitUSD converts accumulated cost units to dollars.
	CostPerUnitUSD float64
}

// Speed favors small fast models and wide fan-out.
func Speed() OptimizationProfile {
	return OptimizationProfile{
		Name: "speed",
		Models: map[datatypes.OperationKind]string{
			datatypes.OpExtract:    "gpt-4o-mini",
			datatypes.OpSummarize:  "gpt-4o-mini",
			datatypes.OpCompare:    "gpt-4o-mini",
			datatypes.OpSynthesize: "gpt-4o-mini",
			datatypes.OpClassify:   "gpt-4o-mini",
			datatypes.OpRefine:     "gpt-4o-mini",
		},
		Latencies: map[datatypes.OperationKind]time.Duration{
			datatypes.OpExtract:    3 * time.Second,
			datatypes.OpSummarize:  4 * time.Second,
			datatypes.OpCompare:    5 * time.Second,
			datatypes.OpSynthesize: 5 * time.Second,
			datatypes.OpClassify:   2 * time.Second,
			datatypes.OpRefine:     4 * time.Second,
		},
		Timeouts: map[datatypes.OperationKind]time.Duration{
			datatypes.OpExtract:    20 * time.Second,
			datatypes.OpSummarize:  20 * time.Second,
			datatypes.OpCompare:    30 * time.Second,
			datatypes.OpSynthesize: 30 * time.Second,
			datatypes.OpClassify:   15 * time.Second,
			datatypes.OpRefine:     30 * time.Second,
		},
		CostUnits: map[datatypes.OperationKind]float64{
			datatypes.OpExtract:    0.2,
			datatypes.OpSummarize:  0.3,
			datatypes.OpCompare:    0.4,
			datatypes.OpSynthesize: 0.4,
			datatypes.OpClassify:   0.1,
			datatypes.OpRefine:     0.3,
		},
		MaxParallelNodes: 8,
		MaxRetries:       2,
		RetryBaseDelay:   500 * time.Millisecond,
		CostPerUnitUSD:   DefaultCostPerUnitUSD,
	}
}

// Balanced is the default profile: small models for mechanical steps,
// larger models where judgment matters.
func Balanced() OptimizationProfile {
	return OptimizationProfile{
		Name: "balanced",
		Models: map[datatypes.OperationKind]string{
			datatypes.OpExtract:    "gpt-4o-mini",
			datatypes.OpSummarize:  "gpt-4o-mini",
			datatypes.OpCompare:    "gpt-4o",
			datatypes.OpSynthesize: "gpt-4o",
			datatypes.OpClassify:   "gpt-4o-mini",
			datatypes.OpRefine:     "gpt-4o",
		},
		Latencies: map[datatypes.OperationKind]time.Duration{
			datatypes.OpExtract:    5 * time.Second,
			datatypes.OpSummarize:  8 * time.Second,
			datatypes.OpCompare:    10 * time.Second,
			datatypes.OpSynthesize: 12 * time.Second,
			datatypes.OpClassify:   3 * time.Second,
			datatypes.OpRefine:     10 * time.Second,
		},
		Timeouts: map[datatypes.OperationKind]time.Duration{
			datatypes.OpExtract:    30 * time.Second,
			datatypes.OpSummarize:  45 * time.Second,
			datatypes.OpCompare:    60 * time.Second,
			datatypes.OpSynthesize: 60 * time.Second,
			datatypes.OpClassify:   20 * time.Second,
			datatypes.OpRefine:     60 * time.Second,
		},
		CostUnits: map[datatypes.OperationKind]float64{
			datatypes.OpExtract:    0.3,
			datatypes.OpSummarize:  0.5,
			datatypes.OpCompare:    0.8,
			datatypes.OpSynthesize: 1.0,
			datatypes.OpClassify:   0.2,
			datatypes.OpRefine:     0.8,
		},
		MaxParallelNodes: 4,
		MaxRetries:       2,
		RetryBaseDelay:   time.Second,
		CostPerUnitUSD:   DefaultCostPerUnitUSD,
	}
}

// Quality routes everything to the strongest models and accepts the
// latency cost.
func Quality() OptimizationProfile {
	return OptimizationProfile{
		Name: "quality",
		Models: map[datatypes.OperationKind]string{
			datatypes.OpExtract:    "gpt-4o",
			datatypes.OpSummarize:  "gpt-4o",
			datatypes.OpCompare:    "o1",
			datatypes.OpSynthesize: "o1",
			datatypes.OpClassify:   "gpt-4o",
			datatypes.OpRefine:     "o1",
		},
		Latencies: map[datatypes.OperationKind]time.Duration{
			datatypes.OpExtract:    10 * time.Second,
			datatypes.OpSummarize:  15 * time.Second,
			datatypes.OpCompare:    30 * time.Second,
			datatypes.OpSynthesize: 30 * time.Second,
			datatypes.OpClassify:   8 * time.Second,
			datatypes.OpRefine:     25 * time.Second,
		},
		Timeouts: map[datatypes.OperationKind]time.Duration{
			datatypes.OpExtract:    60 * time.Second,
			datatypes.OpSummarize:  90 * time.Second,
			datatypes.OpCompare:    120 * time.Second,
			datatypes.OpSynthesize: 120 * time.Second,
			datatypes.OpClassify:   45 * time.Second,
			datatypes.OpRefine:     120 * time.Second,
		},
		CostUnits: map[datatypes.OperationKind]float64{
			datatypes.OpExtract:    0.8,
			datatypes.OpSummarize:  1.2,
			datatypes.OpCompare:    2.5,
			datatypes.OpSynthesize: 3.0,
			datatypes.OpClassify:   0.6,
			datatypes.OpRefine:     2.5,
		},
		MaxParallelNodes: 2,
		MaxRetries:       3,
		RetryBaseDelay:   2 * time.Second,
		CostPerUnitUSD:   DefaultCostPerUnitUSD,
	}
}

// ProfileByName resolves one of the built-in profiles.
//
// Returns ErrUnknownProfile for anything other than speed, balanced,
// or quality. Callers with custom tables construct an
// OptimizationProfile directly instead.
func ProfileByName(name string) (OptimizationProfile, error) {
	switch name {
	case "speed":
		return Speed(), nil
	case "balanced", "":
		return Balanced(), nil
	case "quality":
		return Quality(), nil
	default:
		return OptimizationProfile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
}

// Latency returns the profile's latency estimate for an operation,
// zero if the profile has none.
func (p OptimizationProfile) Latency(op datatypes.OperationKind) time.Duration {
	return p.Latencies[op]
}

// Timeout returns the invocation timeout for an operation, falling
// back to defaultOperationTimeout.
func (p OptimizationProfile) Timeout(op datatypes.OperationKind) time.Duration {
	if d, ok := p.Timeouts[op]; ok && d > 0 {
		return d
	}
	return defaultOperationTimeout
}

// CostUnit returns the per-invocation cost estimate for an operation,
// zero if the profile has none.
func (p OptimizationProfile) CostUnit(op datatypes.OperationKind) float64 {
	return p.CostUnits[op]
}
