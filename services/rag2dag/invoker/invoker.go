// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package invoker defines the model-invocation collaborator the
// executor calls, plus the shipped implementations: an OpenAI-backed
// client for production and a deterministic stub for tests and dry
// runs. The executor makes no assumption about transport; it only
// needs this synchronous per-call contract.
package invoker

import (
	"context"
	"errors"
)

// ModelInvoker is the external model-invocation collaborator.
//
// Invoke sends one instruction to the given model, with the outputs of
// upstream DAG nodes as additional context, and returns the generated
// text. Implementations must honor ctx cancellation and deadlines; the
// executor wraps every call in a per-operation timeout.
type ModelInvoker interface {
	Invoke(ctx context.Context, modelID, instruction string, upstreamOutputs []string) (string, error)
}

// Invocation error taxonomy. Transient errors are retried by the
// executor with backoff; permanent ones fail the node immediately.
var (
	// ErrRateLimited signals provider throttling.
	ErrRateLimited = errors.New("model invocation rate limited")

	// ErrUnavailable signals a connection failure or provider outage.
	ErrUnavailable = errors.New("model service unavailable")

	// ErrInvalidModel means the model identifier was rejected.
	ErrInvalidModel = errors.New("invalid model id")

	// ErrRejected means the provider refused the instruction itself.
	ErrRejected = errors.New("instruction rejected by model service")
)

// IsTransient reports whether an invocation error is worth retrying.
// Timeouts count as transient: the same call may succeed on a less
// loaded attempt.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}
