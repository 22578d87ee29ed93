// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"
	"github.com/AleutianAI/rag2dag/services/rag2dag/invoker"
)

// invokeWithRetry runs one node's model invocation under the profile's
// per-operation timeout, retrying transient failures with exponential
// backoff. Permanent failures and run cancellation stop immediately.
// Returns the output, the number of attempts made, and the last error.
func (e *Executor) invokeWithRetry(
	ctx context.Context,
	node datatypes.DAGNode,
	inputs []string,
) (string, int, error) {
	maxAttempts := e.profile.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	timeout := e.profile.Timeout(node.Operation)
	delay := e.profile.RetryBaseDelay
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		output, err := e.invoker.Invoke(attemptCtx, node.ModelID, node.Instruction, inputs)
		cancel()

		if err == nil {
			return output, attempt, nil
		}

		// A deadline hit on the attempt context while the run is still
		// live is a node timeout; a dead run context is cancellation.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s: %v", ErrNodeTimeout, timeout, err)
		}
		lastErr = err

		if ctx.Err() != nil || !isRetryable(err) || attempt == maxAttempts {
			return "", attempt, lastErr
		}

		e.logger.Warn("node invocation failed, retrying",
			slog.String("node", node.NodeID),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", attempt, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return "", maxAttempts, lastErr
}

func isRetryable(err error) bool {
	return errors.Is(err, ErrNodeTimeout) || invoker.IsTransient(err)
}
