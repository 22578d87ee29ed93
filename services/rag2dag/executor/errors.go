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

import "errors"

var (
	// ErrNilContext is returned when Execute is called without a context.
	ErrNilContext = errors.New("context must not be nil")

	// ErrNilInvoker is returned by New when no model invoker is given.
	ErrNilInvoker = errors.New("model invoker must not be nil")

	// ErrNodeTimeout wraps a node failure caused by the per-operation
	// invocation timeout. Timeouts are retried as transient failures
	// until the retry budget is exhausted.
	ErrNodeTimeout = errors.New("node invocation timed out")
)
