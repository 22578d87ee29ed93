// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package invoker

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Stub is a deterministic ModelInvoker for tests and dry runs. It
// never talks to a provider: each call waits Delay (honoring ctx) and
// returns a canned response.
//
// The zero value is usable and answers "ok" instantly.
type Stub struct {
	// Response is returned for every call. Defaults to "ok".
	Response string

	// Delay is the simulated invocation latency.
	Delay time.Duration

	// Fail maps an instruction substring to the error returned for
	// matching calls. Used to simulate node failures.
	Fail map[string]error

	// Echo makes the response include the model and instruction, which
	// is handy when inspecting dry-run output.
	Echo bool
}

// Invoke implements the ModelInvoker interface.
func (s *Stub) Invoke(ctx context.Context, modelID, instruction string, upstreamOutputs []string) (string, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	for substr, err := range s.Fail {
		if substr != "" && strings.Contains(instruction, substr) {
			return "", err
		}
	}

	if s.Echo {
		return fmt.Sprintf("[%s] %s (inputs: %d)", modelID, instruction, len(upstreamOutputs)), nil
	}
	if s.Response == "" {
		return "ok", nil
	}
	return s.Response, nil
}
