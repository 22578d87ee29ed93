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
	"errors"
	"fmt"
	"strings"
)

// Configuration errors. These surface at compile time, before any node
// runs, and are never retried.
var (
	// ErrUnknownPattern means the pattern type has no node template.
	ErrUnknownPattern = errors.New("unknown pattern type")

	// ErrUnknownProfile means the profile name is not in the registry.
	ErrUnknownProfile = errors.New("unknown optimization profile")

	// ErrNoInputFiles means the pattern's template requires at least
	// one input file and none were provided.
	ErrNoInputFiles = errors.New("pattern requires at least one input file")

	// ErrMissingModel means the profile's model table has no entry for
	// an operation the template requires.
	ErrMissingModel = errors.New("profile has no model for operation")

	// ErrInvalidSpec covers structural defects caught by validation:
	// duplicate node IDs, references to undeclared nodes, or dependent
	// nodes sharing a parallel group.
	ErrInvalidSpec = errors.New("invalid workflow spec")
)

// CycleError reports a dependency cycle found during validation. The
// compiler's forward-reference rule makes cycles unreachable in specs
// it builds itself, but hand-built specs are validated too.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}
