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

	"github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"
)

// ValidateSpec checks the structural invariants of a workflow spec:
//
//   - node IDs are unique
//   - every input_from entry references a node declared earlier
//   - the dependency graph is acyclic
//   - members of the same parallel group have no dependency path
//     between them
//
// The compiler calls this on everything it builds; callers that
// construct specs by hand (tests, future template sources) should call
// it themselves before execution.
func ValidateSpec(spec *datatypes.WorkflowSpec) error {
	if spec == nil || len(spec.Nodes) == 0 {
		return fmt.Errorf("%w: no nodes", ErrInvalidSpec)
	}

	declared := make(map[string]bool, len(spec.Nodes))
	for _, n := range spec.Nodes {
		if n.NodeID == "" {
			return fmt.Errorf("%w: empty node_id", ErrInvalidSpec)
		}
		if declared[n.NodeID] {
			return fmt.Errorf("%w: duplicate node_id %q", ErrInvalidSpec, n.NodeID)
		}
		for _, dep := range n.InputFrom {
			if !declared[dep] {
				return fmt.Errorf("%w: node %q depends on %q, which is not declared before it",
					ErrInvalidSpec, n.NodeID, dep)
			}
		}
		declared[n.NodeID] = true
	}

	if err := detectCycles(spec); err != nil {
		return err
	}

	return validateParallelGroups(spec)
}

// detectCycles walks the input_from edges with DFS. Forward-only
// declaration already rules cycles out, so this is a defensive check
// for specs that bypassed the declaration-order rule.
func detectCycles(spec *datatypes.WorkflowSpec) error {
	deps := make(map[string][]string, len(spec.Nodes))
	for _, n := range spec.Nodes {
		deps[n.NodeID] = n.InputFrom
	}

	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make([]string, 0, len(spec.Nodes))

	var dfs func(id string) error
	dfs = func(id string) error {
		visited[id] = true
		recStack[id] = true
		path = append(path, id)

		for _, dep := range deps[id] {
			if !visited[dep] {
				if err := dfs(dep); err != nil {
					return err
				}
			} else if recStack[dep] {
				cycleStart := 0
				for i, n := range path {
					if n == dep {
						cycleStart = i
						break
					}
				}
				return &CycleError{Path: append(append([]string(nil), path[cycleStart:]...), dep)}
			}
		}

		path = path[:len(path)-1]
		recStack[id] = false
		return nil
	}

	for _, n := range spec.Nodes {
		if !visited[n.NodeID] {
			if err := dfs(n.NodeID); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateParallelGroups enforces that a parallel group only contains
// mutually independent nodes. A group member reachable from another
// member would serialize the group and break the scheduling contract.
func validateParallelGroups(spec *datatypes.WorkflowSpec) error {
	groups := make(map[string][]string)
	for _, n := range spec.Nodes {
		if n.ParallelGroup != "" {
			groups[n.ParallelGroup] = append(groups[n.ParallelGroup], n.NodeID)
		}
	}
	if len(groups) == 0 {
		return nil
	}

	deps := make(map[string][]string, len(spec.Nodes))
	for _, n := range spec.Nodes {
		deps[n.NodeID] = n.InputFrom
	}

	// ancestors collects everything reachable upstream of a node.
	ancestors := func(id string) map[string]bool {
		seen := make(map[string]bool)
		stack := append([]string(nil), deps[id]...)
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if seen[cur] {
				continue
			}
			seen[cur] = true
			stack = append(stack, deps[cur]...)
		}
		return seen
	}

	for group, members := range groups {
		inGroup := make(map[string]bool, len(members))
		for _, m := range members {
			inGroup[m] = true
		}
		for _, m := range members {
			for anc := range ancestors(m) {
				if inGroup[anc] {
					return fmt.Errorf("%w: parallel group %q contains dependent nodes %q and %q",
						ErrInvalidSpec, group, anc, m)
				}
			}
		}
	}
	return nil
}
