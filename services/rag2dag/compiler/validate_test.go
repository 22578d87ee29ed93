// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for workflow spec validation

package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"
)

func specOf(nodes ...datatypes.DAGNode) *datatypes.WorkflowSpec {
	return &datatypes.WorkflowSpec{WorkflowID: "wf_test", Nodes: nodes}
}

func node(id string, deps ...string) datatypes.DAGNode {
	return datatypes.DAGNode{
		NodeID:      id,
		Operation:   datatypes.OpExtract,
		ModelID:     "gpt-4o-mini",
		Instruction: "x",
		InputFrom:   deps,
	}
}

func TestValidateSpec_ValidChain(t *testing.T) {
	spec := specOf(node("a"), node("b", "a"), node("c", "a", "b"))
	assert.NoError(t, ValidateSpec(spec))
}

func TestValidateSpec_NilAndEmpty(t *testing.T) {
	assert.ErrorIs(t, ValidateSpec(nil), ErrInvalidSpec)
	assert.ErrorIs(t, ValidateSpec(specOf()), ErrInvalidSpec)
}

func TestValidateSpec_EmptyNodeID(t *testing.T) {
	assert.ErrorIs(t, ValidateSpec(specOf(node(""))), ErrInvalidSpec)
}

func TestValidateSpec_DuplicateNodeID(t *testing.T) {
	err := ValidateSpec(specOf(node("a"), node("a")))
	require.ErrorIs(t, err, ErrInvalidSpec)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidateSpec_BackwardReference(t *testing.T) {
	// b is declared after a but a references it, so the forward-only
	// rule is violated even though the graph would be acyclic.
	err := ValidateSpec(specOf(node("a", "b"), node("b")))
	require.ErrorIs(t, err, ErrInvalidSpec)
	assert.Contains(t, err.Error(), "not declared before")
}

func TestValidateSpec_UnknownDependency(t *testing.T) {
	assert.ErrorIs(t, ValidateSpec(specOf(node("a", "ghost"))), ErrInvalidSpec)
}

func TestDetectCycles_ReportsPath(t *testing.T) {
	// Constructed directly because the forward-only check in
	// ValidateSpec rejects backward references before cycle detection
	// can see them.
	spec := specOf(node("a", "c"), node("b", "a"), node("c", "b"))

	err := detectCycles(spec)
	require.Error(t, err)

	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.GreaterOrEqual(t, len(cycleErr.Path), 3)
	// The reported walk returns to its starting node.
	assert.Equal(t, cycleErr.Path[0], cycleErr.Path[len(cycleErr.Path)-1])
}

func TestValidateSpec_ParallelGroupMembersMustBeIndependent(t *testing.T) {
	a := node("a")
	a.ParallelGroup = "fanout"
	b := node("b", "a")
	b.ParallelGroup = "fanout"

	err := ValidateSpec(specOf(a, b))
	require.ErrorIs(t, err, ErrInvalidSpec)
	assert.Contains(t, err.Error(), "fanout")
}

func TestValidateSpec_ParallelGroupIndirectDependency(t *testing.T) {
	// a -> mid -> b with a and b sharing a group: still invalid, the
	// dependency path just runs through an ungrouped node.
	a := node("a")
	a.ParallelGroup = "fanout"
	mid := node("mid", "a")
	b := node("b", "mid")
	b.ParallelGroup = "fanout"

	assert.ErrorIs(t, ValidateSpec(specOf(a, mid, b)), ErrInvalidSpec)
}

func TestValidateSpec_IndependentGroupMembersOK(t *testing.T) {
	a := node("a")
	a.ParallelGroup = "fanout"
	b := node("b")
	b.ParallelGroup = "fanout"
	join := node("join", "a", "b")

	assert.NoError(t, ValidateSpec(specOf(a, b, join)))
}
