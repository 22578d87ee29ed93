// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Property tests for the scheduler over randomized DAGs

package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/AleutianAI/rag2dag/services/rag2dag/compiler"
	"github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"
)

// drawSpec generates a random forward-only DAG. Node i may depend on
// any subset of nodes declared before it, so every generated spec
// passes validation by construction.
func drawSpec(rt *rapid.T) *datatypes.WorkflowSpec {
	n := rapid.IntRange(1, 12).Draw(rt, "nodeCount")
	nodes := make([]datatypes.DAGNode, 0, n)
	for i := 0; i < n; i++ {
		var deps []string
		for j := 0; j < i; j++ {
			if rapid.Bool().Draw(rt, fmt.Sprintf("edge_%d_%d", j, i)) {
				deps = append(deps, fmt.Sprintf("n%d", j))
			}
		}
		nodes = append(nodes, datatypes.DAGNode{
			NodeID:      fmt.Sprintf("n%d", i),
			Operation:   datatypes.OpExtract,
			ModelID:     "m",
			Instruction: fmt.Sprintf("step %d", i),
			InputFrom:   deps,
		})
	}
	return &datatypes.WorkflowSpec{
		WorkflowID: "wf_prop",
		Nodes:      nodes,
		Plan: datatypes.ExecutionPlan{
			MaxParallelNodes: rapid.IntRange(1, 4).Draw(rt, "maxParallel"),
		},
	}
}

// flakyInvoker fails a fixed set of instructions.
type flakyInvoker struct {
	failing map[string]bool
}

func (f *flakyInvoker) Invoke(ctx context.Context, modelID, instruction string, upstream []string) (string, error) {
	if f.failing[instruction] {
		return "", errors.New("induced failure")
	}
	return "ok:" + instruction, nil
}

func TestExecute_RandomDAGInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		spec := drawSpec(rt)
		require.NoError(t, compiler.ValidateSpec(spec))

		failing := make(map[string]bool)
		for _, node := range spec.Nodes {
			if rapid.Float64Range(0, 1).Draw(rt, "fail_"+node.NodeID) < 0.2 {
				failing[node.Instruction] = true
			}
		}

		exec, err := New(testProfile(), &flakyInvoker{failing: failing})
		require.NoError(t, err)

		report, err := exec.Execute(context.Background(), spec)
		require.NoError(t, err)
		require.Len(t, report.Nodes, len(spec.Nodes))

		byID := make(map[string]datatypes.NodeResult, len(report.Nodes))
		for _, res := range report.Nodes {
			byID[res.NodeID] = res
		}

		for _, node := range spec.Nodes {
			res := byID[node.NodeID]
			require.True(t, res.Status.Terminal(),
				"node %s not terminal: %s", node.NodeID, res.Status)

			upstreamBad := false
			for _, dep := range node.InputFrom {
				depRes := byID[dep]
				if depRes.Status != datatypes.NodeSucceeded {
					upstreamBad = true
				}
			}

			switch {
			case upstreamBad:
				require.Equal(t, datatypes.NodeSkipped, res.Status,
					"node %s has a bad upstream but is %s", node.NodeID, res.Status)
			case failing[node.Instruction]:
				require.Equal(t, datatypes.NodeFailed, res.Status)
				require.NotEmpty(t, res.Error)
			default:
				require.Equal(t, datatypes.NodeSucceeded, res.Status)
				require.Equal(t, "ok:"+node.Instruction, res.Output)
			}
		}

		succeeded := report.Succeeded()
		switch report.Status {
		case datatypes.RunSucceeded:
			require.Equal(t, len(spec.Nodes), succeeded)
		case datatypes.RunFailed:
			require.Zero(t, succeeded)
		case datatypes.RunPartial:
			require.Greater(t, succeeded, 0)
			require.Less(t, succeeded, len(spec.Nodes))
		default:
			rt.Fatalf("unexpected run status %q", report.Status)
		}
	})
}
