// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for workflow execution

package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/rag2dag/services/rag2dag/compiler"
	"github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"
	"github.com/AleutianAI/rag2dag/services/rag2dag/invoker"
	"github.com/AleutianAI/rag2dag/services/rag2dag/patterns"
)

// testProfile keeps timeouts and backoff tight so the suite stays fast.
func testProfile() compiler.OptimizationProfile {
	p := compiler.Speed()
	p.MaxRetries = 0
	p.RetryBaseDelay = time.Millisecond
	return p
}

func compileFixture(t *testing.T, typ datatypes.PatternType, query string, files []string) *datatypes.WorkflowSpec {
	t.Helper()
	pattern, ok := patterns.Lookup(typ)
	require.True(t, ok)
	spec, err := compiler.Compile(pattern, query, files, testProfile())
	require.NoError(t, err)
	return spec
}

// recordingInvoker captures every call and tracks peak concurrency.
type recordingInvoker struct {
	mu         sync.Mutex
	calls      map[string][]string // instruction -> upstream outputs
	delay      time.Duration
	active     atomic.Int64
	peakActive atomic.Int64
	fail       func(instruction string) error
}

func newRecordingInvoker(delay time.Duration) *recordingInvoker {
	return &recordingInvoker{calls: make(map[string][]string), delay: delay}
}

func (r *recordingInvoker) Invoke(ctx context.Context, modelID, instruction string, upstreamOutputs []string) (string, error) {
	cur := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		peak := r.peakActive.Load()
		if cur <= peak || r.peakActive.CompareAndSwap(peak, cur) {
			break
		}
	}

	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.delay):
		}
	}

	r.mu.Lock()
	r.calls[instruction] = append([]string(nil), upstreamOutputs...)
	r.mu.Unlock()

	if r.fail != nil {
		if err := r.fail(instruction); err != nil {
			return "", err
		}
	}
	return "out:" + instruction, nil
}

// memorySink records saved reports.
type memorySink struct {
	mu      sync.Mutex
	reports []*datatypes.ExecutionReport
}

func (s *memorySink) SaveReport(ctx context.Context, report *datatypes.ExecutionReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

func TestNew_RequiresInvoker(t *testing.T) {
	_, err := New(testProfile(), nil)
	assert.ErrorIs(t, err, ErrNilInvoker)
}

func TestExecute_NilContext(t *testing.T) {
	exec, err := New(testProfile(), &invoker.Stub{})
	require.NoError(t, err)
	//nolint:staticcheck // nil context is the case under test
	_, err = exec.Execute(nil, compileFixture(t, datatypes.PatternSingleDocumentQA, "q", []string{"a.pdf"}))
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestExecute_InvalidSpecRejected(t *testing.T) {
	exec, err := New(testProfile(), &invoker.Stub{})
	require.NoError(t, err)
	_, err = exec.Execute(context.Background(), &datatypes.WorkflowSpec{WorkflowID: "wf_x"})
	assert.ErrorIs(t, err, compiler.ErrInvalidSpec)
}

func TestExecute_AllNodesSucceed(t *testing.T) {
	spec := compileFixture(t, datatypes.PatternMultiDocumentCompare,
		"compare terms", []string{"a.pdf", "b.pdf"})

	exec, err := New(testProfile(), &invoker.Stub{Response: "fine"})
	require.NoError(t, err)

	report, err := exec.Execute(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, datatypes.RunSucceeded, report.Status)
	assert.Equal(t, spec.WorkflowID, report.WorkflowID)
	require.Len(t, report.Nodes, 4)
	for _, res := range report.Nodes {
		assert.Equal(t, datatypes.NodeSucceeded, res.Status)
		assert.Equal(t, "fine", res.Output)
		assert.Equal(t, 1, res.Attempts)
		assert.False(t, res.FinishedAt.Before(res.StartedAt))
	}
	// Results come back in spec declaration order.
	for i, res := range report.Nodes {
		assert.Equal(t, spec.Nodes[i].NodeID, res.NodeID)
	}
}

func TestExecute_UpstreamOutputsFlowDownstream(t *testing.T) {
	spec := compileFixture(t, datatypes.PatternMultiDocumentCompare,
		"compare", []string{"a.pdf", "b.pdf"})

	inv := newRecordingInvoker(0)
	exec, err := New(testProfile(), inv)
	require.NoError(t, err)

	report, err := exec.Execute(context.Background(), spec)
	require.NoError(t, err)
	require.Equal(t, datatypes.RunSucceeded, report.Status)

	compare, ok := spec.Node("compare")
	require.True(t, ok)
	ext1, _ := spec.Node("extract_1")
	ext2, _ := spec.Node("extract_2")

	inv.mu.Lock()
	got := inv.calls[compare.Instruction]
	inv.mu.Unlock()

	// The compare node sees both extract outputs, in input_from order.
	require.Len(t, got, 2)
	assert.Equal(t, "out:"+ext1.Instruction, got[0])
	assert.Equal(t, "out:"+ext2.Instruction, got[1])
}

func TestExecute_FailurePropagatesAsSkips(t *testing.T) {
	spec := compileFixture(t, datatypes.PatternMultiDocumentCompare,
		"compare", []string{"a.pdf", "b.pdf"})

	boom := errors.New("boom")
	inv := &invoker.Stub{Fail: map[string]error{"Compare the extracted": boom}}
	exec, err := New(testProfile(), inv)
	require.NoError(t, err)

	report, err := exec.Execute(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, datatypes.RunPartial, report.Status)
	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 1, report.Skipped())

	byID := make(map[string]datatypes.NodeResult)
	for _, res := range report.Nodes {
		byID[res.NodeID] = res
	}
	assert.Equal(t, datatypes.NodeFailed, byID["compare"].Status)
	assert.Contains(t, byID["compare"].Error, "boom")
	assert.Equal(t, datatypes.NodeSkipped, byID["synthesize"].Status)
	assert.Empty(t, byID["synthesize"].Output)
}

func TestExecute_AllFailedIsRunFailed(t *testing.T) {
	spec := compileFixture(t, datatypes.PatternSingleDocumentQA, "q", nil)
	require.Len(t, spec.Nodes, 1)

	inv := &invoker.Stub{Fail: map[string]error{"Answer": errors.New("nope")}}
	exec, err := New(testProfile(), inv)
	require.NoError(t, err)

	report, err := exec.Execute(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, datatypes.RunFailed, report.Status)
}

func TestExecute_RespectsConcurrencyBound(t *testing.T) {
	// Six independent nodes feeding one join, with the plan capped at
	// two concurrent invocations.
	nodes := make([]datatypes.DAGNode, 0, 7)
	deps := make([]string, 0, 6)
	for i := 1; i <= 6; i++ {
		id := fmt.Sprintf("leaf_%d", i)
		nodes = append(nodes, datatypes.DAGNode{
			NodeID: id, Operation: datatypes.OpSummarize,
			ModelID: "m", Instruction: id, ParallelGroup: "fanout",
		})
		deps = append(deps, id)
	}
	nodes = append(nodes, datatypes.DAGNode{
		NodeID: "join", Operation: datatypes.OpSynthesize,
		ModelID: "m", Instruction: "join", InputFrom: deps,
	})
	spec := &datatypes.WorkflowSpec{
		WorkflowID: "wf_bound",
		Nodes:      nodes,
		Plan:       datatypes.ExecutionPlan{MaxParallelNodes: 2},
	}

	inv := newRecordingInvoker(20 * time.Millisecond)
	exec, err := New(testProfile(), inv)
	require.NoError(t, err)

	report, err := exec.Execute(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, datatypes.RunSucceeded, report.Status)
	assert.LessOrEqual(t, inv.peakActive.Load(), int64(2))
}

func TestExecute_CancellationSkipsPending(t *testing.T) {
	// A four-step chain where each node takes 30ms; cancel mid-run so
	// later nodes never start.
	spec := compileFixture(t, datatypes.PatternIterativeRefine, "polish", []string{"a.md"})
	require.Len(t, spec.Nodes, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Millisecond)
	defer cancel()

	inv := &invoker.Stub{Delay: 30 * time.Millisecond}
	exec, err := New(testProfile(), inv)
	require.NoError(t, err)

	report, err := exec.Execute(ctx, spec)
	require.NoError(t, err)

	assert.Equal(t, datatypes.RunPartial, report.Status)
	assert.Greater(t, report.Succeeded(), 0)
	assert.Greater(t, report.Skipped(), 0)
	assert.Zero(t, report.Failed())

	// Every node is terminal even after cancellation.
	for _, res := range report.Nodes {
		assert.True(t, res.Status.Terminal(), "node %s left in %s", res.NodeID, res.Status)
	}
}

// cancelingInvoker cancels the run from inside the invocation, so the
// worker outcome and ctx.Done() become ready at the same moment.
type cancelingInvoker struct {
	cancel context.CancelFunc
}

func (c *cancelingInvoker) Invoke(ctx context.Context, modelID, instruction string, upstreamOutputs []string) (string, error) {
	c.cancel()
	<-ctx.Done()
	return "", ctx.Err()
}

func TestExecute_InFlightCancellationAlwaysSkips(t *testing.T) {
	// Whichever select branch the scheduler takes first, a node whose
	// invocation died of run cancellation is skipped, never failed.
	for i := 0; i < 25; i++ {
		spec := compileFixture(t, datatypes.PatternSingleDocumentQA, "q", nil)

		ctx, cancel := context.WithCancel(context.Background())
		exec, err := New(testProfile(), &cancelingInvoker{cancel: cancel})
		require.NoError(t, err)

		report, err := exec.Execute(ctx, spec)
		cancel()
		require.NoError(t, err)

		require.Len(t, report.Nodes, 1)
		assert.Equal(t, datatypes.NodeSkipped, report.Nodes[0].Status,
			"iteration %d recorded %s", i, report.Nodes[0].Status)
		assert.Zero(t, report.Failed())
	}
}

func TestExecute_RetriesTransientErrors(t *testing.T) {
	profile := testProfile()
	profile.MaxRetries = 2

	var attempts atomic.Int64
	inv := newRecordingInvoker(0)
	inv.fail = func(instruction string) error {
		if attempts.Add(1) < 3 {
			return fmt.Errorf("%w: try later", invoker.ErrRateLimited)
		}
		return nil
	}

	spec := compileFixture(t, datatypes.PatternSingleDocumentQA, "q", nil)
	exec, err := New(profile, inv)
	require.NoError(t, err)

	report, err := exec.Execute(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, datatypes.RunSucceeded, report.Status)
	assert.Equal(t, 3, report.Nodes[0].Attempts)
}

func TestExecute_PermanentErrorsNotRetried(t *testing.T) {
	profile := testProfile()
	profile.MaxRetries = 3

	inv := newRecordingInvoker(0)
	inv.fail = func(string) error {
		return fmt.Errorf("%w: bad instruction", invoker.ErrRejected)
	}

	spec := compileFixture(t, datatypes.PatternSingleDocumentQA, "q", nil)
	exec, err := New(profile, inv)
	require.NoError(t, err)

	report, err := exec.Execute(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, datatypes.RunFailed, report.Status)
	assert.Equal(t, 1, report.Nodes[0].Attempts)
}

func TestExecute_TimeoutFailsNode(t *testing.T) {
	profile := testProfile()
	profile.Timeouts = map[datatypes.OperationKind]time.Duration{
		datatypes.OpSynthesize: 20 * time.Millisecond,
	}

	spec := compileFixture(t, datatypes.PatternSingleDocumentQA, "q", nil)
	inv := &invoker.Stub{Delay: 200 * time.Millisecond}
	exec, err := New(profile, inv)
	require.NoError(t, err)

	report, err := exec.Execute(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, datatypes.RunFailed, report.Status)
	assert.Contains(t, report.Nodes[0].Error, "timed out")
}

func TestExecute_ReportSinkReceivesReport(t *testing.T) {
	spec := compileFixture(t, datatypes.PatternSingleDocumentQA, "q", []string{"a.pdf"})
	sink := &memorySink{}
	exec, err := New(testProfile(), &invoker.Stub{}, WithReportSink(sink))
	require.NoError(t, err)

	report, err := exec.Execute(context.Background(), spec)
	require.NoError(t, err)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.reports, 1)
	assert.Equal(t, report.WorkflowID, sink.reports[0].WorkflowID)
}

func TestExecute_ObserverStreamsTerminalNodes(t *testing.T) {
	spec := compileFixture(t, datatypes.PatternBatchSummarize,
		"overview", []string{"a.pdf", "b.pdf"})
	require.True(t, spec.Plan.EnableStreaming)

	var mu sync.Mutex
	var seen []string
	exec, err := New(testProfile(), &invoker.Stub{}, WithNodeObserver(func(res datatypes.NodeResult) {
		mu.Lock()
		seen = append(seen, res.NodeID)
		mu.Unlock()
	}))
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), spec)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, len(spec.Nodes))
	// The join depends on every summary, so it must be observed last.
	assert.Equal(t, "synthesize", seen[len(seen)-1])
}

func TestExecute_ObserverSilentWithoutStreaming(t *testing.T) {
	spec := compileFixture(t, datatypes.PatternMultiDocumentCompare,
		"compare", []string{"a.pdf", "b.pdf"})
	require.False(t, spec.Plan.EnableStreaming)

	var count atomic.Int64
	exec, err := New(testProfile(), &invoker.Stub{}, WithNodeObserver(func(datatypes.NodeResult) {
		count.Add(1)
	}))
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), spec)
	require.NoError(t, err)
	assert.Zero(t, count.Load())
}

func TestExecute_CostAccounting(t *testing.T) {
	profile := testProfile()
	spec := compileFixture(t, datatypes.PatternMultiDocumentCompare,
		"compare", []string{"a.pdf", "b.pdf"})

	exec, err := New(profile, &invoker.Stub{})
	require.NoError(t, err)

	report, err := exec.Execute(context.Background(), spec)
	require.NoError(t, err)

	var want float64
	for _, n := range spec.Nodes {
		want += profile.CostUnit(n.Operation)
	}
	assert.InDelta(t, want, report.CostUnits, 1e-9)
	assert.InDelta(t, want*profile.CostPerUnitUSD, report.EstimatedCostUSD, 1e-9)
}

func TestExecute_SameSpecTwice(t *testing.T) {
	// Specs are immutable; a second run gets a fresh result set.
	spec := compileFixture(t, datatypes.PatternBatchSummarize,
		"overview", []string{"a.pdf", "b.pdf"})
	exec, err := New(testProfile(), &invoker.Stub{})
	require.NoError(t, err)

	first, err := exec.Execute(context.Background(), spec)
	require.NoError(t, err)
	second, err := exec.Execute(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, datatypes.RunSucceeded, first.Status)
	assert.Equal(t, datatypes.RunSucceeded, second.Status)
	assert.False(t, second.StartedAt.Before(first.StartedAt))
}
