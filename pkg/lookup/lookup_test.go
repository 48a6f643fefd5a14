package lookup

import (
	"testing"

	"github.com/dukex/flowgraph/pkg/graph"
	"github.com/dukex/flowgraph/pkg/recorder"
	"github.com/dukex/flowgraph/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoBlocksNoEnclosing(t *testing.T) {
	rec := recorder.New("linear")
	view := NewView(rec)

	a, err := rec.AddStep(rec.FlowStart(), "A")
	require.NoError(t, err)

	b, err := rec.AddStep(a, "B")
	require.NoError(t, err)

	_, err = rec.Finish("End")
	require.NoError(t, err)

	start, err := view.FindEnclosingBlockStart(b)
	require.NoError(t, err)
	assert.Nil(t, start)

	chain, err := view.FindAllEnclosingBlockStarts(b)
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestClosedBlock(t *testing.T) {
	rec := recorder.New("block")
	view := NewView(rec)

	s, err := rec.StartBlock(rec.FlowStart(), "S")
	require.NoError(t, err)

	a, err := rec.AddStep(s, "A")
	require.NoError(t, err)

	e, err := rec.EndBlock(s, "E", a)
	require.NoError(t, err)

	_, err = rec.Finish("End")
	require.NoError(t, err)

	end, err := view.EndNode(s)
	require.NoError(t, err)
	require.NotNil(t, end)
	assert.Equal(t, e.ID(), end.ID())

	enclosing, err := view.FindEnclosingBlockStart(a)
	require.NoError(t, err)
	require.NotNil(t, enclosing)
	assert.Equal(t, s.ID(), enclosing.ID())

	active, err := view.IsActive(s)
	require.NoError(t, err)
	assert.False(t, active, "block is not active once its end exists")
}

func TestOpenBlock(t *testing.T) {
	rec := recorder.New("block")
	view := NewView(rec)

	s, err := rec.StartBlock(rec.FlowStart(), "S")
	require.NoError(t, err)

	a, err := rec.AddStep(s, "A")
	require.NoError(t, err)

	end, err := view.EndNode(s)
	require.NoError(t, err)
	assert.Nil(t, end, "open block has no end yet")

	active, err := view.IsActive(s)
	require.NoError(t, err)
	assert.True(t, active)

	activeStep, err := view.IsActive(a)
	require.NoError(t, err)
	assert.True(t, activeStep, "frontier node is active")
}

func TestEnclosingChainInnermostFirst(t *testing.T) {
	rec := recorder.New("nested")
	view := NewView(rec)

	outer, err := rec.StartBlock(rec.FlowStart(), "outer")
	require.NoError(t, err)

	inner, err := rec.StartBlock(outer, "inner")
	require.NoError(t, err)

	step, err := rec.AddStep(inner, "work")
	require.NoError(t, err)

	chain, err := view.FindAllEnclosingBlockStarts(step)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, inner.ID(), chain[0].ID())
	assert.Equal(t, outer.ID(), chain[1].ID())
}

func TestEnclosingBlocksLazyIteration(t *testing.T) {
	rec := recorder.New("nested")
	view := NewView(rec)

	outer, err := rec.StartBlock(rec.FlowStart(), "outer")
	require.NoError(t, err)

	inner, err := rec.StartBlock(outer, "inner")
	require.NoError(t, err)

	step, err := rec.AddStep(inner, "work")
	require.NoError(t, err)

	var first *graph.BlockStartNode

	for start, err := range view.EnclosingBlocks(step) {
		require.NoError(t, err)
		first = start

		break
	}

	require.NotNil(t, first)
	assert.Equal(t, inner.ID(), first.ID())
}

func TestRootAndTerminalNeverEnclosed(t *testing.T) {
	flow := testutil.BuildBlockFlow(t, true)
	view := NewView(flow.Rec)

	start, err := view.FindEnclosingBlockStart(flow.Start)
	require.NoError(t, err)
	assert.Nil(t, start)

	start, err = view.FindEnclosingBlockStart(flow.End)
	require.NoError(t, err)
	assert.Nil(t, start)
}

func TestEndNodeEnclosedLikeItsStart(t *testing.T) {
	rec := recorder.New("nested")
	view := NewView(rec)

	outer, err := rec.StartBlock(rec.FlowStart(), "outer")
	require.NoError(t, err)

	inner, err := rec.StartBlock(outer, "inner")
	require.NoError(t, err)

	step, err := rec.AddStep(inner, "work")
	require.NoError(t, err)

	innerEnd, err := rec.EndBlock(inner, "inner-end", step)
	require.NoError(t, err)

	enclosing, err := view.FindEnclosingBlockStart(innerEnd)
	require.NoError(t, err)
	require.NotNil(t, enclosing)
	assert.Equal(t, outer.ID(), enclosing.ID(), "an end node sits at its start's nesting level")
}

func TestColdCacheFallsBackToBruteForce(t *testing.T) {
	// Build the whole graph before the view exists, so nothing was cached
	// via listener callbacks.
	flow := testutil.BuildBlockFlow(t, true)
	view := NewView(flow.Rec)

	assert.Empty(t, view.ends, "cache starts cold")

	end, err := view.EndNode(flow.S)
	require.NoError(t, err)
	require.NotNil(t, end)
	assert.Equal(t, flow.E.ID(), end.ID())

	// The brute-force pass populated the cache for everything it saw.
	cached, ok := view.ends[flow.S.ID()]
	require.True(t, ok)
	assert.Equal(t, flow.E.ID(), cached.id)

	enclosing, err := view.FindEnclosingBlockStart(flow.A)
	require.NoError(t, err)
	require.NotNil(t, enclosing)
	assert.Equal(t, flow.S.ID(), enclosing.ID())

	_, ok = view.enclosing[flow.A.ID()]
	assert.True(t, ok, "climb cached the enclosing answer")
}

// countingExecution counts frontier reads so a brute-force scan is
// distinguishable from a cache hit. With headsOff set the frontier reads
// empty, starving any scan that wrongly starts.
type countingExecution struct {
	graph.Execution

	nodeCalls int
	headCalls int
	headsOff  bool
}

func (c *countingExecution) Node(id string) (graph.Node, error) {
	c.nodeCalls++

	return c.Execution.Node(id)
}

func (c *countingExecution) CurrentHeads() []graph.Node {
	c.headCalls++

	if c.headsOff {
		return nil
	}

	return c.Execution.CurrentHeads()
}

func TestCacheHitPerformsNoTraversal(t *testing.T) {
	flow := testutil.BuildBlockFlow(t, true)
	exec := &countingExecution{Execution: flow.Rec}
	view := NewView(exec)

	// The view registered after the history was written, so the first
	// lookup must brute-force from the frontier.
	first, err := view.EndNode(flow.S)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.Equal(t, 1, exec.headCalls)

	// Second lookup is served from the cache: the identical node comes
	// back with no frontier read, even with the frontier unreachable.
	exec.headsOff = true

	second, err := view.EndNode(flow.S)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, exec.headCalls, "cache hit must not rescan")
}

func TestOpenBlockSentinelDistinctFromUncomputed(t *testing.T) {
	flow := testutil.BuildBlockFlow(t, false)
	view := NewView(flow.Rec)

	end, err := view.EndNode(flow.S)
	require.NoError(t, err)
	assert.Nil(t, end)

	// "Computed as open" is cached as a tagged sentinel, not plain
	// absence.
	cached, ok := view.ends[flow.S.ID()]
	require.True(t, ok)
	assert.True(t, cached.absent)
}

func TestOnNewHeadKeepsCacheWarm(t *testing.T) {
	rec := recorder.New("warm")
	view := NewView(rec)

	s, err := rec.StartBlock(rec.FlowStart(), "S")
	require.NoError(t, err)

	a, err := rec.AddStep(s, "A")
	require.NoError(t, err)

	_, err = rec.EndBlock(s, "E", a)
	require.NoError(t, err)

	// Everything was derived in O(1) from listener callbacks.
	assert.Contains(t, view.ends, s.ID())
	assert.Contains(t, view.enclosing, a.ID())
}

func TestParallelBranchEnclosing(t *testing.T) {
	flow := testutil.BuildParallelFlow(t, true)
	view := NewView(flow.Rec)

	enclosing, err := view.FindEnclosingBlockStart(flow.B2)
	require.NoError(t, err)
	require.NotNil(t, enclosing)
	assert.Equal(t, flow.P.ID(), enclosing.ID())

	end, err := view.EndNode(flow.P)
	require.NoError(t, err)
	require.NotNil(t, end)
	assert.Equal(t, flow.J.ID(), end.ID())
}
