package recorder_test

import (
	"testing"

	"github.com/dukex/flowgraph/pkg/graph"
	"github.com/dukex/flowgraph/pkg/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStartsWithRoot(t *testing.T) {
	rec := recorder.New("pipeline")

	root := rec.FlowStart()
	require.NotNil(t, root)
	assert.Empty(t, root.ParentIDs())
	assert.NotEmpty(t, rec.ExecutionID())

	heads := rec.CurrentHeads()
	require.Len(t, heads, 1)
	assert.Equal(t, root.ID(), heads[0].ID())
	assert.False(t, rec.IsComplete())
}

func TestFrontierAdvances(t *testing.T) {
	rec := recorder.New("pipeline")

	a, err := rec.AddStep(rec.FlowStart(), "A")
	require.NoError(t, err)

	heads := rec.CurrentHeads()
	require.Len(t, heads, 1)
	assert.Equal(t, a.ID(), heads[0].ID())
	assert.True(t, rec.IsCurrentHead(a))
	assert.False(t, rec.IsCurrentHead(rec.FlowStart()))
}

func TestParallelFrontier(t *testing.T) {
	rec := recorder.New("pipeline")

	p, err := rec.StartBlock(rec.FlowStart(), "P")
	require.NoError(t, err)

	b1, err := rec.AddStep(p, "B1")
	require.NoError(t, err)

	b2, err := rec.AddStep(p, "B2")
	require.NoError(t, err)

	assert.Len(t, rec.CurrentHeads(), 2)

	j, err := rec.EndBlock(p, "J", b1, b2)
	require.NoError(t, err)

	heads := rec.CurrentHeads()
	require.Len(t, heads, 1)
	assert.Equal(t, j.ID(), heads[0].ID())
	assert.Equal(t, []string{b1.ID(), b2.ID()}, j.ParentIDs())

	endID, closed := rec.BlockEndID(p.ID())
	assert.True(t, closed)
	assert.Equal(t, j.ID(), endID)
}

func TestEndBlockTwiceRejected(t *testing.T) {
	rec := recorder.New("pipeline")

	s, err := rec.StartBlock(rec.FlowStart(), "S")
	require.NoError(t, err)

	a, err := rec.AddStep(s, "A")
	require.NoError(t, err)

	_, err = rec.EndBlock(s, "E", a)
	require.NoError(t, err)

	_, err = rec.EndBlock(s, "E2", a)
	require.ErrorIs(t, err, graph.ErrBlockClosed)
}

func TestAppendAfterFinishRejected(t *testing.T) {
	rec := recorder.New("pipeline")

	end, err := rec.Finish("End")
	require.NoError(t, err)
	assert.True(t, rec.IsComplete())
	assert.False(t, end.Active())

	_, err = rec.AddStep(end, "late")
	require.ErrorIs(t, err, graph.ErrExecutionComplete)

	_, err = rec.Finish("again")
	require.ErrorIs(t, err, graph.ErrExecutionComplete)
}

func TestUnknownParentRejected(t *testing.T) {
	rec := recorder.New("pipeline")
	other := recorder.New("other")

	stray, err := other.AddStep(other.FlowStart(), "stray")
	require.NoError(t, err)

	// Same id space, different execution: the recorder only accepts its
	// own nodes when they actually exist in it.
	_, err = rec.AddStep(graph.NewStepNode(rec, "99", "ghost", stray.ID()), "next")
	require.True(t, graph.IsNodeNotFound(err))
}

func TestNodeLookup(t *testing.T) {
	rec := recorder.New("pipeline")

	a, err := rec.AddStep(rec.FlowStart(), "A")
	require.NoError(t, err)

	got, err := rec.Node(a.ID())
	require.NoError(t, err)
	assert.Same(t, graph.Node(a), got)

	_, err = rec.Node("missing")
	require.True(t, graph.IsNodeNotFound(err))
}

func TestListenersFireSynchronouslyInOrder(t *testing.T) {
	rec := recorder.New("pipeline")

	var seen []string

	rec.AddListener(graph.GraphListenerFunc(func(n graph.Node) {
		seen = append(seen, n.DisplayName())
	}))

	s, err := rec.StartBlock(rec.FlowStart(), "S")
	require.NoError(t, err)

	a, err := rec.AddStep(s, "A")
	require.NoError(t, err)

	_, err = rec.EndBlock(s, "E", a)
	require.NoError(t, err)

	_, err = rec.Finish("End")
	require.NoError(t, err)

	assert.Equal(t, []string{"S", "A", "E", "End"}, seen)
}

func TestAllNodesAppendOrder(t *testing.T) {
	rec := recorder.New("pipeline")

	a, err := rec.AddStep(rec.FlowStart(), "A")
	require.NoError(t, err)

	_, err = rec.AddStep(a, "B")
	require.NoError(t, err)

	nodes := rec.AllNodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, "pipeline", nodes[0].DisplayName())
	assert.Equal(t, "A", nodes[1].DisplayName())
	assert.Equal(t, "B", nodes[2].DisplayName())
}
