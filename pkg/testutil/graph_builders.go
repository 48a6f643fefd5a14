// Package testutil provides recorded-execution builders for testing.
package testutil

import (
	"testing"

	"github.com/dukex/flowgraph/pkg/graph"
	"github.com/dukex/flowgraph/pkg/recorder"
	"github.com/stretchr/testify/require"
)

// LinearFlow is Start -> A -> B -> End with no blocks.
type LinearFlow struct {
	Rec   *recorder.Recorder
	Start graph.Node
	A     *graph.StepNode
	B     *graph.StepNode
	End   *graph.FlowEndNode
}

func BuildLinearFlow(t *testing.T) *LinearFlow {
	t.Helper()

	rec := recorder.New("linear")
	flow := &LinearFlow{Rec: rec, Start: rec.FlowStart()}

	var err error

	flow.A, err = rec.AddStep(flow.Start, "A")
	require.NoError(t, err)

	flow.B, err = rec.AddStep(flow.A, "B")
	require.NoError(t, err)

	flow.End, err = rec.Finish("End")
	require.NoError(t, err)

	return flow
}

// BlockFlow is Start -> S -> A -> E -> End, a block S..E wrapping step A.
// With complete=false the block stays open and the frontier is {A}.
type BlockFlow struct {
	Rec   *recorder.Recorder
	Start graph.Node
	S     *graph.BlockStartNode
	A     *graph.StepNode
	E     *graph.BlockEndNode
	End   *graph.FlowEndNode
}

func BuildBlockFlow(t *testing.T, complete bool) *BlockFlow {
	t.Helper()

	rec := recorder.New("block")
	flow := &BlockFlow{Rec: rec, Start: rec.FlowStart()}

	var err error

	flow.S, err = rec.StartBlock(flow.Start, "S")
	require.NoError(t, err)

	flow.A, err = rec.AddStep(flow.S, "A")
	require.NoError(t, err)

	if !complete {
		return flow
	}

	flow.E, err = rec.EndBlock(flow.S, "E", flow.A)
	require.NoError(t, err)

	flow.End, err = rec.Finish("End")
	require.NoError(t, err)

	return flow
}

// ParallelFlow is Start -> P -> (B1 | B2) -> J, a parallel block with two
// single-node branches joined by J with parents [B1, B2].
type ParallelFlow struct {
	Rec   *recorder.Recorder
	Start graph.Node
	P     *graph.BlockStartNode
	B1    *graph.StepNode
	B2    *graph.StepNode
	J     *graph.BlockEndNode
	End   *graph.FlowEndNode
}

func BuildParallelFlow(t *testing.T, complete bool) *ParallelFlow {
	t.Helper()

	rec := recorder.New("parallel")
	flow := &ParallelFlow{Rec: rec, Start: rec.FlowStart()}

	var err error

	flow.P, err = rec.StartBlock(flow.Start, "P")
	require.NoError(t, err)

	flow.B1, err = rec.AddStep(flow.P, "B1")
	require.NoError(t, err)

	flow.B2, err = rec.AddStep(flow.P, "B2")
	require.NoError(t, err)

	flow.J, err = rec.EndBlock(flow.P, "J", flow.B1, flow.B2)
	require.NoError(t, err)

	if complete {
		flow.End, err = rec.Finish("End")
		require.NoError(t, err)
	}

	return flow
}

// IDs maps nodes to their identifiers, preserving order.
func IDs(nodes []graph.Node) []string {
	ids := make([]string, 0, len(nodes))

	for _, n := range nodes {
		ids = append(ids, n.ID())
	}

	return ids
}

// Names maps nodes to their display names, preserving order.
func Names(nodes []graph.Node) []string {
	names := make([]string, 0, len(nodes))

	for _, n := range nodes {
		names = append(names, n.DisplayName())
	}

	return names
}
