package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExecution is a minimal in-test execution collaborator.
type stubExecution struct {
	nodes    map[string]Node
	heads    map[string]bool
	complete bool
	failing  map[string]bool
	ends     map[string]string
}

func newStubExecution() *stubExecution {
	return &stubExecution{
		nodes:   make(map[string]Node),
		heads:   make(map[string]bool),
		failing: make(map[string]bool),
		ends:    make(map[string]string),
	}
}

func (s *stubExecution) add(n Node) Node {
	s.nodes[n.ID()] = n

	return n
}

func (s *stubExecution) Node(id string) (Node, error) {
	if s.failing[id] {
		return nil, NewGraphError("Node", id, ErrNodeNotFound)
	}

	n, ok := s.nodes[id]
	if !ok {
		return nil, NewGraphError("Node", id, ErrNodeNotFound)
	}

	return n, nil
}

func (s *stubExecution) CurrentHeads() []Node {
	var heads []Node

	for id := range s.heads {
		heads = append(heads, s.nodes[id])
	}

	return heads
}

func (s *stubExecution) IsCurrentHead(n Node) bool { return s.heads[n.ID()] }

func (s *stubExecution) IsComplete() bool { return s.complete }

func (s *stubExecution) AddListener(_ GraphListener) {}

func (s *stubExecution) BlockEndID(startID string) (string, bool) {
	id, ok := s.ends[startID]

	return id, ok
}

func TestSameNode(t *testing.T) {
	exec := newStubExecution()
	root := NewFlowStartNode(exec, "1", "Start")
	a := NewStepNode(exec, "2", "A", "1")
	aAgain := NewStepNode(exec, "2", "A", "1")

	assert.True(t, SameNode(a, aAgain))
	assert.False(t, SameNode(a, root))
	assert.True(t, SameNode(nil, nil))
	assert.False(t, SameNode(a, nil))
}

func TestParentsResolvesLazily(t *testing.T) {
	exec := newStubExecution()
	root := exec.add(NewFlowStartNode(exec, "1", "Start"))
	step := NewStepNode(exec, "2", "A", "1")

	parents := step.Parents()
	require.Len(t, parents, 1)
	assert.True(t, SameNode(root, parents[0]))

	assert.Empty(t, root.Parents())
}

func TestParentsSkipsFailedLookups(t *testing.T) {
	exec := newStubExecution()
	exec.add(NewFlowStartNode(exec, "1", "Start"))
	exec.failing["1"] = true

	step := NewStepNode(exec, "2", "A", "1")

	// A storage failure resolving a parent must not crash the caller; the
	// failing parent is simply missing from the result.
	assert.Empty(t, step.Parents())
	assert.Equal(t, []string{"1"}, step.ParentIDs())

	// Once storage is healthy again, resolution succeeds.
	exec.failing["1"] = false
	assert.Len(t, step.Parents(), 1)
}

func TestActionsAppendOnly(t *testing.T) {
	exec := newStubExecution()
	step := NewStepNode(exec, "2", "A", "1")

	step.AppendAction(StatusAction{Status: NodeStatusRunning})
	step.AppendAction(LabelAction{Label: "build"})

	actions := step.Actions()
	require.Len(t, actions, 2)
	assert.Equal(t, "status", actions[0].ActionName())
	assert.Equal(t, "label", actions[1].ActionName())

	// The returned slice is a copy.
	actions[0] = ErrorAction{Message: "boom"}
	assert.Equal(t, "status", step.Actions()[0].ActionName())
}

func TestBlockEndStartNode(t *testing.T) {
	exec := newStubExecution()
	start := exec.add(NewBlockStartNode(exec, "2", "S", "1"))
	end := NewBlockEndNode(exec, "4", "E", []string{"3"}, "2")

	resolved, err := end.StartNode()
	require.NoError(t, err)
	assert.True(t, SameNode(start, resolved))
	assert.Equal(t, "2", end.StartID())
}

func TestBlockEndStartNodeCorruption(t *testing.T) {
	exec := newStubExecution()

	end := NewBlockEndNode(exec, "4", "E", []string{"3"}, "missing")

	_, err := end.StartNode()
	require.Error(t, err)
	assert.True(t, IsGraphCorrupted(err))

	// A start id resolving to the wrong node kind is equally fatal.
	exec.add(NewStepNode(exec, "9", "notablock", "1"))

	wrongKind := NewBlockEndNode(exec, "10", "E2", []string{"3"}, "9")
	_, err = wrongKind.StartNode()
	require.Error(t, err)
	assert.True(t, IsGraphCorrupted(err))
}

func TestActive(t *testing.T) {
	exec := newStubExecution()
	root := exec.add(NewFlowStartNode(exec, "1", "Start"))
	step := exec.add(NewStepNode(exec, "2", "A", "1"))
	exec.heads["2"] = true

	assert.True(t, step.Active())
	assert.True(t, root.Active())

	exec.heads["2"] = false
	assert.False(t, step.Active())

	flowEnd := NewFlowEndNode(exec, "3", "End", []string{"2"})
	exec.add(flowEnd)
	exec.heads["3"] = true
	assert.False(t, flowEnd.Active(), "terminal node is never active")

	exec.complete = true
	assert.False(t, root.Active())
}

func TestBlockStartActiveViaResolver(t *testing.T) {
	exec := newStubExecution()
	start := NewBlockStartNode(exec, "2", "S", "1")
	exec.add(start)

	assert.True(t, start.Active(), "open block is active")

	exec.ends["2"] = "4"
	assert.False(t, start.Active(), "closed block is not active")
}

func TestGraphErrorWrapping(t *testing.T) {
	err := NewGraphError("Parents", "42", ErrNodeNotFound)

	assert.True(t, IsNodeNotFound(err))
	assert.False(t, IsGraphCorrupted(err))
	assert.Contains(t, err.Error(), "42")
	assert.Contains(t, err.Error(), "Parents")
}
