package scan

import (
	"github.com/dukex/flowgraph/pkg/graph"
)

// ForkScanner visits every node exactly once but resolves a parallel block
// end's parents as sibling forks before anything from earlier parts of the
// flow: all branches are exhausted, then the originating block start is
// emitted once, then the walk continues past it. It keeps an explicit stack
// of currently open forks to pair branches with their start.
//
// A node with more than one parent that is not a block end node is a fatal
// graph-corruption condition. Multi-head invocation is rejected with
// ErrMultipleHeads.
type ForkScanner struct {
	stop    stopSet
	visited map[string]struct{}
	current graph.Node
	forks   []*forkFrame
}

// forkFrame tracks one open fork: the branches still to walk and the start
// node they reconverge on.
type forkFrame struct {
	startID string
	start   graph.Node // set when a branch first reaches it
	pending []graph.Node
}

func NewForkScanner() *ForkScanner {
	return &ForkScanner{}
}

func (s *ForkScanner) reset(heads []graph.Node, stop stopSet) error {
	if len(heads) > 1 {
		return ErrMultipleHeads
	}

	s.stop = stop
	s.visited = make(map[string]struct{})
	s.current = nil
	s.forks = s.forks[:0]

	if len(heads) == 1 && heads[0] != nil && !stop.contains(heads[0].ID()) {
		s.current = heads[0]
	}

	return nil
}

func (s *ForkScanner) next() (graph.Node, error) {
	n := s.current
	if n == nil {
		return nil, nil
	}

	s.visited[n.ID()] = struct{}{}

	following, err := s.advance(n)
	if err != nil {
		return nil, err
	}

	s.current = following

	return n, nil
}

// advance computes the node to visit after n.
func (s *ForkScanner) advance(n graph.Node) (graph.Node, error) {
	if len(n.ParentIDs()) > 1 {
		end, ok := n.(*graph.BlockEndNode)
		if !ok {
			return nil, graph.NewGraphError("ForkScanner", n.ID(), graph.ErrGraphCorrupted)
		}

		frame := &forkFrame{startID: end.StartID()}

		for _, p := range n.Parents() {
			if s.skippable(p) {
				continue
			}

			frame.pending = append(frame.pending, p)
		}

		s.forks = append(s.forks, frame)

		return s.nextBranch(), nil
	}

	parents := n.Parents()
	if len(parents) == 1 {
		p := parents[0]

		if top := s.topFork(); top != nil && p.ID() == top.startID {
			// This branch is exhausted at the fork point. The start only
			// comes out after the last sibling is done.
			top.start = p

			return s.nextBranch(), nil
		}

		if s.skippable(p) {
			return s.nextBranch(), nil
		}

		return p, nil
	}

	return s.nextBranch(), nil
}

// nextBranch pops the next unwalked branch from the innermost open fork,
// unwinding finished forks and emitting each fork's start exactly once.
func (s *ForkScanner) nextBranch() graph.Node {
	for len(s.forks) > 0 {
		top := s.forks[len(s.forks)-1]

		for len(top.pending) > 0 {
			b := top.pending[len(top.pending)-1]
			top.pending = top.pending[:len(top.pending)-1]

			if !s.skippable(b) {
				return b
			}
		}

		s.forks = s.forks[:len(s.forks)-1]

		if top.start != nil && !s.skippable(top.start) {
			return top.start
		}
	}

	return nil
}

func (s *ForkScanner) topFork() *forkFrame {
	if len(s.forks) == 0 {
		return nil
	}

	return s.forks[len(s.forks)-1]
}

func (s *ForkScanner) skippable(n graph.Node) bool {
	if s.stop.contains(n.ID()) {
		return true
	}

	_, seen := s.visited[n.ID()]

	return seen
}

func (s *ForkScanner) FindFirstMatch(heads, stopNodes []graph.Node, match Predicate) (graph.Node, error) {
	return findFirstMatch(s, heads, stopNodes, match)
}

func (s *ForkScanner) FilteredNodes(heads, stopNodes []graph.Node, match Predicate) ([]graph.Node, error) {
	return filteredNodes(s, heads, stopNodes, match)
}

func (s *ForkScanner) VisitAll(heads, stopNodes []graph.Node, visit Visitor) error {
	return visitAll(s, heads, stopNodes, visit)
}
