package scan

import (
	"github.com/dukex/flowgraph/pkg/graph"
)

// LinearScanner follows only the first parent at every step, never crossing
// into a parallel fork's other branches. Useful when only one ancestry path
// matters, such as what ran immediately before a node on its own branch.
//
// With multiple heads, only the first is walked.
type LinearScanner struct {
	stop    stopSet
	current graph.Node
}

func NewLinearScanner() *LinearScanner {
	return &LinearScanner{}
}

func (s *LinearScanner) reset(heads []graph.Node, stop stopSet) error {
	s.stop = stop
	s.current = nil

	if len(heads) > 0 && heads[0] != nil && !stop.contains(heads[0].ID()) {
		s.current = heads[0]
	}

	return nil
}

func (s *LinearScanner) next() (graph.Node, error) {
	n := s.current
	if n == nil {
		return nil, nil
	}

	s.current = nil

	if parents := n.Parents(); len(parents) > 0 && !s.stop.contains(parents[0].ID()) {
		s.current = parents[0]
	}

	return n, nil
}

func (s *LinearScanner) FindFirstMatch(heads, stopNodes []graph.Node, match Predicate) (graph.Node, error) {
	return findFirstMatch(s, heads, stopNodes, match)
}

func (s *LinearScanner) FilteredNodes(heads, stopNodes []graph.Node, match Predicate) ([]graph.Node, error) {
	return filteredNodes(s, heads, stopNodes, match)
}

func (s *LinearScanner) VisitAll(heads, stopNodes []graph.Node, visit Visitor) error {
	return visitAll(s, heads, stopNodes, visit)
}

// BlockHoppingScanner is a linear scanner that, upon encountering a block
// end node, substitutes its matching start and continues from there, jumping
// over the block's entire interior. A scan that begins on the terminal node
// of a just-completed block jumps that whole block the same way.
type BlockHoppingScanner struct {
	stop    stopSet
	current graph.Node
}

func NewBlockHoppingScanner() *BlockHoppingScanner {
	return &BlockHoppingScanner{}
}

func (s *BlockHoppingScanner) reset(heads []graph.Node, stop stopSet) error {
	s.stop = stop
	s.current = nil

	if len(heads) == 0 || heads[0] == nil {
		return nil
	}

	first, err := s.hop(heads[0])
	if err != nil {
		return err
	}

	s.current = first

	return nil
}

// hop resolves chains of block ends to the start of the outermost hopped
// block. Returns nil when the jump lands on a stop node.
func (s *BlockHoppingScanner) hop(n graph.Node) (graph.Node, error) {
	for n != nil {
		if s.stop.contains(n.ID()) {
			return nil, nil
		}

		end, ok := n.(*graph.BlockEndNode)
		if !ok {
			return n, nil
		}

		start, err := end.StartNode()
		if err != nil {
			return nil, err
		}

		n = start
	}

	return nil, nil
}

func (s *BlockHoppingScanner) next() (graph.Node, error) {
	n := s.current
	if n == nil {
		return nil, nil
	}

	s.current = nil

	if parents := n.Parents(); len(parents) > 0 {
		hopped, err := s.hop(parents[0])
		if err != nil {
			return nil, err
		}

		s.current = hopped
	}

	return n, nil
}

func (s *BlockHoppingScanner) FindFirstMatch(heads, stopNodes []graph.Node, match Predicate) (graph.Node, error) {
	return findFirstMatch(s, heads, stopNodes, match)
}

func (s *BlockHoppingScanner) FilteredNodes(heads, stopNodes []graph.Node, match Predicate) ([]graph.Node, error) {
	return filteredNodes(s, heads, stopNodes, match)
}

func (s *BlockHoppingScanner) VisitAll(heads, stopNodes []graph.Node, visit Visitor) error {
	return visitAll(s, heads, stopNodes, visit)
}
