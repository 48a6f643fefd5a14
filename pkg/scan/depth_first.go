package scan

import (
	"github.com/dukex/flowgraph/pkg/graph"
)

// DepthFirstScanner visits every node reachable from the frontier exactly
// once. At each node the first unvisited parent is followed immediately;
// additional parents at a fork join are queued and explored after the
// current chain is exhausted. This walks history diving fully into the most
// recent branch before returning to sibling branches.
type DepthFirstScanner struct {
	stop    stopSet
	visited map[string]struct{}
	current graph.Node
	queue   []graph.Node
}

func NewDepthFirstScanner() *DepthFirstScanner {
	return &DepthFirstScanner{}
}

func (s *DepthFirstScanner) reset(heads []graph.Node, stop stopSet) error {
	s.stop = stop
	s.visited = make(map[string]struct{})
	s.current = nil
	s.queue = s.queue[:0]

	for _, h := range heads {
		if h == nil || stop.contains(h.ID()) {
			continue
		}

		if s.current == nil {
			s.current = h
		} else {
			s.queue = append(s.queue, h)
		}
	}

	return nil
}

func (s *DepthFirstScanner) next() (graph.Node, error) {
	for {
		n := s.current
		s.current = nil

		if n == nil {
			if len(s.queue) == 0 {
				return nil, nil
			}

			n = s.queue[0]
			s.queue = s.queue[1:]
		}

		if _, seen := s.visited[n.ID()]; seen {
			continue
		}

		s.visited[n.ID()] = struct{}{}

		// Stage parents before emitting: the first unvisited one becomes the
		// chain to follow, the rest wait for the chain to exhaust.
		for _, p := range n.Parents() {
			if s.stop.contains(p.ID()) {
				continue
			}

			if _, seen := s.visited[p.ID()]; seen {
				continue
			}

			if s.current == nil {
				s.current = p
			} else {
				s.queue = append(s.queue, p)
			}
		}

		return n, nil
	}
}

func (s *DepthFirstScanner) FindFirstMatch(heads, stopNodes []graph.Node, match Predicate) (graph.Node, error) {
	return findFirstMatch(s, heads, stopNodes, match)
}

func (s *DepthFirstScanner) FilteredNodes(heads, stopNodes []graph.Node, match Predicate) ([]graph.Node, error) {
	return filteredNodes(s, heads, stopNodes, match)
}

func (s *DepthFirstScanner) VisitAll(heads, stopNodes []graph.Node, visit Visitor) error {
	return visitAll(s, heads, stopNodes, visit)
}
