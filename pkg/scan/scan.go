// Package scan provides backward-traversal strategies over the execution
// history graph: visit nodes from a frontier toward the root, optionally
// filtered and bounded by stop nodes.
package scan

import (
	"errors"

	"github.com/dukex/flowgraph/pkg/graph"
)

// ErrMultipleHeads indicates a scanner that only supports a single frontier
// node was invoked with more than one head.
var ErrMultipleHeads = errors.New("scanner cannot handle multiple head nodes")

// Predicate decides whether a visited node is a match.
type Predicate func(n graph.Node) bool

// Visitor receives every visited node; returning false stops the scan.
type Visitor func(n graph.Node) bool

// Scanner walks the graph backward from a set of frontier nodes. Stop nodes
// are an inclusive lower bound: the scan never visits them or anything past
// them. An empty frontier yields an empty result without error.
//
// A Scanner instance is reusable across scans but not safe for concurrent
// use; each call reinitializes its internal state.
type Scanner interface {
	// FindFirstMatch returns the first node matching the predicate, walking
	// backward from the frontier, or nil if there is none.
	FindFirstMatch(heads []graph.Node, stopNodes []graph.Node, match Predicate) (graph.Node, error)

	// FilteredNodes returns every matching node in visit order.
	FilteredNodes(heads []graph.Node, stopNodes []graph.Node, match Predicate) ([]graph.Node, error)

	// VisitAll feeds every reachable node to the visitor until it returns
	// false or the scan is exhausted.
	VisitAll(heads []graph.Node, stopNodes []graph.Node, visit Visitor) error
}

// walker is the per-strategy stepping contract the shared drivers run on.
type walker interface {
	reset(heads []graph.Node, stop stopSet) error
	next() (graph.Node, error)
}

func findFirstMatch(w walker, heads, stopNodes []graph.Node, match Predicate) (graph.Node, error) {
	if len(heads) == 0 {
		return nil, nil
	}

	if err := w.reset(heads, newStopSet(stopNodes)); err != nil {
		return nil, err
	}

	for {
		n, err := w.next()
		if err != nil {
			return nil, err
		}

		if n == nil {
			return nil, nil
		}

		if match == nil || match(n) {
			return n, nil
		}
	}
}

func filteredNodes(w walker, heads, stopNodes []graph.Node, match Predicate) ([]graph.Node, error) {
	if len(heads) == 0 {
		return nil, nil
	}

	if err := w.reset(heads, newStopSet(stopNodes)); err != nil {
		return nil, err
	}

	var matches []graph.Node

	for {
		n, err := w.next()
		if err != nil {
			return nil, err
		}

		if n == nil {
			return matches, nil
		}

		if match == nil || match(n) {
			matches = append(matches, n)
		}
	}
}

func visitAll(w walker, heads, stopNodes []graph.Node, visit Visitor) error {
	if len(heads) == 0 {
		return nil
	}

	if err := w.reset(heads, newStopSet(stopNodes)); err != nil {
		return err
	}

	for {
		n, err := w.next()
		if err != nil {
			return err
		}

		if n == nil {
			return nil
		}

		if !visit(n) {
			return nil
		}
	}
}

// stopSet is a fast-membership view of the stop-node set, built once per
// scan since membership is checked on every visited node.
type stopSet struct {
	single string
	many   map[string]struct{}
}

func newStopSet(nodes []graph.Node) stopSet {
	switch len(nodes) {
	case 0:
		return stopSet{}
	case 1:
		return stopSet{single: nodes[0].ID()}
	default:
		many := make(map[string]struct{}, len(nodes))
		for _, n := range nodes {
			many[n.ID()] = struct{}{}
		}

		return stopSet{many: many}
	}
}

func (s stopSet) contains(id string) bool {
	if s.many != nil {
		_, ok := s.many[id]

		return ok
	}

	return s.single != "" && s.single == id
}

// Common predicates.

// IsBlockStart matches block start nodes.
func IsBlockStart(n graph.Node) bool {
	_, ok := n.(*graph.BlockStartNode)

	return ok
}

// IsBlockEnd matches block end nodes.
func IsBlockEnd(n graph.Node) bool {
	_, ok := n.(*graph.BlockEndNode)

	return ok
}

// HasStage matches nodes carrying a stage marker action.
func HasStage(n graph.Node) bool {
	for _, a := range n.Actions() {
		if _, ok := a.(graph.StageAction); ok {
			return true
		}
	}

	return false
}

// ByDisplayName matches nodes with the given display name.
func ByDisplayName(name string) Predicate {
	return func(n graph.Node) bool {
		return n.DisplayName() == name
	}
}
