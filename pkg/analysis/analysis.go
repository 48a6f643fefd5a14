// Package analysis provides a generic memoizing wrapper over graph scans for
// callers that poll repeatedly, such as "what is the most recent stage name
// relative to the current heads". Repeat queries only pay for the part of
// the graph appended since the previous one.
package analysis

import (
	"sync"

	"github.com/dukex/flowgraph/pkg/graph"
	"github.com/dukex/flowgraph/pkg/log"
	"github.com/dukex/flowgraph/pkg/scan"
)

var logger = log.WithModule("analysis")

// Extractor derives the analysis value from the node the predicate
// selected. Returning false means the node carried no usable value.
type Extractor[T any] func(n graph.Node) (T, bool)

// Analyzer memoizes one predicate/extractor pair against one execution. It
// remembers the frontier it last computed against; while the frontier has
// not advanced, queries return the cached value with no traversal at all,
// and when it has, only the newly appended delta is walked. Analyses with
// different predicate/extractor pairs need independent Analyzer instances,
// keyed externally per execution.
type Analyzer[T any] struct {
	match   scan.Predicate
	extract Extractor[T]

	mu        sync.Mutex
	lastHeads map[string]struct{}
	value     T
	ok        bool
}

func NewAnalyzer[T any](match scan.Predicate, extract Extractor[T]) *Analyzer[T] {
	return &Analyzer[T]{
		match:   match,
		extract: extract,
	}
}

// Value returns the analysis value relative to the execution's current
// frontier. The second return is false while no matching node has ever been
// observed.
func (a *Analyzer[T]) Value(exec graph.Execution) (T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	heads := exec.CurrentHeads()
	headIDs := make(map[string]struct{}, len(heads))

	for _, h := range heads {
		headIDs[h.ID()] = struct{}{}
	}

	if a.lastHeads != nil && sameIDSet(a.lastHeads, headIDs) {
		return a.value, a.ok
	}

	// Only the delta since the previous frontier needs walking: the old
	// heads are the stop set.
	stop := make([]graph.Node, 0, len(a.lastHeads))

	for id := range a.lastHeads {
		n, err := exec.Node(id)
		if err != nil {
			logger.Warn("Failed to resolve previous head, dropping from stop set",
				"node_id", id, "error", err)

			continue
		}

		stop = append(stop, n)
	}

	scanner := scan.NewBlockHoppingScanner()

	match, err := scanner.FindFirstMatch(heads, stop, a.match)
	if err != nil {
		logger.Warn("Analysis scan failed, keeping previous value", "error", err)

		return a.value, a.ok
	}

	if match != nil {
		if value, ok := a.extract(match); ok {
			a.value = value
			a.ok = true
		}
	}

	a.lastHeads = headIDs

	return a.value, a.ok
}

func sameIDSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}

	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}

	return true
}

// NewStageNameAnalyzer answers the most recent stage name relative to the
// execution's current heads.
func NewStageNameAnalyzer() *Analyzer[string] {
	return NewAnalyzer(scan.HasStage, func(n graph.Node) (string, bool) {
		for _, a := range n.Actions() {
			if stage, ok := a.(graph.StageAction); ok {
				return stage.Name, true
			}
		}

		return "", false
	})
}
