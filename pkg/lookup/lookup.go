// Package lookup maintains derived block relationships over the execution
// graph: the end node matching a block start and the nearest enclosing block
// of any node. Both are kept warm incrementally as nodes are appended and
// fall back to a bounded scan on cache miss.
package lookup

import (
	"iter"
	"sync"

	"github.com/dukex/flowgraph/pkg/graph"
	"github.com/dukex/flowgraph/pkg/log"
	"github.com/dukex/flowgraph/pkg/scan"
)

var logger = log.WithModule("lookup")

// entry is a tagged cache value: it distinguishes "computed as absent or
// still open" from "not yet computed", which is plain map absence.
type entry struct {
	id     string
	absent bool
}

func found(id string) entry { return entry{id: id} }

func none() entry { return entry{absent: true} }

// View answers block-structure queries in amortized O(1). It is warmed by
// OnNewHead, invoked once per appended node, and is safe for concurrent
// readers against the single appending writer.
type View struct {
	exec graph.Execution

	mu        sync.RWMutex
	ends      map[string]entry // block start id -> matching end id, none() while open
	enclosing map[string]entry // node id -> nearest enclosing block start id
}

// NewView creates a lookup view over the execution and registers it for
// new-node notifications.
func NewView(exec graph.Execution) *View {
	v := &View{
		exec:      exec,
		ends:      make(map[string]entry),
		enclosing: make(map[string]entry),
	}

	exec.AddListener(v)

	return v
}

// OnNewHead records derived facts for a freshly appended node. It sits in
// the append path, so every branch here is O(1).
func (v *View) OnNewHead(n graph.Node) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if end, ok := n.(*graph.BlockEndNode); ok {
		v.ends[end.StartID()] = found(end.ID())

		// The end node sits at the same nesting level as its start.
		if e, ok := v.enclosing[end.StartID()]; ok {
			v.enclosing[end.ID()] = e
		}

		return
	}

	if _, ok := n.(*graph.BlockStartNode); ok {
		v.ends[n.ID()] = none()
	}

	parentIDs := n.ParentIDs()
	if len(parentIDs) == 0 {
		// The unique root is enclosed by nothing.
		v.enclosing[n.ID()] = none()

		return
	}

	parent, err := v.exec.Node(parentIDs[0])
	if err != nil {
		logger.Warn("Failed to resolve parent while caching enclosing block",
			"node_id", n.ID(), "parent_id", parentIDs[0], "error", err)

		return
	}

	switch p := parent.(type) {
	case *graph.BlockStartNode:
		v.enclosing[n.ID()] = found(p.ID())
	case *graph.BlockEndNode:
		// A closed block just before us does not enclose us; whatever
		// encloses its start encloses us too.
		if e, ok := v.enclosing[p.StartID()]; ok {
			v.enclosing[n.ID()] = e
		}
	default:
		if e, ok := v.enclosing[p.ID()]; ok {
			v.enclosing[n.ID()] = e
		}
	}
}

// EndNode returns the block end matching the given start, or nil while the
// block is still open.
func (v *View) EndNode(start *graph.BlockStartNode) (*graph.BlockEndNode, error) {
	v.mu.RLock()
	e, ok := v.ends[start.ID()]
	v.mu.RUnlock()

	if ok {
		if e.absent {
			return nil, nil
		}

		return v.endByID(e.id)
	}

	return v.bruteForceEnd(start)
}

func (v *View) endByID(id string) (*graph.BlockEndNode, error) {
	n, err := v.exec.Node(id)
	if err != nil {
		return nil, graph.NewGraphError("EndNode", id, err)
	}

	end, ok := n.(*graph.BlockEndNode)
	if !ok {
		return nil, graph.NewGraphError("EndNode", id, graph.ErrGraphCorrupted)
	}

	return end, nil
}

// bruteForceEnd scans depth-first from the current frontier toward the
// start, recording every start/end pairing seen so repeat misses do not
// recur. Queries against nodes older than the view land here.
func (v *View) bruteForceEnd(start *graph.BlockStartNode) (*graph.BlockEndNode, error) {
	var match *graph.BlockEndNode

	scanner := scan.NewDepthFirstScanner()

	err := scanner.VisitAll(v.exec.CurrentHeads(), nil, func(n graph.Node) bool {
		if end, ok := n.(*graph.BlockEndNode); ok {
			v.mu.Lock()
			v.ends[end.StartID()] = found(end.ID())
			v.mu.Unlock()

			if end.StartID() == start.ID() {
				match = end

				return false
			}
		}

		// The start itself is the lower bound: past it the end cannot
		// appear.
		return n.ID() != start.ID()
	})
	if err != nil {
		return nil, err
	}

	if match == nil {
		v.mu.Lock()
		if _, ok := v.ends[start.ID()]; !ok {
			v.ends[start.ID()] = none()
		}
		v.mu.Unlock()

		return nil, nil
	}

	return match, nil
}

// IsActive reports whether the node is part of the currently unfinished
// graph: a plain node while it is a head, a block start while its end does
// not yet exist, the terminal flow end never.
func (v *View) IsActive(n graph.Node) (bool, error) {
	switch nn := n.(type) {
	case *graph.FlowEndNode:
		return false, nil
	case *graph.FlowStartNode:
		return !v.exec.IsComplete(), nil
	case *graph.BlockStartNode:
		if v.exec.IsComplete() {
			return false, nil
		}

		end, err := v.EndNode(nn)
		if err != nil {
			return false, err
		}

		return end == nil, nil
	default:
		return v.exec.IsCurrentHead(n), nil
	}
}

// FindEnclosingBlockStart returns the nearest enclosing block start of the
// node, or nil for the root, the terminal node, and top-level nodes.
func (v *View) FindEnclosingBlockStart(n graph.Node) (*graph.BlockStartNode, error) {
	switch n.(type) {
	case *graph.FlowStartNode, *graph.FlowEndNode:
		return nil, nil
	}

	v.mu.RLock()
	e, ok := v.enclosing[n.ID()]
	v.mu.RUnlock()

	if ok {
		if e.absent {
			return nil, nil
		}

		return v.startByID(e.id)
	}

	return v.bruteForceEnclosing(n)
}

func (v *View) startByID(id string) (*graph.BlockStartNode, error) {
	resolved, err := v.exec.Node(id)
	if err != nil {
		return nil, graph.NewGraphError("FindEnclosingBlockStart", id, err)
	}

	start, ok := resolved.(*graph.BlockStartNode)
	if !ok {
		return nil, graph.NewGraphError("FindEnclosingBlockStart", id, graph.ErrGraphCorrupted)
	}

	return start, nil
}

// bruteForceEnclosing climbs first-parent ancestry hopping over closed
// blocks until a block start on the same nesting level appears. Every node
// walked shares that answer, so the cache is populated for all of them.
func (v *View) bruteForceEnclosing(n graph.Node) (*graph.BlockStartNode, error) {
	walked := []string{n.ID()}
	current := n

	for {
		// An end node is enclosed by whatever encloses its start; hop over
		// the whole block before looking at parents.
		if end, ok := current.(*graph.BlockEndNode); ok {
			start, err := end.StartNode()
			if err != nil {
				return nil, err
			}

			current = start
			walked = append(walked, start.ID())

			continue
		}

		if _, ok := current.(*graph.FlowStartNode); ok {
			v.rememberEnclosing(walked, none())

			return nil, nil
		}

		parents := current.Parents()
		if len(parents) == 0 {
			// Transient resolution failure; leave the cache cold so a later
			// query can retry.
			return nil, nil
		}

		parent := parents[0]

		if start, ok := parent.(*graph.BlockStartNode); ok {
			v.rememberEnclosing(walked, found(start.ID()))

			return start, nil
		}

		current = parent
		walked = append(walked, parent.ID())
	}
}

func (v *View) rememberEnclosing(ids []string, e entry) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, id := range ids {
		v.enclosing[id] = e
	}
}

// FindAllEnclosingBlockStarts returns the full chain of enclosing blocks,
// innermost first. Callers that may stop early should prefer
// EnclosingBlocks.
func (v *View) FindAllEnclosingBlockStarts(n graph.Node) ([]*graph.BlockStartNode, error) {
	var chain []*graph.BlockStartNode

	for start, err := range v.EnclosingBlocks(n) {
		if err != nil {
			return nil, err
		}

		chain = append(chain, start)
	}

	return chain, nil
}

// EnclosingBlocks lazily yields the enclosing block starts of the node,
// innermost first.
func (v *View) EnclosingBlocks(n graph.Node) iter.Seq2[*graph.BlockStartNode, error] {
	return func(yield func(*graph.BlockStartNode, error) bool) {
		current := n

		for {
			start, err := v.FindEnclosingBlockStart(current)
			if err != nil {
				yield(nil, err)

				return
			}

			if start == nil {
				return
			}

			if !yield(start, nil) {
				return
			}

			current = start
		}
	}
}
