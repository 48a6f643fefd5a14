package persistence

import (
	"github.com/dukex/flowgraph/pkg/graph"
	"github.com/dukex/flowgraph/pkg/scan"
)

// NodeLister is implemented by executions that can enumerate their history
// in append order; the in-memory recorder and loaded dumps both can.
type NodeLister interface {
	AllNodes() []graph.Node
}

// ExecutionIdentifier exposes the execution's stable identifier.
type ExecutionIdentifier interface {
	ExecutionID() string
}

// Snapshot captures an execution as a dump. Sources exposing append order
// are used directly; anything else is collected by a depth-first scan from
// the frontier and ordered parents-first.
func Snapshot(exec graph.Execution) (*ExecutionDump, error) {
	var nodes []graph.Node

	if lister, ok := exec.(NodeLister); ok {
		nodes = lister.AllNodes()
	} else {
		collected, err := collectReachable(exec)
		if err != nil {
			return nil, err
		}

		nodes = collected
	}

	dump := &ExecutionDump{
		Complete: exec.IsComplete(),
	}

	if identified, ok := exec.(ExecutionIdentifier); ok {
		dump.ID = identified.ExecutionID()
	}

	for _, h := range exec.CurrentHeads() {
		dump.HeadIDs = append(dump.HeadIDs, h.ID())
	}

	for _, n := range nodes {
		record := NodeRecord{
			ID:          n.ID(),
			Kind:        kindOf(n),
			DisplayName: n.DisplayName(),
			ParentIDs:   n.ParentIDs(),
		}

		if end, ok := n.(*graph.BlockEndNode); ok {
			record.StartID = end.StartID()
		}

		for _, a := range n.Actions() {
			if actionRecord, ok := recordFromAction(a); ok {
				record.Actions = append(record.Actions, actionRecord)
			}
		}

		dump.Nodes = append(dump.Nodes, record)
	}

	return dump, nil
}

// collectReachable gathers every node reachable from the frontier and
// orders it so parents precede children, as the dump format requires.
func collectReachable(exec graph.Execution) ([]graph.Node, error) {
	scanner := scan.NewDepthFirstScanner()

	var collected []graph.Node

	err := scanner.VisitAll(exec.CurrentHeads(), nil, func(n graph.Node) bool {
		collected = append(collected, n)

		return true
	})
	if err != nil {
		return nil, err
	}

	// Kahn's topological ordering over the collected set.
	pending := make(map[string]int, len(collected))
	children := make(map[string][]graph.Node)

	for _, n := range collected {
		count := 0

		for _, pid := range n.ParentIDs() {
			if _, ok := pending[pid]; ok || containsID(collected, pid) {
				count++

				children[pid] = append(children[pid], n)
			}
		}

		pending[n.ID()] = count
	}

	var ordered []graph.Node

	var ready []graph.Node

	// Seed with roots, scanning in reverse visit order so earlier history
	// tends to come out first.
	for i := len(collected) - 1; i >= 0; i-- {
		if pending[collected[i].ID()] == 0 {
			ready = append(ready, collected[i])
		}
	}

	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		ordered = append(ordered, n)

		for _, child := range children[n.ID()] {
			pending[child.ID()]--

			if pending[child.ID()] == 0 {
				ready = append(ready, child)
			}
		}
	}

	if len(ordered) != len(collected) {
		return nil, &DumpError{Op: "Snapshot", Err: ErrInvalidDump, Message: "graph contains a cycle"}
	}

	return ordered, nil
}

func containsID(nodes []graph.Node, id string) bool {
	for _, n := range nodes {
		if n.ID() == id {
			return true
		}
	}

	return false
}

func kindOf(n graph.Node) string {
	switch n.(type) {
	case *graph.FlowStartNode:
		return KindFlowStart
	case *graph.FlowEndNode:
		return KindFlowEnd
	case *graph.BlockStartNode:
		return KindBlockStart
	case *graph.BlockEndNode:
		return KindBlockEnd
	default:
		return KindStep
	}
}
