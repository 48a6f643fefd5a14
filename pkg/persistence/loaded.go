package persistence

import (
	"github.com/dukex/flowgraph/pkg/graph"
)

// LoadedExecution is a dump materialized as a queryable graph.Execution.
// It is immutable: nothing will ever be appended to it.
type LoadedExecution struct {
	id       string
	complete bool
	nodes    map[string]graph.Node
	order    []string
	heads    []graph.Node
	ends     map[string]string
}

// Materialize builds a LoadedExecution from a validated dump, checking the
// structural rules the schema cannot express: append ordering, parent
// references, block pairing, a single root.
func Materialize(dump *ExecutionDump) (*LoadedExecution, error) {
	if err := ValidateDump(dump); err != nil {
		return nil, err
	}

	exec := &LoadedExecution{
		id:       dump.ID,
		complete: dump.Complete,
		nodes:    make(map[string]graph.Node, len(dump.Nodes)),
		ends:     make(map[string]string),
	}

	rootSeen := false

	for _, record := range dump.Nodes {
		if _, dup := exec.nodes[record.ID]; dup {
			return nil, &DumpError{Op: "Materialize", ExecutionID: dump.ID, Err: ErrInvalidDump,
				Message: "duplicate node id " + record.ID}
		}

		for _, pid := range record.ParentIDs {
			if _, ok := exec.nodes[pid]; !ok {
				return nil, &DumpError{Op: "Materialize", ExecutionID: dump.ID, Err: ErrInvalidDump,
					Message: "node " + record.ID + " references unknown parent " + pid}
			}
		}

		var n graph.Node

		switch record.Kind {
		case KindFlowStart:
			if rootSeen || len(record.ParentIDs) > 0 {
				return nil, &DumpError{Op: "Materialize", ExecutionID: dump.ID, Err: ErrInvalidDump,
					Message: "flow start must be the unique parentless root"}
			}

			rootSeen = true
			n = graph.NewFlowStartNode(exec, record.ID, record.DisplayName)
		case KindFlowEnd:
			n = graph.NewFlowEndNode(exec, record.ID, record.DisplayName, record.ParentIDs)
		case KindBlockStart:
			if len(record.ParentIDs) != 1 {
				return nil, &DumpError{Op: "Materialize", ExecutionID: dump.ID, Err: ErrInvalidDump,
					Message: "block start " + record.ID + " must have exactly one parent"}
			}

			n = graph.NewBlockStartNode(exec, record.ID, record.DisplayName, record.ParentIDs[0])
		case KindBlockEnd:
			start, ok := exec.nodes[record.StartID]
			if !ok {
				return nil, &DumpError{Op: "Materialize", ExecutionID: dump.ID, Err: ErrInvalidDump,
					Message: "block end " + record.ID + " references unknown start " + record.StartID}
			}

			if _, ok := start.(*graph.BlockStartNode); !ok {
				return nil, &DumpError{Op: "Materialize", ExecutionID: dump.ID, Err: ErrInvalidDump,
					Message: "block end " + record.ID + " start " + record.StartID + " is not a block start"}
			}

			if _, closed := exec.ends[record.StartID]; closed {
				return nil, &DumpError{Op: "Materialize", ExecutionID: dump.ID, Err: ErrInvalidDump,
					Message: "block " + record.StartID + " closed twice"}
			}

			exec.ends[record.StartID] = record.ID
			n = graph.NewBlockEndNode(exec, record.ID, record.DisplayName, record.ParentIDs, record.StartID)
		case KindStep:
			if len(record.ParentIDs) != 1 {
				return nil, &DumpError{Op: "Materialize", ExecutionID: dump.ID, Err: ErrInvalidDump,
					Message: "step " + record.ID + " must have exactly one parent"}
			}

			n = graph.NewStepNode(exec, record.ID, record.DisplayName, record.ParentIDs[0])
		default:
			return nil, &DumpError{Op: "Materialize", ExecutionID: dump.ID, Err: ErrInvalidDump,
				Message: "unknown node kind " + record.Kind}
		}

		for _, actionRecord := range record.Actions {
			if action := actionFromRecord(actionRecord); action != nil {
				n.AppendAction(action)
			}
		}

		exec.nodes[record.ID] = n
		exec.order = append(exec.order, record.ID)
	}

	if !rootSeen {
		return nil, &DumpError{Op: "Materialize", ExecutionID: dump.ID, Err: ErrInvalidDump,
			Message: "dump has no flow start root"}
	}

	for _, headID := range dump.HeadIDs {
		head, ok := exec.nodes[headID]
		if !ok {
			return nil, &DumpError{Op: "Materialize", ExecutionID: dump.ID, Err: ErrInvalidDump,
				Message: "unknown head " + headID}
		}

		exec.heads = append(exec.heads, head)
	}

	return exec, nil
}

// ExecutionID identifies the loaded execution.
func (e *LoadedExecution) ExecutionID() string {
	return e.id
}

// Node implements graph.Execution.
func (e *LoadedExecution) Node(id string) (graph.Node, error) {
	n, ok := e.nodes[id]
	if !ok {
		return nil, graph.NewGraphError("Node", id, graph.ErrNodeNotFound)
	}

	return n, nil
}

// CurrentHeads implements graph.Execution.
func (e *LoadedExecution) CurrentHeads() []graph.Node {
	heads := make([]graph.Node, len(e.heads))
	copy(heads, e.heads)

	return heads
}

// IsCurrentHead implements graph.Execution.
func (e *LoadedExecution) IsCurrentHead(n graph.Node) bool {
	for _, h := range e.heads {
		if h.ID() == n.ID() {
			return true
		}
	}

	return false
}

// IsComplete implements graph.Execution.
func (e *LoadedExecution) IsComplete() bool {
	return e.complete
}

// AddListener implements graph.Execution. The record is static, so no node
// will ever arrive later; instead the full history is replayed to the
// listener synchronously in append order. Registering a lookup view this
// way warms its caches exactly as if it had followed the live execution.
func (e *LoadedExecution) AddListener(l graph.GraphListener) {
	for _, id := range e.order {
		l.OnNewHead(e.nodes[id])
	}
}

// BlockEndID implements graph.BlockResolver.
func (e *LoadedExecution) BlockEndID(startID string) (string, bool) {
	endID, ok := e.ends[startID]

	return endID, ok
}

// AllNodes returns every node in append order.
func (e *LoadedExecution) AllNodes() []graph.Node {
	nodes := make([]graph.Node, 0, len(e.order))

	for _, id := range e.order {
		nodes = append(nodes, e.nodes[id])
	}

	return nodes
}
