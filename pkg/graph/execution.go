package graph

// Execution is the collaborator that owns the graph: the engine (or a loaded
// historical record) that appends nodes and advances the frontier. The graph
// core only reads it.
type Execution interface {
	// Node resolves a node by its stable identifier. May fail on storage I/O;
	// callers must fail the specific lookup, not their broader operation.
	Node(id string) (Node, error)

	// CurrentHeads returns the active frontier, the nodes representing
	// currently unfinished execution, in a stable order.
	CurrentHeads() []Node

	// IsCurrentHead reports whether the given node is part of the frontier.
	IsCurrentHead(n Node) bool

	// IsComplete reports whether the execution has finished.
	IsComplete() bool

	// AddListener registers a listener invoked once per newly appended node,
	// synchronously and in append order, after the node and its actions are
	// otherwise fully constructed. Listeners sit in the append path and must
	// execute quickly.
	AddListener(l GraphListener)
}

// GraphListener receives new-node notifications from an Execution.
type GraphListener interface {
	OnNewHead(n Node)
}

// GraphListenerFunc adapts a plain function to a GraphListener.
type GraphListenerFunc func(n Node)

func (f GraphListenerFunc) OnNewHead(n Node) {
	f(n)
}

// BlockResolver is implemented by executions that can report, in O(1),
// whether a block start already has a matching end. The in-memory recorder
// and the dump-backed execution both implement it; Active on a
// BlockStartNode uses it when available.
type BlockResolver interface {
	BlockEndID(startID string) (string, bool)
}
