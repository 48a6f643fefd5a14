// Package recorder provides an in-memory implementation of the execution
// collaborator: a single-writer appender that records step and block
// boundaries as graph nodes, maintains the frontier, and notifies listeners
// synchronously in append order. It records history; it never runs or
// schedules anything itself.
package recorder

import (
	"strconv"
	"sync"

	"github.com/dukex/flowgraph/pkg/graph"
	"github.com/google/uuid"
)

// Recorder is an append-only execution record. Exactly one writer appends;
// any number of readers may query concurrently.
type Recorder struct {
	executionID string

	mu        sync.RWMutex
	nodes     map[string]graph.Node
	order     []string
	heads     []graph.Node
	ends      map[string]string // block start id -> end id, once closed
	complete  bool
	seq       int
	listeners []graph.GraphListener
}

// New creates a recorder with the unique root FlowStartNode already
// appended and heading the frontier.
func New(displayName string) *Recorder {
	r := &Recorder{
		executionID: uuid.New().String(),
		nodes:       make(map[string]graph.Node),
		ends:        make(map[string]string),
	}

	root := graph.NewFlowStartNode(r, r.nextID(), displayName)
	r.nodes[root.ID()] = root
	r.order = append(r.order, root.ID())
	r.heads = []graph.Node{root}

	return r
}

// ExecutionID identifies this execution, stable across queries.
func (r *Recorder) ExecutionID() string {
	return r.executionID
}

// FlowStart returns the unique root node.
func (r *Recorder) FlowStart() graph.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.nodes[r.order[0]]
}

func (r *Recorder) nextID() string {
	r.seq++

	return strconv.Itoa(r.seq)
}

// AddStep appends an atomic step after the given node.
func (r *Recorder) AddStep(after graph.Node, name string) (*graph.StepNode, error) {
	r.mu.Lock()

	if err := r.checkParent(after); err != nil {
		r.mu.Unlock()

		return nil, err
	}

	step := graph.NewStepNode(r, r.nextID(), name, after.ID())
	r.append(step, after)
	r.mu.Unlock()

	r.notify(step)

	return step, nil
}

// StartBlock opens a nested scope after the given node.
func (r *Recorder) StartBlock(after graph.Node, name string) (*graph.BlockStartNode, error) {
	r.mu.Lock()

	if err := r.checkParent(after); err != nil {
		r.mu.Unlock()

		return nil, err
	}

	start := graph.NewBlockStartNode(r, r.nextID(), name, after.ID())
	r.append(start, after)
	r.mu.Unlock()

	r.notify(start)

	return start, nil
}

// EndBlock closes the block opened by start. The parents are the frontier
// nodes the block's branches finished on; more than one makes the end node
// a parallel join.
func (r *Recorder) EndBlock(start *graph.BlockStartNode, name string, parents ...graph.Node) (*graph.BlockEndNode, error) {
	if len(parents) == 0 {
		return nil, graph.NewGraphError("EndBlock", start.ID(), graph.ErrNodeNotFound)
	}

	r.mu.Lock()

	if r.complete {
		r.mu.Unlock()

		return nil, graph.ErrExecutionComplete
	}

	if _, ok := r.nodes[start.ID()]; !ok {
		r.mu.Unlock()

		return nil, graph.NewGraphError("EndBlock", start.ID(), graph.ErrNodeNotFound)
	}

	if _, closed := r.ends[start.ID()]; closed {
		r.mu.Unlock()

		return nil, graph.NewGraphError("EndBlock", start.ID(), graph.ErrBlockClosed)
	}

	parentIDs := make([]string, 0, len(parents))

	for _, p := range parents {
		if _, ok := r.nodes[p.ID()]; !ok {
			r.mu.Unlock()

			return nil, graph.NewGraphError("EndBlock", p.ID(), graph.ErrNodeNotFound)
		}

		parentIDs = append(parentIDs, p.ID())
	}

	end := graph.NewBlockEndNode(r, r.nextID(), name, parentIDs, start.ID())
	r.ends[start.ID()] = end.ID()
	r.append(end, parents...)
	r.mu.Unlock()

	r.notify(end)

	return end, nil
}

// Finish appends the terminal FlowEndNode with the current frontier as its
// parents and marks the execution complete.
func (r *Recorder) Finish(name string) (*graph.FlowEndNode, error) {
	r.mu.Lock()

	if r.complete {
		r.mu.Unlock()

		return nil, graph.ErrExecutionComplete
	}

	parents := r.heads
	parentIDs := make([]string, 0, len(parents))

	for _, p := range parents {
		parentIDs = append(parentIDs, p.ID())
	}

	end := graph.NewFlowEndNode(r, r.nextID(), name, parentIDs)
	r.append(end, parents...)
	r.complete = true
	r.mu.Unlock()

	r.notify(end)

	return end, nil
}

func (r *Recorder) checkParent(after graph.Node) error {
	if r.complete {
		return graph.ErrExecutionComplete
	}

	if after == nil {
		return graph.NewGraphError("Append", "", graph.ErrNodeNotFound)
	}

	if _, ok := r.nodes[after.ID()]; !ok {
		return graph.NewGraphError("Append", after.ID(), graph.ErrNodeNotFound)
	}

	return nil
}

// append records the node and advances the frontier: the consumed parents
// leave it, the new node joins it. Callers hold the write lock.
func (r *Recorder) append(n graph.Node, consumed ...graph.Node) {
	r.nodes[n.ID()] = n
	r.order = append(r.order, n.ID())

	replaced := make([]graph.Node, 0, len(r.heads)+1)

	for _, h := range r.heads {
		keep := true

		for _, c := range consumed {
			if h.ID() == c.ID() {
				keep = false

				break
			}
		}

		if keep {
			replaced = append(replaced, h)
		}
	}

	r.heads = append(replaced, n)
}

// notify fires listener callbacks outside the lock; the single-writer model
// keeps invocation order equal to append order.
func (r *Recorder) notify(n graph.Node) {
	r.mu.RLock()
	listeners := make([]graph.GraphListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, l := range listeners {
		l.OnNewHead(n)
	}
}

// Node implements graph.Execution.
func (r *Recorder) Node(id string) (graph.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.nodes[id]
	if !ok {
		return nil, graph.NewGraphError("Node", id, graph.ErrNodeNotFound)
	}

	return n, nil
}

// CurrentHeads implements graph.Execution.
func (r *Recorder) CurrentHeads() []graph.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	heads := make([]graph.Node, len(r.heads))
	copy(heads, r.heads)

	return heads
}

// IsCurrentHead implements graph.Execution.
func (r *Recorder) IsCurrentHead(n graph.Node) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.heads {
		if h.ID() == n.ID() {
			return true
		}
	}

	return false
}

// IsComplete implements graph.Execution.
func (r *Recorder) IsComplete() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.complete
}

// AddListener implements graph.Execution.
func (r *Recorder) AddListener(l graph.GraphListener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.listeners = append(r.listeners, l)
}

// BlockEndID implements graph.BlockResolver.
func (r *Recorder) BlockEndID(startID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	endID, ok := r.ends[startID]

	return endID, ok
}

// AllNodes returns every recorded node in append order.
func (r *Recorder) AllNodes() []graph.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]graph.Node, 0, len(r.order))

	for _, id := range r.order {
		nodes = append(nodes, r.nodes[id])
	}

	return nodes
}
