package graph

import (
	"sync"

	"github.com/dukex/flowgraph/pkg/log"
)

var logger = log.WithModule("graph")

// Node is one immutable point in the execution history. Identity is the ID;
// parent linkage is stored as identifiers and resolved lazily against the
// owning execution. Actions are the only mutable part and are append-only.
type Node interface {
	ID() string
	DisplayName() string

	// ParentIDs returns the ordered identifiers of the node's parents. Every
	// node except the unique root has at least one; only a BlockEndNode may
	// have more than one.
	ParentIDs() []string

	// Parents resolves the parent identifiers to live nodes. Lookup failures
	// are logged and the failing parent is skipped, so the result may be
	// empty even off the root; callers must tolerate that.
	Parents() []Node

	Actions() []Action
	AppendAction(a Action)

	// Active reports whether the node is part of the currently unfinished
	// graph.
	Active() bool

	// Execution returns the owning execution. Back-reference only, used for
	// lookups; the node does not own it.
	Execution() Execution
}

// SameNode reports id-equality between two nodes.
func SameNode(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return a.ID() == b.ID()
}

// nodeCore carries the state shared by every node kind.
type nodeCore struct {
	exec      Execution
	id        string
	name      string
	parentIDs []string

	mu      sync.Mutex
	actions []Action
	parents []Node // resolved lazily, kept once fully resolved
}

func newNodeCore(exec Execution, id, name string, parentIDs []string) nodeCore {
	return nodeCore{
		exec:      exec,
		id:        id,
		name:      name,
		parentIDs: parentIDs,
	}
}

func (c *nodeCore) ID() string {
	return c.id
}

func (c *nodeCore) DisplayName() string {
	return c.name
}

func (c *nodeCore) ParentIDs() []string {
	ids := make([]string, len(c.parentIDs))
	copy(ids, c.parentIDs)

	return ids
}

func (c *nodeCore) Parents() []Node {
	c.mu.Lock()
	if c.parents != nil {
		resolved := c.parents
		c.mu.Unlock()

		return resolved
	}
	c.mu.Unlock()

	resolved := make([]Node, 0, len(c.parentIDs))

	for _, pid := range c.parentIDs {
		parent, err := c.exec.Node(pid)
		if err != nil {
			logger.Warn("Failed to resolve parent node, skipping",
				"node_id", c.id, "parent_id", pid, "error", err)

			continue
		}

		resolved = append(resolved, parent)
	}

	// Cache only a complete resolution; a partial one may have been a
	// transient storage failure.
	if len(resolved) == len(c.parentIDs) {
		c.mu.Lock()
		c.parents = resolved
		c.mu.Unlock()
	}

	return resolved
}

func (c *nodeCore) Actions() []Action {
	c.mu.Lock()
	defer c.mu.Unlock()

	actions := make([]Action, len(c.actions))
	copy(actions, c.actions)

	return actions
}

func (c *nodeCore) AppendAction(a Action) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.actions = append(c.actions, a)
}

func (c *nodeCore) Execution() Execution {
	return c.exec
}

// StepNode is an atomic step with no body of its own.
type StepNode struct {
	nodeCore
}

func NewStepNode(exec Execution, id, name, parentID string) *StepNode {
	return &StepNode{nodeCore: newNodeCore(exec, id, name, []string{parentID})}
}

// Active is true for a plain node exactly while it is a current head.
func (n *StepNode) Active() bool {
	return n.exec.IsCurrentHead(n)
}

// FlowStartNode is the unique root of the whole execution. It is never
// enclosed by anything.
type FlowStartNode struct {
	nodeCore
}

func NewFlowStartNode(exec Execution, id, name string) *FlowStartNode {
	return &FlowStartNode{nodeCore: newNodeCore(exec, id, name, nil)}
}

// Active is true while the whole execution is unfinished.
func (n *FlowStartNode) Active() bool {
	return !n.exec.IsComplete()
}

// FlowEndNode is the unique terminal node of a finished execution. It is
// never active and never enclosed.
type FlowEndNode struct {
	nodeCore
}

func NewFlowEndNode(exec Execution, id, name string, parentIDs []string) *FlowEndNode {
	return &FlowEndNode{nodeCore: newNodeCore(exec, id, name, parentIDs)}
}

func (n *FlowEndNode) Active() bool {
	return false
}

// BlockStartNode marks the entry of a nested scope: a step body, a parallel
// branch, a stage.
type BlockStartNode struct {
	nodeCore
}

func NewBlockStartNode(exec Execution, id, name, parentID string) *BlockStartNode {
	return &BlockStartNode{nodeCore: newNodeCore(exec, id, name, []string{parentID})}
}

// Active is true while the matching BlockEndNode does not yet exist. When
// the execution cannot answer that in O(1), head membership is the fallback.
func (n *BlockStartNode) Active() bool {
	if n.exec.IsComplete() {
		return false
	}

	if resolver, ok := n.exec.(BlockResolver); ok {
		_, closed := resolver.BlockEndID(n.id)

		return !closed
	}

	return n.exec.IsCurrentHead(n)
}

// BlockEndNode marks the exit of a nested scope and is the only node kind
// allowed more than one parent, at the join of parallel branches.
type BlockEndNode struct {
	nodeCore

	startID string

	startMu sync.Mutex
	start   *BlockStartNode
}

func NewBlockEndNode(exec Execution, id, name string, parentIDs []string, startID string) *BlockEndNode {
	return &BlockEndNode{
		nodeCore: newNodeCore(exec, id, name, parentIDs),
		startID:  startID,
	}
}

// StartID returns the identifier of the matching BlockStartNode.
func (n *BlockEndNode) StartID() string {
	return n.startID
}

// StartNode resolves the matching BlockStartNode. An unresolvable start
// indicates data corruption, not a retryable condition.
func (n *BlockEndNode) StartNode() (*BlockStartNode, error) {
	n.startMu.Lock()
	defer n.startMu.Unlock()

	if n.start != nil {
		return n.start, nil
	}

	resolved, err := n.exec.Node(n.startID)
	if err != nil {
		return nil, NewGraphError("StartNode", n.id, ErrGraphCorrupted)
	}

	start, ok := resolved.(*BlockStartNode)
	if !ok {
		return nil, NewGraphError("StartNode", n.id, ErrGraphCorrupted)
	}

	n.start = start

	return start, nil
}

// Active is true for an end node exactly while it is a current head.
func (n *BlockEndNode) Active() bool {
	return n.exec.IsCurrentHead(n)
}
