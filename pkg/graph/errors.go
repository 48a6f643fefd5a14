// Package graph defines the node model for an append-only pipeline
// execution-history graph.
package graph

import (
	"errors"
	"fmt"
)

// Standard graph error types that all implementations should use.
var (
	// ErrNodeNotFound indicates a node could not be resolved by its identifier.
	// Usually a transient storage failure; callers degrade rather than abort.
	ErrNodeNotFound = errors.New("node not found")

	// ErrGraphCorrupted indicates a structural invariant was violated: a
	// BlockEndNode whose start cannot be resolved, or a non-end node observed
	// with more than one parent. Not retryable.
	ErrGraphCorrupted = errors.New("graph corrupted")

	// ErrExecutionComplete indicates an append was attempted after the
	// execution finished.
	ErrExecutionComplete = errors.New("execution already complete")

	// ErrBlockClosed indicates a block end was appended for a start that
	// already has a matching end.
	ErrBlockClosed = errors.New("block already closed")
)

// GraphError wraps graph-related errors with additional context.
type GraphError struct {
	Op     string // Operation being performed (e.g., "Parents", "StartNode")
	NodeID string // Node ID the operation was about
	Err    error  // Underlying error
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("%s failed for node %s: %v", e.Op, e.NodeID, e.Err)
}

func (e *GraphError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for graph errors.
func (e *GraphError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewGraphError creates a new graph error with context.
func NewGraphError(op, nodeID string, err error) *GraphError {
	return &GraphError{
		Op:     op,
		NodeID: nodeID,
		Err:    err,
	}
}

// IsNodeNotFound checks if an error indicates a missing node.
func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}

// IsGraphCorrupted checks if an error indicates structural corruption.
func IsGraphCorrupted(err error) bool {
	return errors.Is(err, ErrGraphCorrupted)
}
