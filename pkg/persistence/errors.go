package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrExecutionNotFound indicates no dump exists for the given identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrInvalidDump indicates a dump failed structural validation.
	ErrInvalidDump = errors.New("invalid execution dump")
)

// DumpError wraps dump-related errors with additional context.
type DumpError struct {
	Op          string // Operation being performed (e.g., "Load", "Save")
	ExecutionID string
	Err         error
	Message     string
}

func (e *DumpError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for execution %s: %s (%v)", e.Op, e.ExecutionID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *DumpError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for dump errors.
func (e *DumpError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDumpError creates a new dump error with context.
func NewDumpError(op, executionID string, err error) *DumpError {
	return &DumpError{
		Op:          op,
		ExecutionID: executionID,
		Err:         err,
	}
}

// IsExecutionNotFound checks if an error indicates a missing execution.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsInvalidDump checks if an error indicates a malformed dump.
func IsInvalidDump(err error) bool {
	return errors.Is(err, ErrInvalidDump)
}
