// Package persistence defines the recorded-execution dump format and the
// repository interface for storing and loading execution histories.
package persistence

import (
	"context"

	"github.com/dukex/flowgraph/pkg/graph"
)

// NodeKind values used in dumps.
const (
	KindFlowStart  = "flow_start"
	KindFlowEnd    = "flow_end"
	KindBlockStart = "block_start"
	KindBlockEnd   = "block_end"
	KindStep       = "step"
)

// ActionRecord is one serialized metadata action.
type ActionRecord struct {
	Kind  string `json:"kind"  validate:"required,oneof=status error label stage workspace"`
	Value string `json:"value"`
}

// NodeRecord is one serialized node. Records appear in append order, so a
// node's parents always precede it.
type NodeRecord struct {
	ID          string         `json:"id"                 validate:"required"`
	Kind        string         `json:"kind"               validate:"required,oneof=flow_start flow_end block_start block_end step"`
	DisplayName string         `json:"display_name"`
	ParentIDs   []string       `json:"parent_ids"`
	StartID     string         `json:"start_id,omitempty" validate:"required_if=Kind block_end"`
	Actions     []ActionRecord `json:"actions,omitempty"  validate:"omitempty,dive"`
}

// ExecutionDump is a complete recorded execution history.
type ExecutionDump struct {
	ID       string       `json:"id"        validate:"required"`
	Complete bool         `json:"complete"`
	HeadIDs  []string     `json:"head_ids"  validate:"required,min=1"`
	Nodes    []NodeRecord `json:"nodes"     validate:"required,min=1,dive"`
}

// ExecutionRepository stores and retrieves execution dumps.
type ExecutionRepository interface {
	// List returns the identifiers of all stored executions.
	List(ctx context.Context) ([]string, error)

	// Load reads a dump and materializes it as a queryable execution.
	Load(ctx context.Context, id string) (*LoadedExecution, error)

	// Save writes a dump. An existing dump for the same execution is
	// replaced.
	Save(ctx context.Context, dump *ExecutionDump) error

	// Close releases any underlying resources.
	Close(ctx context.Context) error
}

func actionFromRecord(r ActionRecord) graph.Action {
	switch r.Kind {
	case "status":
		return graph.StatusAction{Status: graph.NodeStatus(r.Value)}
	case "error":
		return graph.ErrorAction{Message: r.Value}
	case "label":
		return graph.LabelAction{Label: r.Value}
	case "stage":
		return graph.StageAction{Name: r.Value}
	case "workspace":
		return graph.WorkspaceAction{Path: r.Value}
	default:
		return nil
	}
}

func recordFromAction(a graph.Action) (ActionRecord, bool) {
	switch action := a.(type) {
	case graph.StatusAction:
		return ActionRecord{Kind: "status", Value: string(action.Status)}, true
	case graph.ErrorAction:
		return ActionRecord{Kind: "error", Value: action.Message}, true
	case graph.LabelAction:
		return ActionRecord{Kind: "label", Value: action.Label}, true
	case graph.StageAction:
		return ActionRecord{Kind: "stage", Value: action.Name}, true
	case graph.WorkspaceAction:
		return ActionRecord{Kind: "workspace", Value: action.Path}, true
	default:
		return ActionRecord{}, false
	}
}
