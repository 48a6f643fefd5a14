// Package web provides HTTP request and response types for the execution
// history API.
package web

import (
	"github.com/dukex/flowgraph/pkg/graph"
)

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ActionResponse represents one metadata action attached to a node.
type ActionResponse struct {
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
}

// NodeResponse represents the serialized view of a graph node.
type NodeResponse struct {
	ID          string           `json:"id"`
	Kind        string           `json:"kind"`
	DisplayName string           `json:"display_name"`
	ParentIDs   []string         `json:"parent_ids"`
	StartID     string           `json:"start_id,omitempty"`
	Active      *bool            `json:"active,omitempty"`
	Actions     []ActionResponse `json:"actions,omitempty"`
}

// TransformNodeResponse serializes a node. Activity is omitted unless the
// caller resolved it, since it needs a lookup view.
func TransformNodeResponse(n graph.Node) NodeResponse {
	response := NodeResponse{
		ID:          n.ID(),
		Kind:        kindOf(n),
		DisplayName: n.DisplayName(),
		ParentIDs:   n.ParentIDs(),
	}

	if end, ok := n.(*graph.BlockEndNode); ok {
		response.StartID = end.StartID()
	}

	for _, a := range n.Actions() {
		response.Actions = append(response.Actions, transformAction(a))
	}

	return response
}

func transformAction(a graph.Action) ActionResponse {
	response := ActionResponse{Kind: a.ActionName()}

	switch action := a.(type) {
	case graph.StatusAction:
		response.Value = string(action.Status)
	case graph.ErrorAction:
		response.Value = action.Message
	case graph.LabelAction:
		response.Value = action.Label
	case graph.StageAction:
		response.Value = action.Name
	case graph.WorkspaceAction:
		response.Value = action.Path
	}

	return response
}

func kindOf(n graph.Node) string {
	switch n.(type) {
	case *graph.FlowStartNode:
		return "flow_start"
	case *graph.FlowEndNode:
		return "flow_end"
	case *graph.BlockStartNode:
		return "block_start"
	case *graph.BlockEndNode:
		return "block_end"
	default:
		return "step"
	}
}
