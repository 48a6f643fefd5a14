// Package events defines event types for execution-graph lifecycle
// notifications.
package events

import (
	"time"
)

type EventType string

// Topic carrying graph lifecycle events.
const Topic = "flowgraph.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// NodeAppendedEvent fires once per node appended to an execution.
	NodeAppendedEvent EventType = "graph.node.appended"

	// ExecutionCompletedEvent fires when the terminal flow end node is
	// appended.
	ExecutionCompletedEvent EventType = "graph.execution.completed"
)

type BaseEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	ExecutionID string         `json:"execution_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NodeAppended describes one new node on the execution frontier.
type NodeAppended struct {
	BaseEvent

	NodeID      string   `json:"node_id"`
	Kind        string   `json:"kind"`
	DisplayName string   `json:"display_name"`
	ParentIDs   []string `json:"parent_ids"`
	StartID     string   `json:"start_id,omitempty"` // block end nodes only
}

func (n NodeAppended) GetType() EventType {
	return NodeAppendedEvent
}

// ExecutionCompleted marks the end of an execution's history.
type ExecutionCompleted struct {
	BaseEvent

	NodeCount int `json:"node_count"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}
