package eventbus

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/flowgraph/pkg/events"
	"github.com/dukex/flowgraph/pkg/graph"
	"github.com/dukex/flowgraph/pkg/log"
)

var logger = log.WithModule("eventbus")

// GraphPublisher bridges graph listener callbacks onto an event bus: one
// NodeAppended event per appended node, plus an ExecutionCompleted event
// when the terminal node arrives. It sits in the append path, so publish
// failures are logged and swallowed rather than propagated to the writer.
type GraphPublisher struct {
	executionID string
	bus         EventBus
	logger      *slog.Logger
	nodeCount   int
}

func NewGraphPublisher(executionID string, bus EventBus) *GraphPublisher {
	return &GraphPublisher{
		executionID: executionID,
		bus:         bus,
		logger:      log.WithExecution(logger, executionID),
	}
}

// OnNewHead implements graph.GraphListener.
func (p *GraphPublisher) OnNewHead(n graph.Node) {
	p.nodeCount++

	appended := events.NodeAppended{
		BaseEvent: events.BaseEvent{
			ID:          p.bus.GenerateID(),
			Type:        events.NodeAppendedEvent,
			Timestamp:   time.Now().UTC(),
			ExecutionID: p.executionID,
		},
		NodeID:      n.ID(),
		Kind:        nodeKind(n),
		DisplayName: n.DisplayName(),
		ParentIDs:   n.ParentIDs(),
	}

	if end, ok := n.(*graph.BlockEndNode); ok {
		appended.StartID = end.StartID()
	}

	if err := p.bus.Publish(context.Background(), p.executionID, appended); err != nil {
		p.logger.Warn("Failed to publish node appended event",
			"node_id", n.ID(), "error", err)
	}

	if _, ok := n.(*graph.FlowEndNode); !ok {
		return
	}

	completed := events.ExecutionCompleted{
		BaseEvent: events.BaseEvent{
			ID:          p.bus.GenerateID(),
			Type:        events.ExecutionCompletedEvent,
			Timestamp:   time.Now().UTC(),
			ExecutionID: p.executionID,
		},
		NodeCount: p.nodeCount,
	}

	if err := p.bus.Publish(context.Background(), p.executionID, completed); err != nil {
		p.logger.Warn("Failed to publish execution completed event", "error", err)
	}
}

func nodeKind(n graph.Node) string {
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
