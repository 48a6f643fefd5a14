package eventbus_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/dukex/flowgraph/pkg/eventbus"
	"github.com/dukex/flowgraph/pkg/events"
	"github.com/dukex/flowgraph/pkg/recorder"
	"github.com/dukex/flowgraph/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingBus struct {
	published []eventbus.Event
	failWith  error
	nextID    int
}

func (b *capturingBus) Publish(_ context.Context, _ string, event eventbus.Event) error {
	if b.failWith != nil {
		return b.failWith
	}

	b.published = append(b.published, event)

	return nil
}

func (b *capturingBus) Handle(events.EventType, eventbus.EventHandler) error { return nil }

func (b *capturingBus) Subscribe(context.Context) error { return nil }

func (b *capturingBus) Close() error { return nil }

func (b *capturingBus) GenerateID() string {
	b.nextID++

	return strconv.Itoa(b.nextID)
}

func TestGraphPublisherEmitsNodeAppended(t *testing.T) {
	bus := &capturingBus{}
	rec := recorder.New("demo")
	rec.AddListener(eventbus.NewGraphPublisher(rec.ExecutionID(), bus))

	step, err := rec.AddStep(rec.FlowStart(), "build")
	require.NoError(t, err)

	require.Len(t, bus.published, 1)

	appended, ok := bus.published[0].(events.NodeAppended)
	require.True(t, ok)
	assert.Equal(t, events.NodeAppendedEvent, appended.GetType())
	assert.Equal(t, rec.ExecutionID(), appended.ExecutionID)
	assert.Equal(t, step.ID(), appended.NodeID)
	assert.Equal(t, "step", appended.Kind)
	assert.Equal(t, "build", appended.DisplayName)
	assert.Equal(t, []string{rec.FlowStart().ID()}, appended.ParentIDs)
	assert.Empty(t, appended.StartID)
}

func TestGraphPublisherEmitsBlockPairing(t *testing.T) {
	bus := &capturingBus{}
	rec := recorder.New("demo")
	rec.AddListener(eventbus.NewGraphPublisher(rec.ExecutionID(), bus))

	start, err := rec.StartBlock(rec.FlowStart(), "stage")
	require.NoError(t, err)

	end, err := rec.EndBlock(start, "stage-end", start)
	require.NoError(t, err)

	require.Len(t, bus.published, 2)

	appended, ok := bus.published[1].(events.NodeAppended)
	require.True(t, ok)
	assert.Equal(t, end.ID(), appended.NodeID)
	assert.Equal(t, "block_end", appended.Kind)
	assert.Equal(t, start.ID(), appended.StartID)
}

func TestGraphPublisherEmitsCompletion(t *testing.T) {
	bus := &capturingBus{}

	flow := testutil.BuildLinearFlow(t)
	publisher := eventbus.NewGraphPublisher(flow.Rec.ExecutionID(), bus)

	// Registering after the fact replays nothing; drive it by hand the way
	// a live recorder would.
	for _, n := range flow.Rec.AllNodes() {
		publisher.OnNewHead(n)
	}

	require.Len(t, bus.published, 5)

	completed, ok := bus.published[4].(events.ExecutionCompleted)
	require.True(t, ok)
	assert.Equal(t, events.ExecutionCompletedEvent, completed.GetType())
	assert.Equal(t, 4, completed.NodeCount)
}

func TestGraphPublisherSwallowsPublishFailures(t *testing.T) {
	bus := &capturingBus{failWith: assert.AnError}
	rec := recorder.New("demo")
	rec.AddListener(eventbus.NewGraphPublisher(rec.ExecutionID(), bus))

	_, err := rec.AddStep(rec.FlowStart(), "build")
	require.NoError(t, err)
	assert.Empty(t, bus.published)
}
