package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/flowgraph/pkg/graph"
	"github.com/dukex/flowgraph/pkg/lookup"
	"github.com/dukex/flowgraph/pkg/persistence"
	"github.com/dukex/flowgraph/pkg/persistence/file"
	"github.com/dukex/flowgraph/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadList(t *testing.T) {
	ctx := context.Background()
	repo := file.NewRepository(t.TempDir())

	flow := testutil.BuildBlockFlow(t, true)
	dump, err := persistence.Snapshot(flow.Rec)
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, dump))

	ids, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{dump.ID}, ids)

	loaded, err := repo.Load(ctx, dump.ID)
	require.NoError(t, err)
	assert.Equal(t, dump.ID, loaded.ExecutionID())
	assert.True(t, loaded.IsComplete())

	n, err := loaded.Node(flow.S.ID())
	require.NoError(t, err)
	assert.Equal(t, "S", n.DisplayName())
}

func TestLoadWarmsLookupView(t *testing.T) {
	ctx := context.Background()
	repo := file.NewRepository(t.TempDir())

	flow := testutil.BuildBlockFlow(t, true)
	dump, err := persistence.Snapshot(flow.Rec)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, dump))

	loaded, err := repo.Load(ctx, dump.ID)
	require.NoError(t, err)

	view := lookup.NewView(loaded)

	start, err := loaded.Node(flow.S.ID())
	require.NoError(t, err)

	blockStart, ok := start.(*graph.BlockStartNode)
	require.True(t, ok)

	end, err := view.EndNode(blockStart)
	require.NoError(t, err)
	require.NotNil(t, end)
	assert.Equal(t, flow.E.ID(), end.ID())

	step, err := loaded.Node(flow.A.ID())
	require.NoError(t, err)

	enclosing, err := view.FindEnclosingBlockStart(step)
	require.NoError(t, err)
	require.NotNil(t, enclosing)
	assert.Equal(t, flow.S.ID(), enclosing.ID())
}

func TestLoadMissingExecution(t *testing.T) {
	repo := file.NewRepository(t.TempDir())

	_, err := repo.Load(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestLoadRejectsMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	repo := file.NewRepository(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"id":"bad"}`), 0o644))

	_, err := repo.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, persistence.IsInvalidDump(err))
}

func TestSaveReplacesExisting(t *testing.T) {
	ctx := context.Background()
	repo := file.NewRepository(t.TempDir())

	flow := testutil.BuildBlockFlow(t, false)
	partial, err := persistence.Snapshot(flow.Rec)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, partial))

	loaded, err := repo.Load(ctx, partial.ID)
	require.NoError(t, err)
	assert.False(t, loaded.IsComplete())

	_, err = flow.Rec.EndBlock(flow.S, "E", flow.A)
	require.NoError(t, err)
	_, err = flow.Rec.Finish("End")
	require.NoError(t, err)

	full, err := persistence.Snapshot(flow.Rec)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, full))

	loaded, err = repo.Load(ctx, full.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsComplete())

	ids, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestListEmptyRoot(t *testing.T) {
	repo := file.NewRepository(filepath.Join(t.TempDir(), "missing"))

	ids, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
