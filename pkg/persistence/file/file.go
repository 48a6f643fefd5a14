// Package file provides file-based storage for execution dumps: one JSON
// document per execution under a root directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/flowgraph/pkg/persistence"
)

// Repository implements persistence.ExecutionRepository on the file system.
type Repository struct {
	root string
}

// NewRepository creates a repository rooted at the given directory. A
// file:// prefix is accepted and stripped.
func NewRepository(root string) *Repository {
	return &Repository{root: strings.Replace(root, "file://", "", 1)}
}

// HealthCheck verifies the root directory exists.
func (r *Repository) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(r.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based storage there is
// nothing to clean up.
func (r *Repository) Close(_ context.Context) error {
	return nil
}

func (r *Repository) path(id string) string {
	return filepath.Join(r.root, id+".json")
}

// List implements persistence.ExecutionRepository.
func (r *Repository) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read executions directory %s: %w", r.root, err)
	}

	var ids []string

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}

	return ids, nil
}

// Load implements persistence.ExecutionRepository. The raw document is
// schema-checked before it is materialized.
func (r *Repository) Load(_ context.Context, id string) (*persistence.LoadedExecution, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewDumpError("Load", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewDumpError("Load", id, err)
	}

	if err := persistence.ValidateRaw(data); err != nil {
		return nil, err
	}

	var dump persistence.ExecutionDump

	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, &persistence.DumpError{Op: "Load", ExecutionID: id,
			Err: persistence.ErrInvalidDump, Message: err.Error()}
	}

	return persistence.Materialize(&dump)
}

// Save implements persistence.ExecutionRepository. The dump is validated
// and written atomically via a temp file rename.
func (r *Repository) Save(_ context.Context, dump *persistence.ExecutionDump) error {
	if err := persistence.ValidateDump(dump); err != nil {
		return err
	}

	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return persistence.NewDumpError("Save", dump.ID, err)
	}

	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return persistence.NewDumpError("Save", dump.ID, err)
	}

	tmp := r.path(dump.ID) + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return persistence.NewDumpError("Save", dump.ID, err)
	}

	if err := os.Rename(tmp, r.path(dump.ID)); err != nil {
		return persistence.NewDumpError("Save", dump.ID, err)
	}

	return nil
}
