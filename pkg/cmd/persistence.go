package cmd

import (
	"github.com/dukex/flowgraph/pkg/persistence"
	"github.com/dukex/flowgraph/pkg/persistence/file"
)

// NewRepository creates an execution repository from a storage URL. Only
// file storage is implemented; anything else falls back to treating the
// URL as a directory path.
func NewRepository(storageURL string) persistence.ExecutionRepository {
	return file.NewRepository(storageURL)
}
