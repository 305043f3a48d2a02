// Package testutils provides shared fixtures for tests that need a real
// definition repository on disk.
package testutils

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupTestRepo creates a temporary directory and initializes a Loam
// repository in it, ready to hold experiment definitions. It fails the test
// immediately on error.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to resolve temp dir")

	repo, err := loam.Init(absPath, opts...)
	require.NoError(t, err, "Failed to init loam repo")

	return absPath, repo
}

// SaveDocument writes a raw definition document into the repository, failing
// the test on error.
func SaveDocument(t *testing.T, repo core.Repository, id, content string) {
	t.Helper()

	err := repo.Save(context.Background(), core.Document{ID: id, Content: content})
	require.NoError(t, err, "Failed to save document %s", id)
}
