package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/manifold/pkg/adapters/file"
	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Store implements EntityStore
var _ ports.EntityStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunEntityStoreContract(t, file.NewStore(t.TempDir()))
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store := file.NewStore(dir)
	ctx := context.Background()

	v, err := store.Save(ctx, &domain.Entity{ID: "e1"}, "")
	require.NoError(t, err)
	_, err = store.Save(ctx, &domain.Entity{ID: "e1"}, v)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "e1.json", entries[0].Name())
}

func TestFileStore_RejectsPathIDs(t *testing.T) {
	store := file.NewStore(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "../escape", "a/b", ".."} {
		_, err := store.Save(ctx, &domain.Entity{ID: id}, "")
		assert.Error(t, err, "id %q", id)
		_, err = store.Load(ctx, id)
		assert.Error(t, err, "id %q", id)
	}
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.NewStore(filepath.Join(t.TempDir(), "nope"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
