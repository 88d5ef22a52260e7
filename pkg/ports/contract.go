package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/manifold/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunEntityStoreContract runs a suite of tests to verify that an EntityStore implementation
// adheres to the defined interface contract.
func RunEntityStoreContract(t *testing.T, store EntityStore) {
	ctx := context.Background()
	entityID := "contract-test-entity-" + time.Now().Format("20060102150405.000000")

	newEntity := func(id, state string) *domain.Entity {
		return &domain.Entity{
			ID:              id,
			TypeKind:        "TaskType",
			TypeID:          "bug",
			ManifestVersion: "v1",
			Snapshot: domain.EntitySnapshot{
				State:        state,
				AssigneeID:   "u-1",
				CustomFields: map[string]any{"severity": "high"},
			},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		version, err := store.Save(ctx, newEntity(entityID, "new"), "")
		require.NoError(t, err, "Save should not return error")
		require.NotEmpty(t, version, "Save must return a version token")

		loaded, err := store.Load(ctx, entityID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, entityID, loaded.ID)
		assert.Equal(t, "new", loaded.Snapshot.State)
		assert.Equal(t, "u-1", loaded.Snapshot.AssigneeID)
		assert.Equal(t, "bug", loaded.TypeID)
		assert.Equal(t, "v1", loaded.ManifestVersion)
		assert.Equal(t, "high", loaded.Snapshot.CustomFields["severity"])
		assert.Equal(t, version, loaded.Version)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+entityID)
		assert.ErrorIs(t, err, domain.ErrEntityNotFound)
	})

	t.Run("Conditional Save", func(t *testing.T) {
		current, err := store.Load(ctx, entityID)
		require.NoError(t, err)

		next, err := store.Save(ctx, newEntity(entityID, "active"), current.Version)
		require.NoError(t, err, "Save with the current token should succeed")
		assert.NotEqual(t, current.Version, next, "every write yields a new token")

		_, err = store.Save(ctx, newEntity(entityID, "resolved"), current.Version)
		assert.ErrorIs(t, err, domain.ErrVersionConflict, "Save with a stale token must conflict")

		loaded, err := store.Load(ctx, entityID)
		require.NoError(t, err)
		assert.Equal(t, "active", loaded.Snapshot.State, "a conflicting Save must not write")
		assert.Equal(t, next, loaded.Version)
	})

	t.Run("Unconditional Save", func(t *testing.T) {
		version, err := store.Save(ctx, newEntity(entityID, "closed"), "")
		require.NoError(t, err)

		loaded, err := store.Load(ctx, entityID)
		require.NoError(t, err)
		assert.Equal(t, "closed", loaded.Snapshot.State)
		assert.Equal(t, version, loaded.Version)
	})

	t.Run("Conditional Save on Missing Entity", func(t *testing.T) {
		_, err := store.Save(ctx, newEntity("missing-"+entityID, "new"), "some-token")
		assert.ErrorIs(t, err, domain.ErrVersionConflict)
	})

	t.Run("Loaded Entity Is a Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, entityID)
		require.NoError(t, err)
		loaded.Snapshot.State = "tampered"
		loaded.Snapshot.CustomFields["severity"] = "tampered"

		again, err := store.Load(ctx, entityID)
		require.NoError(t, err)
		assert.Equal(t, "closed", again.Snapshot.State)
		assert.Equal(t, "high", again.Snapshot.CustomFields["severity"])
	})

	t.Run("List", func(t *testing.T) {
		id1 := entityID + "-1"
		id2 := entityID + "-2"
		_, _ = store.Save(ctx, newEntity(id1, "new"), "")
		_, _ = store.Save(ctx, newEntity(id2, "new"), "")

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Delete(ctx, entityID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, entityID)
		assert.ErrorIs(t, err, domain.ErrEntityNotFound, "Load after Delete should return ErrEntityNotFound")

		assert.NoError(t, store.Delete(ctx, entityID), "deleting twice is not an error")
	})
}
