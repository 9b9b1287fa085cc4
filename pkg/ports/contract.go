package ports

import (
	"context"
	"testing"
	"time"

	"github.com/coastalkit/nestor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunPhaseStoreContract runs a suite of tests verifying that a PhaseStore
// implementation adheres to the interface contract. Adapter tests call this
// with a ready store.
func RunPhaseStoreContract(t *testing.T, store PhaseStore) {
	ctx := context.Background()
	key := "contract-case-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := &domain.PhaseState{
			RunID:          "run-1",
			FulldomainPath: "/data/full",
			SubdomainPath:  "/data/sub",
			Phase:          domain.PhaseSetupDone,
			UpdatedAt:      time.Now().UTC().Truncate(time.Second),
		}

		err := store.Save(ctx, key, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.Phase, loaded.Phase)
		assert.Equal(t, state.RunID, loaded.RunID)
		assert.Equal(t, state.SubdomainPath, loaded.SubdomainPath)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrPhaseStateNotFound)
	})

	t.Run("Advance survives round-trip", func(t *testing.T) {
		state := &domain.PhaseState{Phase: domain.PhaseFulldomainRan}
		state.Advance(domain.PhaseBoundaryExtracted, time.Now())
		require.NoError(t, store.Save(ctx, key, state))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseBoundaryExtracted, loaded.Phase)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, &domain.PhaseState{}))

		err := store.Delete(ctx, key)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrPhaseStateNotFound, "Load after Delete should miss")

		// Deleting again must be a no-op.
		assert.NoError(t, store.Delete(ctx, key))
	})

	t.Run("List", func(t *testing.T) {
		id1 := key + "-1"
		id2 := key + "-2"
		_ = store.Save(ctx, id1, &domain.PhaseState{})
		_ = store.Save(ctx, id2, &domain.PhaseState{})

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, id1)
		assert.Contains(t, keys, id2)
	})
}
