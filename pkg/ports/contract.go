package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/petri/pkg/domain"
)

// RunSubjectStoreContract exercises the behavior every SubjectStore adapter
// must provide. Adapter test suites call it with a freshly constructed,
// empty store.
func RunSubjectStoreContract(t *testing.T, store SubjectStore) {
	ctx := context.Background()

	t.Run("FetchEmpty", func(t *testing.T) {
		subjects, err := store.Fetch(ctx)
		require.NoError(t, err)
		assert.Empty(t, subjects)
	})

	t.Run("WriteAndFetch", func(t *testing.T) {
		joined := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		batch := []domain.Subject{
			{ID: "c-1", Stage: "intake", Group: "control", Joined: joined,
				Attributes: map[string]any{"site": "lisbon"}},
			{ID: "c-2", Stage: "intake", Joined: joined},
		}
		require.NoError(t, store.Write(ctx, batch))

		subjects, err := store.Fetch(ctx)
		require.NoError(t, err)
		require.Len(t, subjects, 2)

		byID := make(map[string]domain.Subject, len(subjects))
		for _, s := range subjects {
			byID[s.ID] = s
		}
		require.Contains(t, byID, "c-1")
		assert.Equal(t, "control", byID["c-1"].Group)
		assert.Equal(t, "intake", byID["c-1"].Stage)
		assert.Equal(t, "lisbon", byID["c-1"].Attributes["site"])
		assert.True(t, joined.Equal(byID["c-1"].Joined), "joined timestamp must survive the round trip")
	})

	t.Run("UpsertPreservesAssignment", func(t *testing.T) {
		// Re-writing a subject with a new stage must keep it a single record
		// and must not clobber fields the caller carried over.
		require.NoError(t, store.Write(ctx, []domain.Subject{
			{ID: "c-3", Stage: "intake", Group: "treatment"},
		}))
		require.NoError(t, store.Write(ctx, []domain.Subject{
			{ID: "c-3", Stage: "screened", Group: "treatment"},
		}))

		s, err := store.Get(ctx, "c-3")
		require.NoError(t, err)
		assert.Equal(t, "screened", s.Stage)
		assert.Equal(t, "treatment", s.Group)

		subjects, err := store.Fetch(ctx)
		require.NoError(t, err)
		count := 0
		for _, sub := range subjects {
			if sub.ID == "c-3" {
				count++
			}
		}
		assert.Equal(t, 1, count, "upsert must not duplicate the subject")
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := store.Get(ctx, "c-does-not-exist")
		assert.ErrorIs(t, err, domain.ErrSubjectNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Write(ctx, []domain.Subject{{ID: "c-4", Stage: "intake"}}))
		require.NoError(t, store.Delete(ctx, "c-4"))

		_, err := store.Get(ctx, "c-4")
		assert.ErrorIs(t, err, domain.ErrSubjectNotFound)
	})

	t.Run("WriteIsolation", func(t *testing.T) {
		// Mutating the caller's batch after Write must not reach the store.
		batch := []domain.Subject{
			{ID: "c-5", Stage: "intake", Attributes: map[string]any{"site": "porto"}},
		}
		require.NoError(t, store.Write(ctx, batch))

		batch[0].Attributes["site"] = "mutated"
		batch[0].Stage = "mutated"

		s, err := store.Get(ctx, "c-5")
		require.NoError(t, err)
		assert.Equal(t, "intake", s.Stage)
		assert.Equal(t, "porto", s.Attributes["site"])
	})

	t.Run("EmptyWrite", func(t *testing.T) {
		assert.NoError(t, store.Write(ctx, nil))
	})
}

// RunDefinitionLoaderContract exercises a DefinitionLoader seeded with the
// named experiments. Every listed definition must load and validate.
func RunDefinitionLoaderContract(t *testing.T, loader DefinitionLoader, want []string) {
	ctx := context.Background()

	t.Run("List", func(t *testing.T) {
		names, err := loader.List(ctx)
		require.NoError(t, err)
		for _, name := range want {
			assert.Contains(t, names, name)
		}
	})

	t.Run("LoadAll", func(t *testing.T) {
		for _, name := range want {
			def, err := loader.Load(ctx, name)
			require.NoError(t, err, "load %q", name)
			assert.Equal(t, name, def.Name)
			assert.NoError(t, def.Validate(), "definition %q must validate", name)
		}
	})

	t.Run("LoadMissing", func(t *testing.T) {
		_, err := loader.Load(ctx, "definitely-not-an-experiment")
		assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)
	})
}
