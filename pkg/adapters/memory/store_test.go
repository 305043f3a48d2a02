package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/petri/pkg/domain"
	"github.com/aretw0/petri/pkg/ports"
)

func TestStoreContract(t *testing.T) {
	ports.RunSubjectStoreContract(t, New())
}

func TestSeed(t *testing.T) {
	subject := domain.NewSubject("p-1")
	subject.Attributes = map[string]any{"age": 42}

	store := New().Seed(*subject)
	require.Equal(t, 1, store.Len())

	got, err := store.Get(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", got.ID)

	// Mutating the seeded value must not leak into the store.
	subject.Attributes["age"] = 7
	got, err = store.Get(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, 42, got.Attributes["age"])
}

func TestFetchOrdersByID(t *testing.T) {
	store := New().Seed(
		*domain.NewSubject("c"),
		*domain.NewSubject("a"),
		*domain.NewSubject("b"),
	)

	subjects, err := store.Fetch(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(subjects))
	for i, s := range subjects {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}
