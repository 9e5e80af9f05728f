package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/finrag-go/internal/domain/entities"
	"github.com/finsight/finrag-go/internal/domain/ports"
)

// Both implementations must satisfy the same contract, so every test runs
// against both.
func stores(t *testing.T) map[string]ports.Store {
	t.Helper()
	sqlite, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]ports.Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestStore_UnitsRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			id1, err := s.PutUnit(ctx, "first unit", []float32{0.1, 0.2})
			require.NoError(t, err)
			id2, err := s.PutUnit(ctx, "second unit", []float32{0.3, 0.4})
			require.NoError(t, err)
			assert.NotEqual(t, id1, id2)

			units, err := s.ListUnits(ctx)
			require.NoError(t, err)
			require.Len(t, units, 2)
			assert.Equal(t, "first unit", units[0].Text)
			assert.Equal(t, []float32{0.1, 0.2}, units[0].Vector)
			assert.Less(t, units[0].Seq, units[1].Seq, "newer units get larger seq")
		})
	}
}

func TestStore_DeleteUnit(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			id, err := s.PutUnit(ctx, "doomed", []float32{1})
			require.NoError(t, err)
			_, err = s.PutUnit(ctx, "survivor", []float32{2})
			require.NoError(t, err)

			require.NoError(t, s.DeleteUnit(ctx, id))

			units, err := s.ListUnits(ctx)
			require.NoError(t, err)
			require.Len(t, units, 1)
			assert.Equal(t, "survivor", units[0].Text)

			// Deleting an unknown id is a no-op.
			assert.NoError(t, s.DeleteUnit(ctx, "no-such-id"))
		})
	}
}

func TestStore_ClearUnits(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.PutUnit(ctx, "unit", []float32{1})
			require.NoError(t, err)
			require.NoError(t, s.ClearUnits(ctx))

			units, err := s.ListUnits(ctx)
			require.NoError(t, err)
			assert.Empty(t, units)
		})
	}
}

func TestStore_TurnsOrderAndLimit(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.AppendTurn(ctx, entities.RoleUser, "one"))
			require.NoError(t, s.AppendTurn(ctx, entities.RoleAssistant, "two"))
			require.NoError(t, s.AppendTurn(ctx, entities.RoleUser, "three"))

			all, err := s.ListTurns(ctx, -1)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "one", all[0].Text)
			assert.Equal(t, "three", all[2].Text)

			recent, err := s.ListTurns(ctx, 2)
			require.NoError(t, err)
			require.Len(t, recent, 2)
			assert.Equal(t, "two", recent[0].Text)
			assert.Equal(t, "three", recent[1].Text)

			none, err := s.ListTurns(ctx, 0)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestStore_ClearTurns(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.AppendTurn(ctx, entities.RoleUser, "hello"))
			require.NoError(t, s.ClearTurns(ctx))

			turns, err := s.ListTurns(ctx, -1)
			require.NoError(t, err)
			assert.Empty(t, turns)
		})
	}
}

func TestStore_Flags(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := s.GetFlag(ctx, "seed_corpus")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.SetFlag(ctx, "seed_corpus", "done"))

			value, ok, err := s.GetFlag(ctx, "seed_corpus")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "done", value)

			require.NoError(t, s.SetFlag(ctx, "seed_corpus", "v2"))
			value, _, err = s.GetFlag(ctx, "seed_corpus")
			require.NoError(t, err)
			assert.Equal(t, "v2", value)
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	_, err = s.PutUnit(ctx, "durable unit", []float32{0.5})
	require.NoError(t, err)
	require.NoError(t, s.AppendTurn(ctx, entities.RoleUser, "durable turn"))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	units, err := s.ListUnits(ctx)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "durable unit", units[0].Text)

	turns, err := s.ListTurns(ctx, -1)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "durable turn", turns[0].Text)

	count, err := s.UnitCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
