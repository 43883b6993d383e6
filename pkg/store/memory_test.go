package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)

	missing, err := m.Get(ctx, "cust-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	record := models.NewAggregationRecord("cust-1", time.Now().UTC())
	record.FullName = "Ina"
	require.NoError(t, m.Set(ctx, "cust-1", record))

	loaded, err := m.Get(ctx, "cust-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Ina", loaded.FullName)

	require.NoError(t, m.Delete(ctx, "cust-1"))
	gone, err := m.Get(ctx, "cust-1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestMemoryIsolatesStoredState(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)

	record := models.NewAggregationRecord("cust-1", time.Now().UTC())
	record.RawMessages = []string{"one"}
	require.NoError(t, m.Set(ctx, "cust-1", record))

	// Mutating the original after Set must not leak into the store.
	record.FullName = "Changed"
	record.RawMessages = append(record.RawMessages, "two")

	loaded, err := m.Get(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, loaded.FullName)
	assert.Equal(t, []string{"one"}, loaded.RawMessages)

	// Mutating a loaded copy must not leak either.
	loaded.FullName = "Other"
	again, err := m.Get(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, again.FullName)
}

func TestMemoryCleanupStale(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	m := NewMemory(3 * time.Minute)
	m.now = func() time.Time { return now }

	fresh := models.NewAggregationRecord("fresh", now.Add(-time.Minute))
	stale := models.NewAggregationRecord("stale", now.Add(-10*time.Minute))
	require.NoError(t, m.Set(ctx, "fresh", fresh))
	require.NoError(t, m.Set(ctx, "stale", stale))

	evicted, err := m.CleanupStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)

	keys, err := m.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, keys)
}

func TestMemoryKeys(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)

	keys, err := m.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	now := time.Now().UTC()
	require.NoError(t, m.Set(ctx, "a", models.NewAggregationRecord("a", now)))
	require.NoError(t, m.Set(ctx, "b", models.NewAggregationRecord("b", now)))

	keys, err = m.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}
