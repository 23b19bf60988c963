package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() }) //nolint:errcheck

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestStoreEmpty(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := store.Cursor(context.Background(), "orders")
			require.NoError(t, err)
			assert.False(t, ok)

			_, ok, err = store.SinceID(context.Background(), "orders")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStoreCommitRoundTrip(t *testing.T) {
	cursor := time.Date(2023, 1, 2, 3, 4, 5, 678901000, time.UTC)

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			sinceID := int64(42)
			require.NoError(t, store.Commit(context.Background(), "orders", cursor, &sinceID))

			got, ok, err := store.Cursor(context.Background(), "orders")
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, cursor.Equal(got), "cursor round-trips with microsecond precision")

			id, ok, err := store.SinceID(context.Background(), "orders")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, int64(42), id)
		})
	}
}

func TestStoreNilSinceIDClearsInProgress(t *testing.T) {
	cursor := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			sinceID := int64(7)
			require.NoError(t, store.Commit(context.Background(), "orders", cursor, &sinceID))
			require.NoError(t, store.Commit(context.Background(), "orders", cursor.Add(24*time.Hour), nil))

			_, ok, err := store.SinceID(context.Background(), "orders")
			require.NoError(t, err)
			assert.False(t, ok)

			got, ok, _ := store.Cursor(context.Background(), "orders")
			require.True(t, ok)
			assert.True(t, cursor.Add(24*time.Hour).Equal(got))
		})
	}
}

func TestStoreStreamsAreIndependent(t *testing.T) {
	cursor := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Commit(context.Background(), "orders", cursor, nil))

			_, ok, err := store.Cursor(context.Background(), "products")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	cursor := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	sinceID := int64(99)
	require.NoError(t, store.Commit(context.Background(), "orders", cursor, &sinceID))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close() //nolint:errcheck

	got, ok, err := reopened.Cursor(context.Background(), "orders")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cursor.Equal(got))

	id, ok, err := reopened.SinceID(context.Background(), "orders")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(99), id)
}
