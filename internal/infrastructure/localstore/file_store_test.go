package localstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SetGetRemove(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "session", []byte(`{"access_token":"a"}`)))

	data, err := store.Get(ctx, "session")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"access_token":"a"}`), data)

	require.NoError(t, store.Remove(ctx, "session"))

	data, err = store.Get(ctx, "session")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestFileStore_GetAbsentKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	data, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestFileStore_RemoveAbsentKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Remove(context.Background(), "missing"))
}

func TestFileStore_OverwriteKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v1")))
	require.NoError(t, store.Set(ctx, "k", []byte("v2")))

	data, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}
