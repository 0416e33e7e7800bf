package objstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_PutGetDelete(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "doc-1", []byte("payload")))

	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, store.Delete(ctx, "doc-1"))
	_, err = store.Get(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting again is a no-op
	require.NoError(t, store.Delete(ctx, "doc-1"))
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "doc-1", []byte("abc")))

	got, _ := store.Get(ctx, "doc-1")
	got[0] = 'z'

	again, _ := store.Get(ctx, "doc-1")
	assert.Equal(t, []byte("abc"), again)
}

func TestMemory_Copy(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "src", []byte("data")))
	require.NoError(t, store.Copy(ctx, "src", "dst"))

	got, err := store.Get(ctx, "dst")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)

	err = store.Copy(ctx, "missing", "dst2")
	assert.ErrorIs(t, err, ErrNotFound)
}
