package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalWriteReadRoundTrip(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Write("tickets/TCK-1.json", []byte(`{"id":"TCK-1"}`)))

	data, err := store.Read("tickets/TCK-1.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"TCK-1"}`, string(data))
}

func TestLocalReadMissingKey(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read("tickets/nope.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalOverwriteReplacesContent(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Write("experts.json", []byte("v1")))
	require.NoError(t, store.Write("experts.json", []byte("v2")))

	data, err := store.Read("experts.json")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestLocalListPrefix(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Write("tickets/TCK-1.json", []byte("a")))
	require.NoError(t, store.Write("tickets/TCK-2.json", []byte("b")))
	require.NoError(t, store.Write("experts.json", []byte("c")))

	keys, err := store.List("tickets")
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	exists, err := store.Exists("experts.json")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists("missing.json")
	require.NoError(t, err)
	assert.False(t, exists)
}
