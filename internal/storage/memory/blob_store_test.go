package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	uri, err := store.PutObject(context.Background(), "run-bonds-raw.csv", "text/csv", bytes.NewReader([]byte("content")))
	require.NoError(t, err)
	assert.Equal(t, "memory://run-bonds-raw.csv", uri)

	got, contentType, ok := store.Object("run-bonds-raw.csv")
	require.True(t, ok)
	assert.Equal(t, "text/csv", contentType)
	got[0] = 'C'

	again, _, _ := store.Object("run-bonds-raw.csv")
	assert.Equal(t, "content", string(again), "Object returns a copy")
}

func TestBlobStorePaths(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	for _, p := range []string{"b.csv", "a.csv", "c.png"} {
		_, err := store.PutObject(context.Background(), p, "", bytes.NewReader(nil))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a.csv", "b.csv", "c.png"}, store.Paths())

	_, _, ok := store.Object("missing")
	assert.False(t, ok)
}
