package manifest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/graphd/pkg/kv"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(kv.NewMemKV(), Config{})
	require.NoError(t, err)
	return s
}

func TestManifestRowRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	row := Row{Namespace: ".com/.example/title", Path: "chunk1.gcol", EntityCount: 5, Version: "v1"}
	require.NoError(t, s.Put(ctx, row))

	got, ok, err := s.Get(ctx, row.Namespace, row.Path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, row.EntityCount, got.EntityCount)

	require.NoError(t, s.Delete(ctx, row.Namespace, row.Path))
	_, ok, err = s.Get(ctx, row.Namespace, row.Path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntityIndexLookup(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	ns := ".com/.example/title"
	entries := []EntityIndexEntry{
		{EntityID: "https://example.com/title/1", FilePath: "chunk1.gcol", ByteOffset: 0, ByteLength: 10},
		{EntityID: "https://example.com/title/2", FilePath: "chunk1.gcol", ByteOffset: 10, ByteLength: 10},
	}
	require.NoError(t, s.PutEntityIndex(ctx, ns, entries))

	e, ok, err := s.LookupEntity(ctx, "https://example.com/title/2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(10), e.ByteOffset)

	_, ok, err = s.LookupEntity(ctx, "https://example.com/title/missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
