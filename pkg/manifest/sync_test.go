package manifest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/graphd/pkg/blobstore"
	"github.com/cuemby/graphd/pkg/bloom"
)

func TestFullSyncPullsOnVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	blobs := blobstore.NewMemStore()
	sy := NewSyncer(store, blobs)

	r2 := Manifest{Namespace: "ns", Version: "v2", Chunks: []ChunkInfo{{ID: "c1"}}, CombinedBloom: bloom.New(10, 0.01).Serialize()}
	data, err := json.Marshal(r2)
	require.NoError(t, err)
	require.NoError(t, blobs.Put(ctx, manifestBlobPath("ns"), data, blobstore.PutOptions{}))

	local := Manifest{Namespace: "ns", Version: "v1", Chunks: []ChunkInfo{{ID: "local-only"}}}
	require.NoError(t, store.ImportFromR2Manifest(ctx, local))

	res := sy.FullSync(ctx, "ns")
	require.True(t, res.Success)
	assert.Equal(t, DirectionPull, res.Direction)
	assert.Equal(t, 1, res.Conflicts)

	got, ok, err := store.ExportToR2Manifest(ctx, "ns")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", got.Version)
}

func TestFullSyncNoopWhenNeitherSideHasData(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	blobs := blobstore.NewMemStore()
	sy := NewSyncer(store, blobs)

	res := sy.FullSync(ctx, "ns-empty")
	require.True(t, res.Success)
	assert.Equal(t, DirectionNone, res.Direction)
}

func TestFullSyncPushesWhenOnlyLocalHasData(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	blobs := blobstore.NewMemStore()
	sy := NewSyncer(store, blobs)

	local := Manifest{Namespace: "ns-push", Version: "v1", Chunks: []ChunkInfo{{ID: "c1"}}}
	require.NoError(t, store.ImportFromR2Manifest(ctx, local))

	res := sy.FullSync(ctx, "ns-push")
	require.True(t, res.Success)
	assert.Equal(t, DirectionPush, res.Direction)

	_, data, err := blobs.Get(ctx, manifestBlobPath("ns-push"), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
