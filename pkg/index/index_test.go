package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/graphd/pkg/blobstore"
	"github.com/cuemby/graphd/pkg/sqlstore"
	"github.com/cuemby/graphd/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func TestPOSEquality(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.IndexTriple(ctx, types.Triple{
		Subject: "e1", Predicate: "age", Object: types.Int64Object(30), Timestamp: 1,
	}))
	require.NoError(t, s.IndexTriple(ctx, types.Triple{
		Subject: "e2", Predicate: "age", Object: types.Int64Object(30), Timestamp: 1,
	}))
	require.NoError(t, s.IndexTriple(ctx, types.Triple{
		Subject: "e3", Predicate: "age", Object: types.Int64Object(40), Timestamp: 1,
	}))

	subjects, err := s.POS().Equality(ctx, "age", types.Int64Object(30))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"e1", "e2"}, subjects)
}

func TestOSPReferrers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.IndexTriple(ctx, types.Triple{
		Subject: "e1", Predicate: "friend", Object: types.RefObject("e2"), Timestamp: 1,
	}))
	require.NoError(t, s.IndexTriple(ctx, types.Triple{
		Subject: "e3", Predicate: "friend", Object: types.RefObject("e2"), Timestamp: 1,
	}))

	referrers, err := s.OSP().Referrers(ctx, "e2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"e1", "e3"}, referrers)
}

func TestFTSSearchRanksMoreRelevantDocHigher(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.IndexTriple(ctx, types.Triple{
		Subject: "e1", Predicate: "bio", Object: types.StringObject("graph database engine for knowledge graphs"), Timestamp: 1,
	}))
	require.NoError(t, s.IndexTriple(ctx, types.Triple{
		Subject: "e2", Predicate: "bio", Object: types.StringObject("a simple cooking blog about pasta"), Timestamp: 1,
	}))

	hits, err := s.FTS().Search(ctx, "graph knowledge", "", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "e1", hits[0].EntityID)
}

func TestGeoRadiusFindsNearbyPoints(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.IndexTriple(ctx, types.Triple{
		Subject: "near", Predicate: "loc", Object: types.TypedObject{Tag: types.TagGeoPoint, Geo: types.GeoPoint{Lat: 40.7128, Lng: -74.0060}}, Timestamp: 1,
	}))
	require.NoError(t, s.IndexTriple(ctx, types.Triple{
		Subject: "far", Predicate: "loc", Object: types.TypedObject{Tag: types.TagGeoPoint, Geo: types.GeoPoint{Lat: 34.0522, Lng: -118.2437}}, Timestamp: 1,
	}))

	hits, err := s.GEO().Radius(ctx, 40.7128, -74.0060, 10)
	require.NoError(t, err)
	var ids []string
	for _, h := range hits {
		ids = append(ids, h.EntityID)
	}
	assert.Contains(t, ids, "near")
	assert.NotContains(t, ids, "far")
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	blobs := blobstore.NewMemStore()

	require.NoError(t, s.IndexTriple(ctx, types.Triple{
		Subject: "e1", Predicate: "age", Object: types.Int64Object(30), Timestamp: 1,
	}))
	require.NoError(t, s.IndexTriple(ctx, types.Triple{
		Subject: "e1", Predicate: "bio", Object: types.StringObject("hello world"), Timestamp: 1,
	}))

	require.NoError(t, s.SnapshotTo(ctx, blobs, "ns"))

	restored := newTestStore(t)
	found, err := restored.RestoreFrom(ctx, blobs, "ns")
	require.NoError(t, err)
	require.True(t, found)

	subjects, err := restored.POS().Equality(ctx, "age", types.Int64Object(30))
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, subjects)

	hits, err := restored.FTS().Search(ctx, "hello", "", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "e1", hits[0].EntityID)
}

func TestRestoreFromMissingSnapshotReturnsFalse(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	blobs := blobstore.NewMemStore()

	found, err := s.RestoreFrom(ctx, blobs, "absent-ns")
	require.NoError(t, err)
	assert.False(t, found)
}
