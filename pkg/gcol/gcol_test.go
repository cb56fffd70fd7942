package gcol

import (
	"testing"
	"time"

	"github.com/cuemby/graphd/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTriples(t *testing.T) []types.Triple {
	t.Helper()
	tx1, err := types.NewTxId(time.UnixMilli(1000))
	require.NoError(t, err)
	tx2, err := types.NewTxId(time.UnixMilli(2000))
	require.NoError(t, err)

	return []types.Triple{
		{Subject: "https://ex.com/alice", Predicate: "name", Object: types.StringObject("Alice"), Timestamp: 1000, TxId: tx1},
		{Subject: "https://ex.com/alice", Predicate: "age", Object: types.Int64Object(30), Timestamp: 1000, TxId: tx1},
		{Subject: "https://ex.com/alice", Predicate: "verified", Object: types.BoolObject(true), Timestamp: 1000, TxId: tx1},
		{Subject: "https://ex.com/alice", Predicate: "knows", Object: types.RefObject("https://ex.com/bob"), Timestamp: 2000, TxId: tx2},
		{Subject: "https://ex.com/alice", Predicate: "friends", Object: types.RefArrayObject([]types.EntityId{"https://ex.com/bob", "https://ex.com/carol"}), Timestamp: 2000, TxId: tx2},
		{Subject: "https://ex.com/alice", Predicate: "home", Object: types.GeoPointObject(37.7, -122.4), Timestamp: 2000, TxId: tx2},
		{Subject: "https://ex.com/bob", Predicate: "name", Object: types.StringObject("Bob"), Timestamp: 1500, TxId: tx1},
		{Subject: "https://ex.com/bob", Predicate: "birthday", Object: types.TimestampObject(time.Unix(0, 123456789).UTC()), Timestamp: 1500, TxId: tx1},
		{Subject: "https://ex.com/bob", Predicate: "bio", Object: types.JSONObject(`{"x":1}`), Timestamp: 1500, TxId: tx1},
	}
}

func TestEncodeDecodeV1RoundTrip(t *testing.T) {
	triples := sampleTriples(t)
	buf, err := Encode(triples, Version1)
	require.NoError(t, err)

	got, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, len(triples), len(got))
	assertSameTripleSet(t, triples, got)
}

func TestEncodeDecodeV2RoundTrip(t *testing.T) {
	triples := sampleTriples(t)
	buf, err := Encode(triples, Version2)
	require.NoError(t, err)

	got, err := Decode(buf)
	require.NoError(t, err)
	assertSameTripleSet(t, triples, got)
}

func TestDecodeV2ChecksumMismatch(t *testing.T) {
	buf, err := Encode(sampleTriples(t), Version2)
	require.NoError(t, err)
	buf[30] ^= 0xFF // corrupt a byte inside the data section

	_, err = Decode(buf)
	require.Error(t, err)
}

func TestDecodeEntityRejectsAbsentEntityWithoutDecoding(t *testing.T) {
	buf, err := Encode(sampleTriples(t), Version2)
	require.NoError(t, err)

	triples, ok, err := DecodeEntity(buf, "https://ex.com/nobody")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, triples)
}

func TestDecodeEntityReturnsOnlyThatSubjectsTriples(t *testing.T) {
	buf, err := Encode(sampleTriples(t), Version2)
	require.NoError(t, err)

	triples, ok, err := DecodeEntity(buf, "https://ex.com/bob")
	require.NoError(t, err)
	require.True(t, ok)
	for _, tr := range triples {
		assert.Equal(t, types.EntityId("https://ex.com/bob"), tr.Subject)
	}
	assert.Equal(t, 3, len(triples))
}

func assertSameTripleSet(t *testing.T, want, got []types.Triple) {
	t.Helper()
	require.Equal(t, len(want), len(got))
	index := make(map[string]types.Triple, len(got))
	for _, tr := range got {
		index[string(tr.Subject)+"|"+string(tr.Predicate)+"|"+string(tr.TxId)] = tr
	}
	for _, w := range want {
		g, ok := index[string(w.Subject)+"|"+string(w.Predicate)+"|"+string(w.TxId)]
		require.True(t, ok, "missing triple %+v", w)
		assert.Equal(t, w.Timestamp, g.Timestamp)
		assert.Equal(t, w.Object.Tag, g.Object.Tag)
		switch w.Object.Tag {
		case types.TagString, types.TagDate, types.TagJSON, types.TagURL:
			assert.Equal(t, w.Object.Str, g.Object.Str)
		case types.TagInt64:
			assert.Equal(t, w.Object.Int64, g.Object.Int64)
		case types.TagBool:
			assert.Equal(t, w.Object.Bool, g.Object.Bool)
		case types.TagRef:
			assert.Equal(t, w.Object.Ref, g.Object.Ref)
		case types.TagRefArray:
			assert.Equal(t, w.Object.RefArray, g.Object.RefArray)
		case types.TagGeoPoint:
			assert.Equal(t, w.Object.Geo, g.Object.Geo)
		case types.TagTimestamp:
			assert.True(t, w.Object.Time.Equal(g.Object.Time))
		}
	}
}
