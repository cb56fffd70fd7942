package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxIdRoundTripsTimestamp(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond).UTC()
	id, err := NewTxId(now)
	require.NoError(t, err)
	assert.Len(t, string(id), 26)
	assert.Equal(t, now, id.Time())
}

func TestTxIdSortsLexicographically(t *testing.T) {
	t1 := time.Now().Truncate(time.Millisecond).UTC()
	t2 := t1.Add(5 * time.Millisecond)

	id1, err := NewTxId(t1)
	require.NoError(t, err)
	id2, err := NewTxId(t2)
	require.NoError(t, err)

	assert.Less(t, string(id1), string(id2))
}

func TestTypedObjectConstructors(t *testing.T) {
	assert.True(t, RefObject("e1").IsRef())
	assert.True(t, RefArrayObject([]EntityId{"e1", "e2"}).IsRef())
	assert.False(t, StringObject("x").IsRef())
	assert.Equal(t, "GEO_POINT", TagGeoPoint.String())
}
