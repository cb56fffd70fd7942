package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `json:"name"`
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	bolt, err := NewBoltKV(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bolt.Close() })
	return map[string]Store{
		"mem":  NewMemKV(),
		"bolt": bolt,
	}
}

func TestGetPutDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := s.Get(ctx, "missing", &sample{})
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Put(ctx, "a", sample{Name: "alice"}))
			var out sample
			ok, err = s.Get(ctx, "a", &out)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "alice", out.Name)

			require.NoError(t, s.Delete(ctx, "a"))
			ok, err = s.Get(ctx, "a", &out)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestListByPrefix(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.PutBatch(ctx, map[string]any{
				"checkpoint:a": sample{Name: "a"},
				"checkpoint:b": sample{Name: "b"},
				"manifest:c":   sample{Name: "c"},
			}))

			got, err := s.List(ctx, "checkpoint:")
			require.NoError(t, err)
			assert.Len(t, got, 2)
			_, ok := got["manifest:c"]
			assert.False(t, ok)
		})
	}
}
