// Package kv is the shard-local durable key/value store: a flat,
// JSON-valued, prefix-scannable namespace shared by the checkpoint
// manager, manifest store, and chunk-store metadata.
package kv

import (
	"context"
	"encoding/json"
)

// Store is the generic get/put/delete/list-by-prefix capability
// consumed throughout graphd.
type Store interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Put(ctx context.Context, key string, value any) error
	PutBatch(ctx context.Context, values map[string]any) error
	Delete(ctx context.Context, key string) error
	DeleteBatch(ctx context.Context, keys []string) error
	List(ctx context.Context, prefix string) (map[string]json.RawMessage, error)
	Close() error
}
