package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/graphd/pkg/graphdberr"
)

var rootBucket = []byte("graphd")

// BoltKV is a Store backed by a single bbolt database file, collapsed
// to one generic bucket since graphd's KV consumers (checkpoints,
// manifests, chunk metadata) all key by opaque prefixed strings
// rather than per-entity CRUD methods.
type BoltKV struct {
	db *bolt.DB
}

// NewBoltKV opens (creating if necessary) a bbolt database under
// dataDir named "graphd.db".
func NewBoltKV(dataDir string) (*BoltKV, error) {
	path := filepath.Join(dataDir, "graphd.db")
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, graphdberr.Wrap(graphdberr.CodeStorageWrite, "open bolt db", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, graphdberr.Wrap(graphdberr.CodeStorageWrite, "create root bucket", err)
	}
	return &BoltKV{db: db}, nil
}

func (s *BoltKV) Get(_ context.Context, key string, out any) (bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(rootBucket).Get([]byte(key))
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return false, graphdberr.Wrap(graphdberr.CodeStorageRead, "bolt get", err)
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, graphdberr.Wrap(graphdberr.CodeStorageRead, "unmarshal kv value", err)
	}
	return true, nil
}

func (s *BoltKV) Put(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "marshal kv value", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).Put([]byte(key), data)
	})
	if err != nil {
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "bolt put", err)
	}
	return nil
}

func (s *BoltKV) PutBatch(_ context.Context, values map[string]any) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(rootBucket)
		for k, v := range values {
			data, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("marshal %q: %w", k, err)
			}
			if err := b.Put([]byte(k), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "bolt batch put", err)
	}
	return nil
}

func (s *BoltKV) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).Delete([]byte(key))
	})
	if err != nil {
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "bolt delete", err)
	}
	return nil
}

func (s *BoltKV) DeleteBatch(_ context.Context, keys []string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(rootBucket)
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "bolt batch delete", err)
	}
	return nil
}

func (s *BoltKV) List(_ context.Context, prefix string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(rootBucket).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && hasPrefix(k, p); k, v = c.Next() {
			out[string(k)] = append(json.RawMessage(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, graphdberr.Wrap(graphdberr.CodeStorageRead, "bolt prefix scan", err)
	}
	return out, nil
}

func (s *BoltKV) Close() error { return s.db.Close() }

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}
