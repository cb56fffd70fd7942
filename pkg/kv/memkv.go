package kv

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// MemKV is an in-memory Store used by tests throughout the module.
type MemKV struct {
	mu   sync.Mutex
	data map[string]json.RawMessage
}

func NewMemKV() *MemKV {
	return &MemKV{data: make(map[string]json.RawMessage)}
}

func (m *MemKV) Get(_ context.Context, key string, out any) (bool, error) {
	m.mu.Lock()
	raw, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (m *MemKV) Put(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = data
	m.mu.Unlock()
	return nil
}

func (m *MemKV) PutBatch(_ context.Context, values map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		m.data[k] = data
	}
	return nil
}

func (m *MemKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *MemKV) DeleteBatch(_ context.Context, keys []string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.data, k)
	}
	m.mu.Unlock()
	return nil
}

func (m *MemKV) List(_ context.Context, prefix string) (map[string]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]json.RawMessage)
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemKV) Close() error { return nil }
