// Package kv is a narrow port over a durable, synchronous string store.
package kv

import (
	"github.com/patrickmn/go-cache"
)

// Store is a synchronous string key/value store with no expiry of its own.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// MemoryStore keeps values in process memory. Entries never expire.
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	v, found := m.c.Get(key)
	if !found {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.c.Set(key, value, cache.NoExpiration)
	return nil
}

func (m *MemoryStore) Remove(key string) error {
	m.c.Delete(key)
	return nil
}
