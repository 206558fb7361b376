package storage

import (
	"context"

	"fintrack/internal/cache"
)

// CachedStore is a read-through, write-through cache in front of a Store.
type CachedStore struct {
	next  Store
	cache *cache.LRUCache[[]byte]
}

// NewCachedStore wraps next with c.
func NewCachedStore(next Store, c *cache.LRUCache[[]byte]) *CachedStore {
	return &CachedStore{next: next, cache: c}
}

func (s *CachedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := s.cache.Get(key); ok {
		return clone(v), true, nil
	}
	v, found, err := s.next.Get(ctx, key)
	if err != nil || !found {
		return v, found, err
	}
	s.cache.Set(key, clone(v))
	return v, true, nil
}

func (s *CachedStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.next.Set(ctx, key, value); err != nil {
		s.cache.Delete(key)
		return err
	}
	s.cache.Set(key, clone(value))
	return nil
}

func (s *CachedStore) SetMany(ctx context.Context, values map[string][]byte) error {
	if err := SetMany(ctx, s.next, values); err != nil {
		for k := range values {
			s.cache.Delete(k)
		}
		return err
	}
	for k, v := range values {
		s.cache.Set(k, clone(v))
	}
	return nil
}

func (s *CachedStore) Ping(ctx context.Context) error {
	return Ping(ctx, s.next)
}

func (s *CachedStore) Close() error {
	return s.next.Close()
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
