package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// MemoryOptions sizes a MemoryCache.
type MemoryOptions struct {
	// MaxCost is the total size of cached values in bytes.
	MaxCost int64
	// NumCounters is the number of keys tracked for admission, usually
	// ten times the expected number of entries.
	NumCounters int64
}

// DefaultMemoryOptions allows 64 MiB of values.
var DefaultMemoryOptions = MemoryOptions{
	MaxCost:     64 << 20,
	NumCounters: 1_000_000,
}

// MemoryCache is a process-local DataCache on ristretto.
type MemoryCache struct {
	c *ristretto.Cache[string, []byte]
}

var _ DataCache = (*MemoryCache)(nil)

// NewMemoryCache creates a ristretto-backed cache.
func NewMemoryCache(opts MemoryOptions) (*MemoryCache, error) {
	if opts.MaxCost <= 0 {
		opts.MaxCost = DefaultMemoryOptions.MaxCost
	}
	if opts.NumCounters <= 0 {
		opts.NumCounters = DefaultMemoryOptions.NumCounters
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: opts.NumCounters,
		MaxCost:     opts.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create memory cache: %w", err)
	}
	return &MemoryCache{c: c}, nil
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value. Ristretto may drop a write under contention;
// the next Get then misses and the caller rebuilds.
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	v := append([]byte(nil), value...)
	m.c.SetWithTTL(key, v, int64(len(v))+int64(len(key)), ttl)
	m.c.Wait()
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.c.Del(key)
	m.c.Wait()
	return nil
}

// Clear drops every entry.
func (m *MemoryCache) Clear() {
	m.c.Clear()
}

// Close stops ristretto's background goroutines.
func (m *MemoryCache) Close() {
	m.c.Close()
}
