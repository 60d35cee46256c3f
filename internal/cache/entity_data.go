package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/entsys/internal/ir"
)

// EntityDataKeyPrefix prefixes entity data keys.
const EntityDataKeyPrefix = "EntityData-"

// EntityDataCache stores resolved ir.EntityData in a DataCache.
type EntityDataCache struct {
	cache  DataCache
	prefix string
	dataID string
}

// NewEntityDataCache wraps c. prefix namespaces keys when c is shared;
// dataID tags every blob written.
func NewEntityDataCache(c DataCache, prefix, dataID string) *EntityDataCache {
	return &EntityDataCache{cache: c, prefix: prefix, dataID: dataID}
}

// Key returns the cache key for entity id.
func (c *EntityDataCache) Key(id int64) string {
	return Key(c.prefix, EntityDataKeyPrefix+strconv.FormatInt(id, 10))
}

type entityDataBlob struct {
	DataID string        `json:"data_id"`
	Entity ir.EntityData `json:"entity"`
}

// Get returns the cached data for id. A missing entry, one written under
// another data ID, or one that fails to decode is ErrMiss.
func (c *EntityDataCache) Get(ctx context.Context, id int64) (ir.EntityData, error) {
	raw, err := c.cache.Get(ctx, c.Key(id))
	if err != nil {
		return ir.EntityData{}, err
	}
	var blob entityDataBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return ir.EntityData{}, ErrMiss
	}
	if blob.DataID != c.dataID || blob.Entity.ID != id {
		return ir.EntityData{}, ErrMiss
	}
	return blob.Entity, nil
}

// Put stores data for id. A zero ttl keeps it until invalidated.
func (c *EntityDataCache) Put(ctx context.Context, id int64, data ir.EntityData, ttl time.Duration) error {
	raw, err := ir.MarshalCanonical(map[string]any{
		"data_id": c.dataID,
		"entity":  data,
	})
	if err != nil {
		return fmt.Errorf("encode entity data %d: %w", id, err)
	}
	return c.cache.Set(ctx, c.Key(id), raw, ttl)
}

// Invalidate drops the entry for id.
func (c *EntityDataCache) Invalidate(ctx context.Context, id int64) error {
	return c.cache.Delete(ctx, c.Key(id))
}
