// Package cache provides the key-value caches the entity system keeps its
// derived data in: resolved entity data and per-type name maps.
//
// A DataCache stores opaque bytes with a TTL (zero keeps the entry until it
// is deleted). Backends:
//   - MemoryCache: ristretto, process local
//   - SQLiteCache: a cache table in its own SQLite file
//   - BadgerCache: badger with native entry TTLs
//
// EntityDataCache layers typed ir.EntityData on top of any DataCache. Each
// blob carries a data ID tag; entries written under a different tag read
// as misses, so bumping the tag invalidates a shared cache wholesale.
package cache
