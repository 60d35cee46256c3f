// Package entity implements the entity system: the orchestrator that turns
// entity and statement operations into commands against statement storage.
//
// A System owns a type registry and an ID generator. Statement storages and
// data caches are injected and may be shared between systems, partitioned
// by entity type.
//
// CONSTRUCTION:
//
// New builds the registry in two phases:
//  1. Skeleton: the standard types are registered with their storage and
//     cache. The meta-types (EntityType, Attribute, Relation) carry fixed
//     TIDs, every other type starts on registry.PlaceholderTID.
//  2. If the EntityType name map is empty the schema is bootstrapped. The
//     TIDs of all types are then filled in from the name map and the
//     registry is validated.
//
// CACHES:
//
// Three caches sit in front of storage:
//   - name maps, one per uniquely named type, in the system cache
//   - entity data, per type, in that type's cache
//   - entity types, in an in-process ristretto cache
//
// Every write invalidates what it touched after the write succeeded. A
// cache failure is logged and never fails a read: the data is rebuilt
// from statements.
//
// Thread-safety: a System is safe for concurrent use as far as its
// storages are.
package entity
