// Package schema holds the bootstrap vocabulary of the entity system: the
// fixed TIDs of the system entity, the metadata predicates and the three
// meta-types, plus the standard names of every type, attribute, relation and
// data type seeded on an empty store.
//
// Metadata predicates have fixed TIDs so that storage backends can map them
// to dedicated columns before any schema exists in storage.
package schema
