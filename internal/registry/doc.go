// Package registry holds the per-type configuration of an entity system:
// which statement storage and cache each entity type uses, its cache TTL,
// and whether its entity names are unique.
//
// Construction is two-phase. Types whose TIDs only exist in storage are
// registered with PlaceholderTID, the caller bootstraps or reads the schema,
// fills the TIDs in with SetTID, and finally calls Validate.
package registry
