// Package ir provides the shared data types of the entity-statement system.
//
// This package contains type definitions and their serialisation only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - A statement's payload is a sealed Value: EntityRef or Literal, never both
//   - Type arguments are TypeRef values: a TID or a type name, never a bare any
//   - TID 0 means "none" (an active statement has CancellationID 0)
//   - NO float types anywhere; numbers are int64
//   - All JSON tags use snake_case
package ir
