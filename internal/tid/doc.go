// Package tid generates and converts entity identifiers (TIDs).
//
// A TID is a positive 64-bit integer derived from the wall clock in
// milliseconds since the Unix epoch. The generator guarantees that no two
// calls sharing the same lock file return the same value, even within a
// single millisecond, by persisting the last issued TID and handing out
// strictly greater values.
//
// # Encodings
//
// TIDs have an alphanumeric base-36 form (uppercase, at most 11 characters
// for any realistic generation date) and a numeric base-10 form. FromString
// decodes both: strings of 12 or more decimal digits are read as base-10,
// everything else as base-36. Generated TIDs are far above 1e11, so their
// base-10 form always has at least 12 digits and never collides with a
// base-36 string.
//
// # UUID equivalence
//
// Every valid TID maps to exactly one version-1 UUID whose
// 60-bit timestamp field carries the TID and whose node field is NodeID.
package tid
