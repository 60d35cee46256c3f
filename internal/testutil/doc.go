// Package testutil provides deterministic time and identifier sources for
// tests: a manually driven millisecond clock and a sequential TID generator.
package testutil
