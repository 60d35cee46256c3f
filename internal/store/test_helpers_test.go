package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/schema"
)

// createTestStore creates a new SQLite store in a temp dir for testing.
func createTestStore(t *testing.T, opts ...SQLiteOption) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBadger creates a new in-memory badger store for testing.
func createTestBadger(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := OpenBadger(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadger() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// backends maps a backend name to a constructor for a fresh instance.
var backends = map[string]func(t *testing.T) StatementStorage{
	"sqlite": func(t *testing.T) StatementStorage {
		return createTestStore(t)
	},
	"sqlite-no-columns": func(t *testing.T) StatementStorage {
		return createTestStore(t, WithMetadataColumns(false))
	},
	"badger": func(t *testing.T) StatementStorage {
		return createTestBadger(t)
	},
	"memory": func(t *testing.T) StatementStorage {
		return NewMemoryStore()
	},
}

// forEachBackend runs fn against a fresh store of every backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, s StatementStorage)) {
	t.Helper()
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

// editMetadata is the metadata the core writes for every statement, in the
// order the SQLite backend reconstructs it.
func editMetadata(editor, group int64, ts string) []ir.MetadataPair {
	return []ir.MetadataPair{
		ir.M(schema.RelationStatementEditor, ir.EntityRef(editor)),
		ir.M(schema.AttributeEditTimestamp, ir.Literal(ts)),
		ir.M(schema.RelationStatementGroup, ir.EntityRef(group)),
	}
}

// cancelMetadata mirrors editMetadata for cancellations.
func cancelMetadata(editor int64, ts string) []ir.MetadataPair {
	return []ir.MetadataPair{
		ir.M(schema.RelationCancelledBy, ir.EntityRef(editor)),
		ir.M(schema.AttributeCancellationTimestamp, ir.Literal(ts)),
	}
}
