package entity

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/entsys/internal/cache"
	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/store"
	"github.com/roach88/entsys/internal/testutil"
)

// testEpoch is 2023-11-14T22:13:20Z.
const testEpoch int64 = 1_700_000_000_000

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestCache(t *testing.T) *cache.MemoryCache {
	t.Helper()
	c, err := cache.NewMemoryCache(cache.MemoryOptions{MaxCost: 8 << 20, NumCounters: 10_000})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

// testConfig returns a config over a fresh memory store and cache with a
// deterministic generator and clock.
func testConfig(t *testing.T) Config {
	t.Helper()
	clock := testutil.NewManualClock(testEpoch)
	return Config{
		Default:   Partition{Storage: store.NewMemoryStore(), Cache: createTestCache(t)},
		Generator: testutil.NewSequenceGenerator(0),
		Now:       clock.Now,
		Logger:    discardLogger(),
	}
}

func createTestSystem(t *testing.T, cfg Config) *System {
	t.Helper()
	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func createTestSQLite(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "statements.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func createTestBadger(t *testing.T) *store.BadgerStore {
	t.Helper()
	st, err := store.OpenBadger(store.BadgerOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// storageBackends maps a backend name to a constructor for a fresh
// statement storage.
var storageBackends = map[string]func(t *testing.T) store.StatementStorage{
	"memory": func(t *testing.T) store.StatementStorage { return store.NewMemoryStore() },
	"sqlite": func(t *testing.T) store.StatementStorage { return createTestSQLite(t) },
	"badger": func(t *testing.T) store.StatementStorage { return createTestBadger(t) },
}

func mustCreateType(t *testing.T, s *System, name string, unique bool) int64 {
	t.Helper()
	tid, err := s.CreateEntityType(context.Background(), name, "", unique, 0, time.Time{})
	require.NoError(t, err)
	return tid
}

func mustCreate(t *testing.T, s *System, typeName, name string) int64 {
	t.Helper()
	tid, err := s.CreateEntity(context.Background(), ir.TypeName(typeName), name, "", 0, time.Time{})
	require.NoError(t, err)
	return tid
}

// activeStatement returns the single active statement (subject, predicate).
func activeStatement(t *testing.T, s *System, subject, predicate int64) ir.Statement {
	t.Helper()
	rows, err := s.FindStatements(context.Background(), store.Query{
		Subject:   store.Int64(subject),
		Predicate: store.Int64(predicate),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0]
}
