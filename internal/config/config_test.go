package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entsys/internal/entity"
	"github.com/roach88/entsys/internal/schema"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entsys.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "data_dir: "+dir+"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "tid.lock"), cfg.TIDFile)
	assert.Equal(t, StorageConfig{Backend: BackendSQLite, Path: filepath.Join(dir, "statements.db")}, cfg.Storage)
	assert.False(t, cfg.System.IsSet())
	assert.Empty(t, cfg.Partitions)
	assert.Equal(t, BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, entity.DefaultCacheDataID, cfg.Cache.DataID)
	assert.Equal(t, entity.DefaultCacheTTL, cfg.Cache.DefaultTTL)
	assert.Equal(t, int64(64), cfg.Cache.MaxCostMB)
	assert.Equal(t, []int64{schema.AttributeEditorialNote}, cfg.MetadataAllowList)
	assert.Equal(t, LoggingConfig{Level: "info", Format: "text"}, cfg.Logging)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
data_dir: `+dir+`
storage:
  backend: badger
system:
  backend: sqlite
  path: `+filepath.Join(dir, "schema.db")+`
partitions:
  - type: Book
    storage:
      backend: sqlite
    cache_ttl: 24h
  - type: Person
    cache_ttl: 1h
cache:
  backend: sqlite
  prefix: prod
  default_ttl: 72h
metadata_allow_list: [25, 21]
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StorageConfig{Backend: BackendBadger, Path: filepath.Join(dir, "statements")}, cfg.Storage)
	assert.Equal(t, filepath.Join(dir, "schema.db"), cfg.System.Path)
	require.Len(t, cfg.Partitions, 2)
	assert.Equal(t, "Book", cfg.Partitions[0].Type, "type names keep their case")
	assert.Equal(t, StorageConfig{Backend: BackendSQLite, Path: filepath.Join(dir, "partition-book.db")}, cfg.Partitions[0].Storage)
	assert.Equal(t, 24*time.Hour, cfg.Partitions[0].CacheTTL)
	assert.False(t, cfg.Partitions[1].Storage.IsSet())
	assert.Equal(t, time.Hour, cfg.Partitions[1].CacheTTL)
	assert.Equal(t, filepath.Join(dir, "cache.db"), cfg.Cache.Path)
	assert.Equal(t, "prod", cfg.Cache.Prefix)
	assert.Equal(t, 72*time.Hour, cfg.Cache.DefaultTTL)
	assert.Equal(t, []int64{25, 21}, cfg.MetadataAllowList)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Environment(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "data_dir: "+filepath.Join(dir, "ignored")+"\n")
	t.Setenv("ENTSYS_DATA_DIR", dir)
	t.Setenv("ENTSYS_CACHE_BACKEND", "badger")
	t.Setenv("ENTSYS_LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, BackendBadger, cfg.Cache.Backend)
	assert.Equal(t, filepath.Join(dir, "cache"), cfg.Cache.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown storage backend", "storage:\n  backend: postgres\n", "schema"},
		{"unknown log level", "logging:\n  level: loud\n", "schema"},
		{"type with colon", "partitions:\n  - type: 'Book:Novel'\n", "schema"},
		{"negative ttl", "cache:\n  default_ttl: -1h\n", "schema"},
		{"zero allow-list entry", "metadata_allow_list: [0]\n", "schema"},
		{"duplicate partition", "partitions:\n  - type: Book\n  - type: Book\n", "configured twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "data_dir: "+t.TempDir()+"\n"+tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_PathCollisions(t *testing.T) {
	dir := t.TempDir()
	base := func() *Config {
		cfg := &Config{
			DataDir: dir,
			TIDFile: filepath.Join(dir, "tid.lock"),
			Storage: StorageConfig{Backend: BackendSQLite, Path: filepath.Join(dir, "a.db")},
			Cache:   CacheConfig{Backend: BackendMemory, MaxCostMB: 1},
			Logging: LoggingConfig{Level: "info", Format: "text"},
		}
		return cfg
	}

	require.NoError(t, base().Validate())

	shared := base()
	shared.Partitions = []PartitionConfig{{Type: "Book", Storage: shared.Storage}}
	assert.NoError(t, shared.Validate(), "partitions may share the default storage")

	mixed := base()
	mixed.System = StorageConfig{Backend: BackendBadger, Path: mixed.Storage.Path}
	assert.ErrorContains(t, mixed.Validate(), "used by both")

	cacheClash := base()
	cacheClash.Cache = CacheConfig{Backend: BackendSQLite, Path: cacheClash.Storage.Path}
	assert.ErrorContains(t, cacheClash.Validate(), "also a statement storage")

	noPath := base()
	noPath.Storage.Path = ""
	assert.ErrorContains(t, noPath.Validate(), "needs a path")

	noCost := base()
	noCost.Cache.MaxCostMB = 0
	assert.ErrorContains(t, noCost.Validate(), "max_cost_mb")
}

func TestValidate_EmptyLists(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		DataDir: dir,
		TIDFile: filepath.Join(dir, "tid.lock"),
		Storage: StorageConfig{Backend: BackendMemory},
		Cache:   CacheConfig{Backend: BackendMemory, MaxCostMB: 1},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
	require.NoError(t, cfg.Validate(), "nil partitions and allow-list")
	assert.Nil(t, cfg.Partitions, "validation leaves the config untouched")

	cfg.Partitions = []PartitionConfig{}
	cfg.MetadataAllowList = []int64{}
	require.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("ENTSYS_DATA_DIR", filepath.Join(dir, "data"))

	cfg, err := Load("")
	require.NoError(t, err, "built-in defaults pass validation")
	assert.Equal(t, filepath.Join(dir, "data"), cfg.DataDir)
	assert.Empty(t, cfg.Partitions)
}

func TestLoggingConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	LoggingConfig{Level: "warn", Format: "json"}.NewLogger(&buf, false).Info("hidden")
	assert.Empty(t, buf.String())

	LoggingConfig{Level: "warn", Format: "json"}.NewLogger(&buf, true).Debug("shown", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	LoggingConfig{Level: "info", Format: "text"}.NewLogger(&buf, false).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
