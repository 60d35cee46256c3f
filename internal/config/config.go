package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/roach88/entsys/internal/entity"
	"github.com/roach88/entsys/internal/schema"
)

// Storage and cache backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// DefaultFileName is the config file looked up when no path is given.
const DefaultFileName = "entsys.yaml"

//go:embed schema.cue
var schemaSource string

// Config holds all configuration for entsys.
type Config struct {
	DataDir           string            `mapstructure:"data_dir" json:"data_dir"`
	TIDFile           string            `mapstructure:"tid_file" json:"tid_file"`
	Storage           StorageConfig     `mapstructure:"storage" json:"storage"`
	System            StorageConfig     `mapstructure:"system" json:"system"`
	Partitions        []PartitionConfig `mapstructure:"partitions" json:"partitions"`
	Cache             CacheConfig       `mapstructure:"cache" json:"cache"`
	MetadataAllowList []int64           `mapstructure:"metadata_allow_list" json:"metadata_allow_list"`
	Logging           LoggingConfig     `mapstructure:"logging" json:"logging"`
}

// StorageConfig selects a statement storage backend. Path is a SQLite file
// or a badger directory and is derived from the data dir when empty.
type StorageConfig struct {
	Backend string `mapstructure:"backend" json:"backend"`
	Path    string `mapstructure:"path" json:"path"`
}

// IsSet reports whether a backend was chosen.
func (s StorageConfig) IsSet() bool {
	return s.Backend != ""
}

// PartitionConfig moves one entity type to its own storage or changes its
// entity data TTL.
type PartitionConfig struct {
	Type     string        `mapstructure:"type" json:"type"`
	Storage  StorageConfig `mapstructure:"storage" json:"storage"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" json:"cache_ttl"`
}

// CacheConfig selects the cache backend shared by all types.
type CacheConfig struct {
	Backend    string        `mapstructure:"backend" json:"backend"`
	Path       string        `mapstructure:"path" json:"path"`
	Prefix     string        `mapstructure:"prefix" json:"prefix"`
	DataID     string        `mapstructure:"data_id" json:"data_id"`
	DefaultTTL time.Duration `mapstructure:"default_ttl" json:"default_ttl"`
	MaxCostMB  int64         `mapstructure:"max_cost_mb" json:"max_cost_mb"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// Load reads configuration from path, or from entsys.yaml in the working
// directory or ~/.entsys when path is empty, then applies ENTSYS_*
// environment variables. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFileName, filepath.Ext(DefaultFileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(homeDir(), ".entsys"))
	}

	v.SetEnvPrefix("ENTSYS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", filepath.Join(homeDir(), ".entsys", "data"))
	v.SetDefault("tid_file", "")
	v.SetDefault("storage.backend", BackendSQLite)
	v.SetDefault("storage.path", "")
	v.SetDefault("system.backend", "")
	v.SetDefault("system.path", "")
	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.prefix", "")
	v.SetDefault("cache.data_id", entity.DefaultCacheDataID)
	v.SetDefault("cache.default_ttl", entity.DefaultCacheTTL)
	v.SetDefault("cache.max_cost_mb", 64)
	v.SetDefault("metadata_allow_list", []int64{schema.AttributeEditorialNote})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// resolvePaths fills empty file locations from the data dir.
func (c *Config) resolvePaths() {
	if c.TIDFile == "" {
		c.TIDFile = filepath.Join(c.DataDir, "tid.lock")
	}
	c.Storage.Path = defaultPath(c.DataDir, c.Storage, "statements")
	c.System.Path = defaultPath(c.DataDir, c.System, "system")
	for i := range c.Partitions {
		p := &c.Partitions[i]
		p.Storage.Path = defaultPath(c.DataDir, p.Storage, "partition-"+strings.ToLower(p.Type))
	}
	c.Cache.Path = defaultPath(c.DataDir, StorageConfig{Backend: c.Cache.Backend, Path: c.Cache.Path}, "cache")
}

func defaultPath(dataDir string, s StorageConfig, name string) string {
	if s.Path != "" {
		return s.Path
	}
	switch s.Backend {
	case BackendSQLite:
		return filepath.Join(dataDir, name+".db")
	case BackendBadger:
		return filepath.Join(dataDir, name)
	}
	return ""
}

// Validate checks the config against the CUE schema, then checks that
// required fields are set and that the files it names do not collide.
func (c *Config) Validate() error {
	if err := c.validateSchema(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Partitions))
	for _, p := range c.Partitions {
		if seen[p.Type] {
			return fmt.Errorf("partitions: type %q configured twice", p.Type)
		}
		seen[p.Type] = true
	}

	// A path may be shared by storages with the same backend, which then
	// open one store, but never across backends or with the cache.
	backends := map[string]string{}
	for _, s := range c.storages() {
		if s.Backend == BackendMemory {
			continue
		}
		if s.Path == "" {
			return fmt.Errorf("storage: %s backend needs a path", s.Backend)
		}
		if other, ok := backends[s.Path]; ok && other != s.Backend {
			return fmt.Errorf("storage: %s used by both %s and %s backends", s.Path, other, s.Backend)
		}
		backends[s.Path] = s.Backend
	}
	if c.Cache.Backend != BackendMemory {
		if c.Cache.Path == "" {
			return fmt.Errorf("cache: %s backend needs a path", c.Cache.Backend)
		}
		if _, ok := backends[c.Cache.Path]; ok {
			return fmt.Errorf("cache: path %s is also a statement storage", c.Cache.Path)
		}
	}
	if c.Cache.Backend == BackendMemory && c.Cache.MaxCostMB <= 0 {
		return fmt.Errorf("cache.max_cost_mb must be greater than 0")
	}
	return nil
}

// storages returns every storage the config names, the default first.
func (c *Config) storages() []StorageConfig {
	out := []StorageConfig{c.Storage}
	if c.System.IsSet() {
		out = append(out, c.System)
	}
	for _, p := range c.Partitions {
		if p.Storage.IsSet() {
			out = append(out, p.Storage)
		}
	}
	return out
}

func (c *Config) validateSchema() error {
	ctx := cuecontext.New()
	s := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := s.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	// nil slices encode as null, which no list constraint accepts.
	doc := *c
	if doc.Partitions == nil {
		doc.Partitions = []PartitionConfig{}
	}
	if doc.MetadataAllowList == nil {
		doc.MetadataAllowList = []int64{}
	}
	v := ctx.Encode(doc)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := s.LookupPath(cue.ParsePath("#Config")).Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config does not match schema: %w", err)
	}
	return nil
}

// NewLogger returns a logger writing to w in the configured format. Verbose
// forces debug level.
func (l LoggingConfig) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch l.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
