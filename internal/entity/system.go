package entity

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/roach88/entsys/internal/cache"
	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/registry"
	"github.com/roach88/entsys/internal/schema"
	"github.com/roach88/entsys/internal/store"
)

const (
	// DefaultCacheTTL is the entity data TTL for ordinary types.
	DefaultCacheTTL = 14 * 24 * time.Hour

	// TypeCacheTTL is how long an entity's type stays in the in-process
	// type cache.
	TypeCacheTTL = 90 * 24 * time.Hour

	// DefaultCacheDataID tags entity data blobs. Changing it invalidates
	// everything cached under the previous tag.
	DefaultCacheDataID = "entsys-1"

	nameMapKeyPrefix = "NameToTidMap-"
)

// Generator hands out fresh TIDs. *tid.Generator implements it.
type Generator interface {
	Generate() (int64, error)
}

// Partition is a statement storage and the cache in front of it.
type Partition struct {
	Storage store.StatementStorage

	// Cache holds entity data and name maps. Nil uses a process-local
	// ristretto cache.
	Cache cache.DataCache
}

// TypeOverride moves one type to its own storage or cache. Nil fields
// keep the default.
type TypeOverride struct {
	Storage  store.StatementStorage
	Cache    cache.DataCache
	CacheTTL *time.Duration
}

// Config configures a System.
type Config struct {
	// Default holds every type without an override. Required.
	Default Partition

	// System holds the schema types: EntityType, Attribute, Relation and
	// DataType. Nil uses Default.
	System *Partition

	// Types overrides the partition of individual types by name. Every
	// type named here must exist once construction finishes.
	Types map[string]TypeOverride

	// CachingPrefix namespaces cache keys when caches are shared.
	CachingPrefix string

	// CacheDataID tags entity data blobs. Empty uses DefaultCacheDataID.
	CacheDataID string

	// DefaultCacheTTL applies to ordinary types. Zero uses DefaultCacheTTL.
	DefaultCacheTTL time.Duration

	// Generator issues TIDs. Required.
	Generator Generator

	// Now is the statement clock. Nil uses time.Now.
	Now func() time.Time

	Logger *slog.Logger

	// MetadataAllowList is the set of predicates callers may attach as
	// extra statement metadata. Nil allows only editorial notes.
	MetadataAllowList []int64
}

// System is the entity system.
type System struct {
	registry *registry.Registry
	gen      Generator
	now      func() time.Time
	logger   *slog.Logger

	prefix string
	dataID string

	defaultStorage store.StatementStorage
	defaultCache   cache.DataCache
	defaultTTL     time.Duration
	systemCache    cache.DataCache

	allowed []int64

	// types maps entity TID to type TID.
	types *ristretto.Cache[int64, int64]

	closers []func()
}

// New builds a System over the configured partitions, bootstrapping the
// schema if storage holds no entity types yet.
func New(ctx context.Context, cfg Config) (*System, error) {
	if cfg.Default.Storage == nil {
		return nil, invalidArgument("no default statement storage")
	}
	if cfg.Generator == nil {
		return nil, invalidArgument("no TID generator")
	}

	s := &System{
		registry:       registry.New(),
		gen:            cfg.Generator,
		now:            cfg.Now,
		logger:         cfg.Logger,
		prefix:         cfg.CachingPrefix,
		dataID:         cfg.CacheDataID,
		defaultStorage: cfg.Default.Storage,
		defaultCache:   cfg.Default.Cache,
		defaultTTL:     cfg.DefaultCacheTTL,
		allowed:        slices.Clone(cfg.MetadataAllowList),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.dataID == "" {
		s.dataID = DefaultCacheDataID
	}
	if s.defaultTTL <= 0 {
		s.defaultTTL = DefaultCacheTTL
	}
	if s.allowed == nil {
		s.allowed = []int64{schema.AttributeEditorialNote}
	}

	types, err := ristretto.NewCache(&ristretto.Config[int64, int64]{
		NumCounters: 100_000,
		MaxCost:            10_000,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create type cache: %w", err)
	}
	s.types = types
	s.closers = append(s.closers, types.Close)

	if s.defaultCache == nil {
		mc, err := cache.NewMemoryCache(cache.DefaultMemoryOptions)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.defaultCache = mc
		s.closers = append(s.closers, mc.Close)
	}

	systemStorage, systemCache := s.defaultStorage, s.defaultCache
	if cfg.System != nil {
		if cfg.System.Storage != nil {
			systemStorage = cfg.System.Storage
		}
		if cfg.System.Cache != nil {
			systemCache = cfg.System.Cache
		}
	}
	s.systemCache = systemCache

	if err := s.init(ctx, cfg, systemStorage); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *System) init(ctx context.Context, cfg Config, systemStorage store.StatementStorage) error {
	if err := s.registerSkeleton(systemStorage); err != nil {
		return err
	}
	if err := s.registerOverrides(cfg.Types); err != nil {
		return err
	}

	etCfg, err := s.registry.ByTID(schema.TypeEntityType)
	if err != nil {
		return err
	}
	typeMap, err := s.nameMap(ctx, etCfg)
	if err != nil {
		s.evictNameMap(ctx, schema.TypeNameEntityType)
		return err
	}
	if len(typeMap) == 0 {
		s.logger.Info("no entity types found, bootstrapping")
		err := s.bootstrap(ctx)
		s.evictNameMap(ctx, schema.TypeNameEntityType)
		if err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
		if typeMap, err = s.nameMap(ctx, etCfg); err != nil {
			s.evictNameMap(ctx, schema.TypeNameEntityType)
			return err
		}
	}

	if err := s.fillTypeTIDs(ctx, typeMap); err != nil {
		s.evictNameMap(ctx, schema.TypeNameEntityType)
		return err
	}
	if err := s.registry.Validate(); err != nil {
		s.evictNameMap(ctx, schema.TypeNameEntityType)
		return err
	}
	s.logger.Debug("entity system ready", "types", len(typeMap))
	return nil
}

// registerSkeleton registers the standard types. Schema types live in the
// system partition and are cached forever.
func (s *System) registerSkeleton(systemStorage store.StatementStorage) error {
	for _, def := range schema.EntityTypes {
		cfg := registry.TypeConfig{
			Name:        def.Name,
			TID:         def.TID,
			UniqueNames: def.UniqueNames,
			Storage:     s.defaultStorage,
			Cache:       s.defaultCache,
			CacheTTL:    s.defaultTTL,
		}
		if cfg.TID == 0 {
			cfg.TID = registry.PlaceholderTID
		}
		if isSystemType(def.Name) {
			cfg.Storage = systemStorage
			cfg.Cache = s.systemCache
			cfg.CacheTTL = 0
			cfg.InternalCache = true
		}
		if err := s.registry.Register(cfg); err != nil {
			return err
		}
	}
	return nil
}

func (s *System) registerOverrides(overrides map[string]TypeOverride) error {
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		o := overrides[name]
		cfg, err := s.registry.ByName(name)
		if err != nil {
			cfg = s.defaultTypeConfig(name, registry.PlaceholderTID, false)
		}
		if o.Storage != nil {
			cfg.Storage = o.Storage
		}
		if o.Cache != nil {
			cfg.Cache = o.Cache
		}
		if o.CacheTTL != nil {
			cfg.CacheTTL = *o.CacheTTL
		}
		if err := s.registry.Register(cfg); err != nil {
			return err
		}
	}
	return nil
}

// fillTypeTIDs copies type TIDs from the EntityType name map into the
// registry. Types that only exist in storage get the default partition and
// their stored unique-names flag.
func (s *System) fillTypeTIDs(ctx context.Context, typeMap map[string]int64) error {
	names := make([]string, 0, len(typeMap))
	for name := range typeMap {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		tid := typeMap[name]
		cfg, err := s.registry.ByName(name)
		if err != nil {
			cfg = s.defaultTypeConfig(name, tid, false)
		}
		cfg.TID = tid
		if !isStandardType(name) {
			unique, err := s.storedUniqueNames(ctx, tid)
			if err != nil {
				return err
			}
			cfg.UniqueNames = unique
		}
		if err := s.registry.Register(cfg); err != nil {
			return err
		}
	}
	return nil
}

// storedUniqueNames reads the mustHaveUniqueNames flag of a type entity.
func (s *System) storedUniqueNames(ctx context.Context, typeTID int64) (bool, error) {
	etCfg, err := s.registry.ByName(schema.TypeNameEntityType)
	if err != nil {
		return false, err
	}
	rows, err := etCfg.Storage.Find(ctx, store.Query{
		Subject:   store.Int64(typeTID),
		Predicate: store.Int64(schema.AttributeMustHaveUniqueNames),
	})
	if err != nil {
		return false, fmt.Errorf("read unique names flag of type %d: %w", typeTID, err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	v, _ := ir.AsLiteral(rows[0].Object)
	return v == schema.ValueTrue, nil
}

func (s *System) defaultTypeConfig(name string, tid int64, uniqueNames bool) registry.TypeConfig {
	return registry.TypeConfig{
		Name:        name,
		TID:         tid,
		UniqueNames: uniqueNames,
		Storage:     s.defaultStorage,
		Cache:       s.defaultCache,
		CacheTTL:    s.defaultTTL,
	}
}

// Close releases the caches the System created itself. Injected storages
// and caches are left open.
func (s *System) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Types returns every registered type config in registration order.
func (s *System) Types() []registry.TypeConfig {
	return s.registry.All()
}

// TypeConfig resolves a type reference.
func (s *System) TypeConfig(ref ir.TypeRef) (registry.TypeConfig, error) {
	cfg, err := s.registry.Resolve(ref)
	if err != nil {
		if registry.IsUnknownType(err) {
			return registry.TypeConfig{}, unknownType(ref, err)
		}
		return registry.TypeConfig{}, err
	}
	return cfg, nil
}

func (s *System) timestamp(ts time.Time) time.Time {
	if ts.IsZero() {
		return s.now()
	}
	return ts
}

func isSystemType(name string) bool {
	switch name {
	case schema.TypeNameEntityType, schema.TypeNameAttribute,
		schema.TypeNameRelation, schema.TypeNameDataType:
		return true
	}
	return false
}

func isStandardType(name string) bool {
	for _, def := range schema.EntityTypes {
		if def.Name == name {
			return true
		}
	}
	return false
}
