package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/entsys/internal/cache"
	"github.com/roach88/entsys/internal/entity"
	"github.com/roach88/entsys/internal/store"
	"github.com/roach88/entsys/internal/tid"
)

// Runtime is an opened entity system together with the resources behind it.
type Runtime struct {
	System    *entity.System
	Generator *tid.Generator
	Config    *Config

	closers []func() error
}

// Close shuts the system down and closes every storage and cache the
// runtime opened.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Option adjusts the entity config before the system is built.
type Option func(*entity.Config)

// WithClock sets the statement clock.
func WithClock(now func() time.Time) Option {
	return func(c *entity.Config) {
		c.Now = now
	}
}

// Open creates the data dir, opens every configured storage and the cache,
// and builds the entity system, bootstrapping an empty store.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger, opts ...Option) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.TIDFile), 0o755); err != nil {
		return nil, fmt.Errorf("create tid file dir: %w", err)
	}

	r := &Runtime{Config: cfg, Generator: tid.NewGenerator(cfg.TIDFile)}
	storages := map[StorageConfig]store.StatementStorage{}
	openStorage := func(s StorageConfig) (store.StatementStorage, error) {
		if st, ok := storages[s]; ok {
			return st, nil
		}
		st, closeFn, err := openStatementStorage(s)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, closeFn)
		storages[s] = st
		logger.Debug("opened statement storage", "backend", s.Backend, "path", s.Path)
		return st, nil
	}

	fail := func(err error) (*Runtime, error) {
		if cerr := r.Close(); cerr != nil {
			logger.Error("closing after failed open", "error", cerr)
		}
		return nil, err
	}

	defaultStorage, err := openStorage(cfg.Storage)
	if err != nil {
		return fail(err)
	}
	dataCache, closeCache, err := openCache(cfg.Cache)
	if err != nil {
		return fail(err)
	}
	r.closers = append(r.closers, closeCache)

	ecfg := entity.Config{
		Default:           entity.Partition{Storage: defaultStorage, Cache: dataCache},
		Types:             map[string]entity.TypeOverride{},
		CachingPrefix:     cfg.Cache.Prefix,
		CacheDataID:       cfg.Cache.DataID,
		DefaultCacheTTL:   cfg.Cache.DefaultTTL,
		Generator:         r.Generator,
		Logger:            logger,
		MetadataAllowList: cfg.MetadataAllowList,
	}
	if cfg.System.IsSet() {
		st, err := openStorage(cfg.System)
		if err != nil {
			return fail(err)
		}
		ecfg.System = &entity.Partition{Storage: st}
	}
	for _, p := range cfg.Partitions {
		var o entity.TypeOverride
		if p.Storage.IsSet() {
			st, err := openStorage(p.Storage)
			if err != nil {
				return fail(err)
			}
			o.Storage = st
		}
		if p.CacheTTL > 0 {
			ttl := p.CacheTTL
			o.CacheTTL = &ttl
		}
		ecfg.Types[p.Type] = o
	}
	for _, opt := range opts {
		opt(&ecfg)
	}

	sys, err := entity.New(ctx, ecfg)
	if err != nil {
		return fail(err)
	}
	r.System = sys
	r.closers = append(r.closers, func() error {
		sys.Close()
		return nil
	})
	return r, nil
}

func openStatementStorage(s StorageConfig) (store.StatementStorage, func() error, error) {
	switch s.Backend {
	case BackendSQLite:
		st, err := store.Open(s.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite storage %s: %w", s.Path, err)
		}
		return st, st.Close, nil
	case BackendBadger:
		st, err := store.OpenBadger(store.BadgerOptions{Path: s.Path})
		if err != nil {
			return nil, nil, fmt.Errorf("open badger storage %s: %w", s.Path, err)
		}
		return st, st.Close, nil
	case BackendMemory:
		return store.NewMemoryStore(), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", s.Backend)
}

func openCache(c CacheConfig) (cache.DataCache, func() error, error) {
	switch c.Backend {
	case BackendSQLite:
		dc, err := cache.OpenSQLite(c.Path)
		if err != nil {
			return nil, nil, err
		}
		return dc, dc.Close, nil
	case BackendBadger:
		dc, err := cache.OpenBadger(cache.BadgerOptions{Path: c.Path})
		if err != nil {
			return nil, nil, err
		}
		return dc, dc.Close, nil
	case BackendMemory:
		dc, err := cache.NewMemoryCache(cache.MemoryOptions{MaxCost: c.MaxCostMB << 20})
		if err != nil {
			return nil, nil, err
		}
		return dc, func() error {
			dc.Close()
			return nil
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", c.Backend)
}
