package entity

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/entsys/internal/cache"
	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/registry"
	"github.com/roach88/entsys/internal/schema"
	"github.com/roach88/entsys/internal/store"
)

// GetEntityData returns everything known about an entity: its statements
// as subject and as object, cancelled ones included. Results are cached
// per type.
func (s *System) GetEntityData(ctx context.Context, entity int64) (ir.EntityData, error) {
	cfg, err := s.entityTypeConfig(ctx, entity)
	if err != nil {
		return ir.EntityData{}, err
	}

	var edc *cache.EntityDataCache
	if cfg.Cache != nil {
		edc = s.entityDataCache(cfg)
		data, err := edc.Get(ctx, entity)
		if err == nil {
			return data, nil
		}
		if !cache.IsMiss(err) {
			s.logger.Warn("entity data cache read failed", "entity", entity, "error", err)
		}
	}

	data, err := s.buildEntityData(ctx, entity, cfg)
	if err != nil {
		return ir.EntityData{}, err
	}
	if edc != nil {
		if err := edc.Put(ctx, entity, data, cfg.CacheTTL); err != nil {
			s.logger.Warn("entity data cache write failed", "entity", entity, "error", err)
		}
	}
	return data, nil
}

func (s *System) buildEntityData(ctx context.Context, entity int64, cfg registry.TypeConfig) (ir.EntityData, error) {
	asSubject, err := cfg.Storage.Find(ctx, store.Query{
		Subject:          store.Int64(entity),
		IncludeCancelled: true,
	})
	if err != nil {
		return ir.EntityData{}, fmt.Errorf("read statements of %d: %w", entity, err)
	}
	asObject, err := s.FindStatements(ctx, store.Query{
		Object:           ir.EntityRef(entity),
		IncludeCancelled: true,
	})
	if err != nil {
		return ir.EntityData{}, err
	}

	name, err := s.GetEntityName(ctx, entity, ir.TypeID(cfg.TID))
	if err != nil && codeOf(err) != ErrCodeEntityDoesNotExist {
		return ir.EntityData{}, err
	}

	data := ir.EntityData{
		ID:                 entity,
		Type:               cfg.TID,
		Name:               name,
		Statements:         asSubject,
		StatementsAsObject: asObject,
	}
	if mergedInto, err := s.GetTidByTypeAndName(ctx, ir.TypeID(schema.TypeRelation), schema.RelMergedInto); err == nil {
		if into, ok := data.ObjectForPredicate(mergedInto); ok {
			data.MergedInto, _ = ir.AsEntity(into)
		}
	}
	return data, nil
}

// GetEntityStatements returns the active statements about an entity: as
// subject first, then as object.
func (s *System) GetEntityStatements(ctx context.Context, entity int64) ([]ir.Statement, error) {
	data, err := s.GetEntityData(ctx, entity)
	if err != nil {
		return nil, err
	}
	out := []ir.Statement{}
	for _, st := range data.AllStatements() {
		if !st.IsCancelled() {
			out = append(out, st)
		}
	}
	return out, nil
}

// GetStatementByID returns a statement from whichever storage holds it.
func (s *System) GetStatementByID(ctx context.Context, id int64) (ir.Statement, error) {
	if id <= 0 {
		return ir.Statement{}, invalidArgument("invalid statement id %d", id)
	}
	st, _, err := s.locateStatement(ctx, id, s.registry.Storages())
	return st, err
}

// GetEntitiesOfType returns the TIDs of the active entities of a type in
// ascending order.
func (s *System) GetEntitiesOfType(ctx context.Context, typ ir.TypeRef) ([]int64, error) {
	cfg, err := s.typeForListing(typ)
	if err != nil {
		return nil, err
	}
	var out []int64
	if cfg.UniqueNames {
		m, err := s.nameMap(ctx, cfg)
		if err != nil {
			return nil, err
		}
		for _, tid := range m {
			out = append(out, tid)
		}
	} else {
		if out, err = s.subjectsOfType(ctx, cfg, false); err != nil {
			return nil, err
		}
	}
	slices.Sort(out)
	if out == nil {
		out = []int64{}
	}
	return out, nil
}

// GetAllTidsForType returns every entity ever assigned to a type,
// including those whose type assignment was cancelled.
func (s *System) GetAllTidsForType(ctx context.Context, typ ir.TypeRef) ([]int64, error) {
	cfg, err := s.typeForListing(typ)
	if err != nil {
		return nil, err
	}
	out, err := s.subjectsOfType(ctx, cfg, true)
	if err != nil {
		return nil, err
	}
	slices.Sort(out)
	if out == nil {
		out = []int64{}
	}
	return out, nil
}

func (s *System) typeForListing(typ ir.TypeRef) (registry.TypeConfig, error) {
	if typ.IsZero() {
		return registry.TypeConfig{}, invalidType("no type given")
	}
	if id, ok := typ.ID(); ok && id <= 0 {
		return registry.TypeConfig{}, invalidType("invalid type TID %d", id)
	}
	return s.TypeConfig(typ)
}

// FindStatements runs q against every distinct storage and merges the
// results in ID order.
func (s *System) FindStatements(ctx context.Context, q store.Query) ([]ir.Statement, error) {
	out := []ir.Statement{}
	for _, st := range s.registry.Storages() {
		rows, err := st.Find(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("find statements: %w", err)
		}
		out = append(out, rows...)
	}
	slices.SortFunc(out, func(a, b ir.Statement) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}
