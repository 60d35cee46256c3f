package entity

import (
	"context"
	"time"

	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/schema"
	"github.com/roach88/entsys/internal/store"
)

const constraintsNote = "Setting up schema constraints"

// bootstrap seeds the schema into empty storage. It is not idempotent:
// run against a bootstrapped store it duplicates every schema entity.
// New only calls it when no entity types exist.
func (s *System) bootstrap(ctx context.Context) error {
	ts := s.now()
	editor := schema.System
	s.logger.Info("bootstrapping entity system", "timestamp", ts.Unix())

	for _, def := range schema.EntityTypes {
		if def.TID != 0 {
			if err := s.setupType(ctx, def.TID, def.Name, def.Description, def.UniqueNames, editor, ts); err != nil {
				return err
			}
			continue
		}
		if _, err := s.CreateEntityType(ctx, def.Name, def.Description, def.UniqueNames, editor, ts); err != nil {
			return err
		}
	}
	s.evictNameMap(ctx, schema.TypeNameEntityType)

	if err := s.bootstrapEntities(ctx, schema.TypeAttribute, schema.Attributes, editor, ts); err != nil {
		return err
	}
	if err := s.bootstrapEntities(ctx, schema.TypeRelation, schema.Relations, editor, ts); err != nil {
		return err
	}
	dtCfg, err := s.registry.ByName(schema.TypeNameDataType)
	if err != nil {
		return err
	}
	if err := s.bootstrapEntities(ctx, dtCfg.TID, schema.DataTypes, editor, ts); err != nil {
		return err
	}
	if err := s.bootstrapConstraints(ctx, editor, ts); err != nil {
		return err
	}

	s.logger.Info("finished bootstrapping entity system")
	return nil
}

// bootstrapEntities seeds the definitions of one type. Fixed TIDs are
// written directly, the rest go through entity creation.
func (s *System) bootstrapEntities(ctx context.Context, typeTID int64, defs []schema.Definition, editor int64, ts time.Time) error {
	cfg, err := s.registry.ByTID(typeTID)
	if err != nil {
		return err
	}
	for _, def := range defs {
		note := setupNote(cfg.Name, def.Name)
		if def.TID != 0 {
			if err := s.setupEntity(ctx, cfg.Storage, def.TID, cfg.TID, def.Name, def.Description, note, editor, ts); err != nil {
				return err
			}
			s.evictNameMap(ctx, cfg.Name)
			continue
		}
		if _, err := s.createEntity(ctx, cfg, def.Name, def.Description, editor, ts, note); err != nil {
			return err
		}
	}
	return nil
}

// bootstrapConstraints marks the single-valued predicates. All constraint
// statements share one statement group.
func (s *System) bootstrapConstraints(ctx context.Context, editor int64, ts time.Time) error {
	group, err := s.newTID()
	if err != nil {
		return err
	}
	var plan batchPlan
	for _, p := range schema.OnlyOneAllowed {
		cfg, err := s.entityTypeConfig(ctx, p)
		if err != nil {
			return err
		}
		id, err := s.newTID()
		if err != nil {
			return err
		}
		plan.add(cfg.Storage, store.StoreCommand(id, p, schema.AttributeOnlyOneAllowed,
			ir.Literal(schema.ValueTrue), s.statementMetadata(editor, ts, group, constraintsNote)))
	}
	return s.applyPlan(ctx, &plan)
}
