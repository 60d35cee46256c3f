package entity

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/entsys/internal/cache"
	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/registry"
	"github.com/roach88/entsys/internal/schema"
	"github.com/roach88/entsys/internal/store"
)

// CreateEntity creates an entity of the given type and returns its TID.
//
// The entity's isOfType, name and description statements share one
// statement group and are written in a single batch. Types with unique
// names reject an empty or already used name with INVALID_NAME. A zero
// createdBy means the system, a zero ts means now.
func (s *System) CreateEntity(ctx context.Context, typ ir.TypeRef, name, description string, createdBy int64, ts time.Time) (int64, error) {
	if typ.IsZero() {
		return 0, invalidType("no type given")
	}
	cfg, err := s.TypeConfig(typ)
	if err != nil {
		return 0, err
	}
	if cfg.TID == schema.TypeEntityType {
		return 0, invalidType("entity types are created with CreateEntityType")
	}
	return s.createEntity(ctx, cfg, name, description, createdBy, ts, "")
}

func (s *System) createEntity(ctx context.Context, cfg registry.TypeConfig, name, description string, createdBy int64, ts time.Time, note string) (int64, error) {
	name = NormalizeName(name)
	if createdBy == 0 {
		createdBy = schema.System
	}
	ts = s.timestamp(ts)

	if cfg.UniqueNames {
		if name == "" {
			return 0, invalidName("name cannot be empty for entities of type %s", cfg.Name)
		}
		_, exists, err := s.nameExists(ctx, cfg, name)
		if err != nil {
			return 0, err
		}
		if exists {
			return 0, invalidName("%s %q already exists", cfg.Name, name)
		}
	}

	tid, err := s.newTID()
	if err != nil {
		return 0, err
	}
	if err := s.setupEntity(ctx, cfg.Storage, tid, cfg.TID, name, description, note, createdBy, ts); err != nil {
		return 0, err
	}
	if cfg.UniqueNames {
		s.evictNameMap(ctx, cfg.Name)
	}
	s.logger.Debug("entity created", "type", cfg.Name, "name", name, "tid", tid)
	return tid, nil
}

// CreateEntityType defines a new entity type and returns its TID. Its
// entities are stored in the default partition unless the type was given
// an override at construction.
func (s *System) CreateEntityType(ctx context.Context, name, description string, uniqueNames bool, createdBy int64, ts time.Time) (int64, error) {
	name = NormalizeName(name)
	if name == "" {
		return 0, invalidName("type name cannot be empty")
	}
	if strings.Contains(name, ":") {
		return 0, invalidName("type name %q contains ':'", name)
	}
	existing, err := s.registry.ByName(name)
	registered := err == nil
	if registered && existing.TID != registry.PlaceholderTID {
		return 0, invalidType("type %s already exists", name)
	}
	if createdBy == 0 {
		createdBy = schema.System
	}
	ts = s.timestamp(ts)

	tid, err := s.newTID()
	if err != nil {
		return 0, err
	}
	if err := s.setupType(ctx, tid, name, description, uniqueNames, createdBy, ts); err != nil {
		return 0, err
	}

	cfg := s.defaultTypeConfig(name, tid, uniqueNames)
	if registered {
		cfg = existing
		cfg.TID = tid
		cfg.UniqueNames = uniqueNames
	}
	if err := s.registry.Register(cfg); err != nil {
		return 0, err
	}
	s.evictNameMap(ctx, schema.TypeNameEntityType)
	s.logger.Info("entity type created", "type", name, "tid", tid, "unique_names", uniqueNames)
	return tid, nil
}

// setupType writes the statements that define a type entity.
func (s *System) setupType(ctx context.Context, tid int64, name, description string, uniqueNames bool, editor int64, ts time.Time) error {
	etCfg, err := s.registry.ByTID(schema.TypeEntityType)
	if err != nil {
		return err
	}
	flag := schema.ValueFalse
	if uniqueNames {
		flag = schema.ValueTrue
	}
	return s.setupEntity(ctx, etCfg.Storage, tid, schema.TypeEntityType, name, description,
		setupNote(schema.TypeNameEntityType, name), editor, ts,
		ir.M(schema.AttributeMustHaveUniqueNames, ir.Literal(flag)))
}

// setupEntity writes isOfType, name, description and any extra statements
// about a new entity as one batch in one statement group.
func (s *System) setupEntity(ctx context.Context, storage store.StatementStorage, tid, typeTID int64,
	name, description, note string, editor int64, ts time.Time, extra ...ir.MetadataPair) error {
	statements := append([]ir.MetadataPair{
		ir.M(schema.RelationIsOfType, ir.EntityRef(typeTID)),
		ir.M(schema.AttributeName, ir.Literal(name)),
		ir.M(schema.AttributeDescription, ir.Literal(description)),
	}, extra...)

	group, err := s.newTID()
	if err != nil {
		return err
	}
	md := s.statementMetadata(editor, ts, group, note)
	cmds := make([]store.Command, 0, len(statements))
	for _, st := range statements {
		id, err := s.newTID()
		if err != nil {
			return err
		}
		cmds = append(cmds, store.StoreCommand(id, tid, st.Predicate, st.Value, slices.Clone(md)))
	}
	if err := storage.ApplyBatch(ctx, cmds); err != nil {
		return fmt.Errorf("store entity %d: %w", tid, err)
	}
	return nil
}

// statementMetadata is the metadata every statement carries.
func (s *System) statementMetadata(editor int64, ts time.Time, group int64, note string) []ir.MetadataPair {
	md := []ir.MetadataPair{
		ir.M(schema.RelationStatementEditor, ir.EntityRef(editor)),
		ir.M(schema.AttributeEditTimestamp, ir.Literal(unixString(ts))),
		ir.M(schema.RelationStatementGroup, ir.EntityRef(group)),
	}
	if note != "" {
		md = append(md, ir.M(schema.AttributeEditorialNote, ir.Literal(note)))
	}
	return md
}

func cancellationMetadata(cancelledBy int64, ts time.Time, note string) []ir.MetadataPair {
	md := []ir.MetadataPair{
		ir.M(schema.RelationCancelledBy, ir.EntityRef(cancelledBy)),
		ir.M(schema.AttributeCancellationTimestamp, ir.Literal(unixString(ts))),
	}
	if note != "" {
		md = append(md, ir.M(schema.AttributeCancellationNote, ir.Literal(note)))
	}
	return md
}

func (s *System) newTID() (int64, error) {
	t, err := s.gen.Generate()
	if err != nil {
		return 0, fmt.Errorf("generate TID: %w", err)
	}
	return t, nil
}

// invalidateAfterWrite drops every cache entry a write to (subject,
// predicate, object) can make stale. subjCfg is the subject's type as it
// was before the write.
func (s *System) invalidateAfterWrite(ctx context.Context, subject, predicate int64, object ir.Value, subjCfg registry.TypeConfig) {
	s.invalidateEntityData(ctx, subject, subjCfg)
	if obj, ok := ir.AsEntity(object); ok {
		if objCfg, err := s.entityTypeConfig(ctx, obj); err == nil {
			s.invalidateEntityData(ctx, obj, objCfg)
		} else {
			s.logger.Debug("object type unknown, not invalidated", "object", obj, "error", err)
		}
	}

	switch predicate {
	case schema.AttributeName:
		if subjCfg.UniqueNames || subjCfg.TID == schema.TypeEntityType {
			s.evictNameMap(ctx, subjCfg.Name)
		}
	case schema.RelationIsOfType:
		s.forgetEntityType(subject)
		s.evictNameMap(ctx, subjCfg.Name)
		if t, ok := ir.AsEntity(object); ok {
			if cfg, err := s.registry.ByTID(t); err == nil {
				s.evictNameMap(ctx, cfg.Name)
			}
		}
	}
}

func (s *System) invalidateEntityData(ctx context.Context, entity int64, cfg registry.TypeConfig) {
	if cfg.Cache == nil {
		return
	}
	if err := s.entityDataCache(cfg).Invalidate(ctx, entity); err != nil {
		s.logger.Error("entity data invalidation failed", "entity", entity, "error", err)
	}
}

func (s *System) entityDataCache(cfg registry.TypeConfig) *cache.EntityDataCache {
	return cache.NewEntityDataCache(cfg.Cache, s.prefix, s.dataID)
}

func setupNote(typeName, name string) string {
	return fmt.Sprintf("Setting up %s:%s", typeName, name)
}

func unixString(ts time.Time) string {
	return strconv.FormatInt(ts.Unix(), 10)
}
