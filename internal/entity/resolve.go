package entity

import (
	"context"
	"fmt"

	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/registry"
	"github.com/roach88/entsys/internal/schema"
	"github.com/roach88/entsys/internal/store"
)

// GetEntityType returns the TID of the entity's type.
//
// Type entities resolve from the registry. Other entities need an active
// isOfType statement in one of the storages. Failing that, a statement ID
// resolves to the Statement type and a statement group ID to the
// StatementGroup type. Each step costs one query per distinct storage.
func (s *System) GetEntityType(ctx context.Context, entity int64) (int64, error) {
	if entity <= 0 {
		return 0, invalidArgument("invalid entity TID %d", entity)
	}
	if s.registry.IsTypeTID(entity) {
		return schema.TypeEntityType, nil
	}
	if t, ok := s.types.Get(entity); ok {
		return t, nil
	}

	t, err := s.lookupEntityType(ctx, entity)
	if err != nil {
		return 0, err
	}
	s.types.SetWithTTL(entity, t, 1, TypeCacheTTL)
	s.types.Wait()
	return t, nil
}

func (s *System) lookupEntityType(ctx context.Context, entity int64) (int64, error) {
	storages := s.registry.Storages()
	for _, st := range storages {
		rows, err := st.Find(ctx, store.Query{
			Subject:   store.Int64(entity),
			Predicate: store.Int64(schema.RelationIsOfType),
		})
		if err != nil {
			return 0, fmt.Errorf("read type of entity %d: %w", entity, err)
		}
		if len(rows) > 1 {
			s.logger.Error("more than one type assignment", "entity", entity, "statements", len(rows))
			return 0, consistency(entity, "more than one active type assignment")
		}
		if len(rows) == 1 {
			t, ok := rows[0].ObjectID()
			if !ok {
				return 0, consistency(entity, "type assignment %d has a literal value", rows[0].ID)
			}
			return t, nil
		}
	}

	for _, st := range storages {
		_, err := st.Retrieve(ctx, entity)
		if err == nil {
			return s.pseudoTypeTID(schema.TypeNameStatement, entity)
		}
		if !store.IsNotFound(err) {
			return 0, fmt.Errorf("look up statement %d: %w", entity, err)
		}
		rows, err := st.Find(ctx, store.Query{
			Metadata:         []ir.MetadataPair{ir.M(schema.RelationStatementGroup, ir.EntityRef(entity))},
			IncludeCancelled: true,
		})
		if err != nil {
			return 0, fmt.Errorf("look up statement group %d: %w", entity, err)
		}
		if len(rows) > 0 {
			return s.pseudoTypeTID(schema.TypeNameStatementGroup, entity)
		}
	}
	return 0, doesNotExist(entity, "entity does not exist")
}

func (s *System) pseudoTypeTID(typeName string, entity int64) (int64, error) {
	cfg, err := s.registry.ByName(typeName)
	if err != nil || cfg.TID == registry.PlaceholderTID {
		s.logger.Error("no TID for type", "type", typeName, "entity", entity)
		return 0, consistency(entity, "no TID for type %s", typeName)
	}
	return cfg.TID, nil
}

// entityTypeConfig returns the type config of an existing entity.
func (s *System) entityTypeConfig(ctx context.Context, entity int64) (registry.TypeConfig, error) {
	t, err := s.GetEntityType(ctx, entity)
	if err != nil {
		return registry.TypeConfig{}, err
	}
	cfg, err := s.registry.ByTID(t)
	if err != nil {
		return registry.TypeConfig{}, consistency(entity, "entity type %d is not registered", t)
	}
	return cfg, nil
}

func (s *System) forgetEntityType(entity int64) {
	s.types.Del(entity)
	s.types.Wait()
}

// GetEntityName returns the active name of an entity. A zero typ looks the
// type up. Statements and statement groups have no name and yield "".
func (s *System) GetEntityName(ctx context.Context, entity int64, typ ir.TypeRef) (string, error) {
	var (
		cfg registry.TypeConfig
		err error
	)
	if typ.IsZero() {
		cfg, err = s.entityTypeConfig(ctx, entity)
	} else {
		cfg, err = s.TypeConfig(typ)
	}
	if err != nil {
		return "", err
	}

	switch cfg.Name {
	case schema.TypeNameEntityType:
		t, err := s.registry.ByTID(entity)
		if err != nil {
			return "", doesNotExist(entity, "not an entity type")
		}
		return t.Name, nil
	case schema.TypeNameStatement, schema.TypeNameStatementGroup:
		return "", nil
	}

	if cfg.UniqueNames {
		m, err := s.nameMap(ctx, cfg)
		if err != nil {
			return "", err
		}
		for name, tid := range m {
			if tid == entity {
				return name, nil
			}
		}
		return "", doesNotExist(entity, "no active name")
	}

	rows, err := cfg.Storage.Find(ctx, store.Query{
		Subject:   store.Int64(entity),
		Predicate: store.Int64(schema.AttributeName),
	})
	if err != nil {
		return "", fmt.Errorf("read name of entity %d: %w", entity, err)
	}
	if len(rows) == 0 {
		return "", doesNotExist(entity, "no active name")
	}
	if len(rows) > 1 {
		s.logger.Error("more than one name", "entity", entity, "type", cfg.Name)
	}
	name, _ := ir.AsLiteral(rows[0].Object)
	return name, nil
}
