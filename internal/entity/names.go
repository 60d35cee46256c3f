package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/entsys/internal/cache"
	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/registry"
	"github.com/roach88/entsys/internal/schema"
	"github.com/roach88/entsys/internal/store"
)

// NormalizeName returns name in NFC. Names are stored and compared in
// this form.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

func (s *System) nameMapKey(typeName string) string {
	return cache.Key(s.prefix, nameMapKeyPrefix+typeName)
}

// nameMap returns the name to TID map of a type, from the system cache or
// rebuilt from statements.
func (s *System) nameMap(ctx context.Context, cfg registry.TypeConfig) (map[string]int64, error) {
	key := s.nameMapKey(cfg.Name)
	raw, err := s.systemCache.Get(ctx, key)
	switch {
	case err == nil:
		var m map[string]int64
		if err := json.Unmarshal(raw, &m); err == nil {
			if m == nil {
				m = map[string]int64{}
			}
			return m, nil
		}
		s.logger.Warn("discarding undecodable name map", "type", cfg.Name)
	case !cache.IsMiss(err):
		s.logger.Warn("name map cache read failed", "type", cfg.Name, "error", err)
	}

	m, err := s.buildNameMap(ctx, cfg)
	if err != nil {
		return nil, err
	}
	blob := make(map[string]any, len(m))
	for name, tid := range m {
		blob[name] = tid
	}
	if raw, err := ir.MarshalCanonical(blob); err != nil {
		s.logger.Error("encode name map", "type", cfg.Name, "error", err)
	} else if err := s.systemCache.Set(ctx, key, raw, 0); err != nil {
		s.logger.Warn("name map cache write failed", "type", cfg.Name, "error", err)
	}
	return m, nil
}

// buildNameMap reads every active entity of the type and its active name.
// Entities without an active name are left out.
func (s *System) buildNameMap(ctx context.Context, cfg registry.TypeConfig) (map[string]int64, error) {
	m := map[string]int64{}
	if cfg.TID == registry.PlaceholderTID {
		return m, nil
	}
	subjects, err := s.subjectsOfType(ctx, cfg, false)
	if err != nil {
		return nil, err
	}
	for _, subject := range subjects {
		rows, err := cfg.Storage.Find(ctx, store.Query{
			Subject:   store.Int64(subject),
			Predicate: store.Int64(schema.AttributeName),
		})
		if err != nil {
			return nil, fmt.Errorf("read name of %s entity %d: %w", cfg.Name, subject, err)
		}
		switch {
		case len(rows) == 0:
			s.logger.Debug("entity has no active name", "type", cfg.Name, "entity", subject)
			continue
		case len(rows) > 1:
			s.logger.Error("multiple names for entity", "type", cfg.Name, "entity", subject)
			return nil, consistency(subject, "multiple names for %s entity", cfg.Name)
		}
		name, _ := ir.AsLiteral(rows[0].Object)
		if name == "" {
			s.logger.Error("empty name for entity", "type", cfg.Name, "entity", subject)
			return nil, consistency(subject, "empty name for %s entity", cfg.Name)
		}
		if other, dup := m[name]; dup && other != subject {
			s.logger.Error("duplicate name in uniquely named type", "type", cfg.Name, "name", name)
			return nil, consistency(subject, "name %q of %s entity also used by %d", name, cfg.Name, other)
		}
		m[name] = subject
	}
	return m, nil
}

// subjectsOfType returns the distinct subjects of isOfType statements that
// point at the type, in statement order.
func (s *System) subjectsOfType(ctx context.Context, cfg registry.TypeConfig, includeCancelled bool) ([]int64, error) {
	rows, err := cfg.Storage.Find(ctx, store.Query{
		Predicate:        store.Int64(schema.RelationIsOfType),
		Object:           ir.EntityRef(cfg.TID),
		IncludeCancelled: includeCancelled,
	})
	if err != nil {
		return nil, fmt.Errorf("read entities of type %s: %w", cfg.Name, err)
	}
	var out []int64
	for _, r := range rows {
		if !slices.Contains(out, r.Subject) {
			out = append(out, r.Subject)
		}
	}
	return out, nil
}

func (s *System) evictNameMap(ctx context.Context, typeName string) {
	if err := s.systemCache.Delete(ctx, s.nameMapKey(typeName)); err != nil {
		s.logger.Warn("name map eviction failed", "type", typeName, "error", err)
	}
}

// SplitTypeAndName splits a "Type:Name" identifier.
func SplitTypeAndName(id string) (typeName, name string, ok bool) {
	typeName, name, ok = strings.Cut(id, ":")
	return typeName, name, ok
}

// GetTidByTypeAndName returns the entity of a uniquely named type with the
// given name. An empty name reads "Type:Name" from the type name.
func (s *System) GetTidByTypeAndName(ctx context.Context, typ ir.TypeRef, name string) (int64, error) {
	if name == "" {
		full, ok := typ.Name()
		if !ok {
			return 0, doesNotExist(0, "no entity name given")
		}
		typeName, entityName, _ := SplitTypeAndName(full)
		if typeName == "" {
			return 0, invalidType("no type in %q", full)
		}
		if entityName == "" {
			return 0, doesNotExist(0, "no entity name in %q", full)
		}
		typ, name = ir.TypeName(typeName), entityName
	}
	cfg, err := s.TypeConfig(typ)
	if err != nil {
		return 0, err
	}
	name = NormalizeName(name)

	if cfg.TID == schema.TypeEntityType {
		t, err := s.registry.ByName(name)
		if err != nil || t.TID == registry.PlaceholderTID {
			return 0, doesNotExist(0, "no entity type %q", name)
		}
		return t.TID, nil
	}
	if !cfg.UniqueNames {
		return 0, invalidType("type %s does not have unique names", cfg.Name)
	}
	m, err := s.nameMap(ctx, cfg)
	if err != nil {
		return 0, err
	}
	tid, ok := m[name]
	if !ok {
		return 0, doesNotExist(0, "no %s named %q", cfg.Name, name)
	}
	return tid, nil
}

func (s *System) nameExists(ctx context.Context, cfg registry.TypeConfig, name string) (int64, bool, error) {
	m, err := s.nameMap(ctx, cfg)
	if err != nil {
		return 0, false, err
	}
	tid, ok := m[name]
	return tid, ok, nil
}

// GetDefinedEntityNamesForType returns the sorted, distinct active names
// of the entities of a type.
func (s *System) GetDefinedEntityNamesForType(ctx context.Context, typ ir.TypeRef) ([]string, error) {
	cfg, err := s.TypeConfig(typ)
	if err != nil {
		return nil, err
	}
	var names []string
	if cfg.TID == schema.TypeEntityType || cfg.UniqueNames {
		m, err := s.nameMap(ctx, cfg)
		if err != nil {
			return nil, err
		}
		for name := range m {
			names = append(names, name)
		}
	} else {
		subjects, err := s.subjectsOfType(ctx, cfg, false)
		if err != nil {
			return nil, err
		}
		for _, subject := range subjects {
			rows, err := cfg.Storage.Find(ctx, store.Query{
				Subject:   store.Int64(subject),
				Predicate: store.Int64(schema.AttributeName),
			})
			if err != nil {
				return nil, fmt.Errorf("read name of %s entity %d: %w", cfg.Name, subject, err)
			}
			for _, r := range rows {
				if name, _ := ir.AsLiteral(r.Object); name != "" && !slices.Contains(names, name) {
					names = append(names, name)
				}
			}
		}
	}
	slices.Sort(names)
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// GetValidEntityTypeNames returns the names of all entity types.
func (s *System) GetValidEntityTypeNames(ctx context.Context) ([]string, error) {
	return s.GetDefinedEntityNamesForType(ctx, ir.TypeID(schema.TypeEntityType))
}

// GetValidAttributeNames returns the names of all attributes.
func (s *System) GetValidAttributeNames(ctx context.Context) ([]string, error) {
	return s.GetDefinedEntityNamesForType(ctx, ir.TypeID(schema.TypeAttribute))
}

// GetValidRelationNames returns the names of all relations.
func (s *System) GetValidRelationNames(ctx context.Context) ([]string, error) {
	return s.GetDefinedEntityNamesForType(ctx, ir.TypeID(schema.TypeRelation))
}
