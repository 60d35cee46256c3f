package seed

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/entsys/internal/entity"
	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/schema"
	"github.com/roach88/entsys/internal/tid"
)

// File is a parsed seed file.
type File struct {
	// Name labels the seed in logs and notes.
	Name string `yaml:"name,omitempty"`

	Description string `yaml:"description,omitempty"`

	// Types are created first, in order.
	Types []TypeDef `yaml:"types,omitempty"`

	// Entities are created after the types.
	Entities []EntityDef `yaml:"entities,omitempty"`

	// Statements are made last and share one statement group.
	Statements []StatementDef `yaml:"statements,omitempty"`
}

// TypeDef defines an entity type.
type TypeDef struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	UniqueNames bool   `yaml:"unique_names,omitempty"`
}

// EntityDef defines an entity. Key is optional and lets statements refer
// to the entity as "@key".
type EntityDef struct {
	Key         string `yaml:"key,omitempty"`
	Type        string `yaml:"type"`
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// StatementDef defines a statement. Exactly one of Value and Object is set:
// Value is a literal, Object is a reference to an entity.
type StatementDef struct {
	Subject   string  `yaml:"subject"`
	Predicate string  `yaml:"predicate"`
	Value     *string `yaml:"value,omitempty"`
	Object    string  `yaml:"object,omitempty"`
	Note      string  `yaml:"note,omitempty"`
}

// Result holds what Apply created or reused.
type Result struct {
	// Types maps type names to TIDs.
	Types map[string]int64

	// Entities maps entity keys to TIDs. Entities without a key are not
	// listed.
	Entities map[string]int64

	// Statements are the new statement IDs, in file order.
	Statements []int64

	// Group is the statement group of the statements. Zero when the file
	// has none.
	Group int64
}

// Load reads and parses a seed file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields or refers to keys it does not declare.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates seed YAML.
func Parse(data []byte) (*File, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateFile(&f); err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	return &f, nil
}

// validateFile checks required fields and that every "@key" reference is
// declared.
func validateFile(f *File) error {
	if len(f.Types) == 0 && len(f.Entities) == 0 && len(f.Statements) == 0 {
		return fmt.Errorf("seed defines no types, entities or statements")
	}

	types := make(map[string]bool, len(f.Types))
	for i, t := range f.Types {
		name := entity.NormalizeName(t.Name)
		if name == "" {
			return fmt.Errorf("types[%d]: name is required", i)
		}
		if strings.Contains(name, ":") {
			return fmt.Errorf("types[%d]: name %q contains ':'", i, name)
		}
		if types[name] {
			return fmt.Errorf("types[%d]: %s defined twice", i, name)
		}
		types[name] = true
	}

	keys := make(map[string]bool, len(f.Entities))
	for i, e := range f.Entities {
		if e.Type == "" {
			return fmt.Errorf("entities[%d]: type is required", i)
		}
		if e.Type == schema.TypeNameEntityType {
			return fmt.Errorf("entities[%d]: entity types belong under types", i)
		}
		if strings.HasPrefix(e.Key, "@") {
			return fmt.Errorf("entities[%d]: key %q must not start with @", i, e.Key)
		}
		if e.Key == "" {
			continue
		}
		if keys[e.Key] {
			return fmt.Errorf("entities[%d]: key %q used twice", i, e.Key)
		}
		keys[e.Key] = true
	}

	checkRef := func(i int, field, ref string) error {
		if ref == "" {
			return fmt.Errorf("statements[%d]: %s is required", i, field)
		}
		if key, ok := strings.CutPrefix(ref, "@"); ok && !keys[key] {
			return fmt.Errorf("statements[%d]: %s refers to unknown key %q", i, field, key)
		}
		return nil
	}
	for i, s := range f.Statements {
		if err := checkRef(i, "subject", s.Subject); err != nil {
			return err
		}
		if s.Predicate == "" {
			return fmt.Errorf("statements[%d]: predicate is required", i)
		}
		switch {
		case s.Value != nil && s.Object != "":
			return fmt.Errorf("statements[%d]: value and object are mutually exclusive", i)
		case s.Value == nil && s.Object == "":
			return fmt.Errorf("statements[%d]: value or object is required", i)
		case s.Object != "":
			if err := checkRef(i, "object", s.Object); err != nil {
				return err
			}
		}
	}
	return nil
}

// Apply creates the file's types, entities and statements in sys, in that
// order, with editor as the author. Existing types and existing entities
// of uniquely named types are reused.
//
// Apply stops at the first failure. What was written before it stays.
func (f *File) Apply(ctx context.Context, sys *entity.System, editor int64) (*Result, error) {
	res := &Result{
		Types:    make(map[string]int64, len(f.Types)),
		Entities: make(map[string]int64, len(f.Entities)),
	}
	ts := time.Time{}

	for i, t := range f.Types {
		name := entity.NormalizeName(t.Name)
		id, err := sys.GetTidByTypeAndName(ctx, ir.TypeID(schema.TypeEntityType), name)
		if entity.IsNotFound(err) {
			id, err = sys.CreateEntityType(ctx, name, t.Description, t.UniqueNames, editor, ts)
		}
		if err != nil {
			return res, fmt.Errorf("types[%d] (%s): %w", i, name, err)
		}
		res.Types[name] = id
	}

	for i, e := range f.Entities {
		id, err := f.createEntity(ctx, sys, e, editor)
		if err != nil {
			return res, fmt.Errorf("entities[%d] (%s:%s): %w", i, e.Type, e.Name, err)
		}
		if e.Key != "" {
			res.Entities[e.Key] = id
		}
	}

	for i, s := range f.Statements {
		subject, err := ResolveRef(ctx, sys, s.Subject, res.Entities)
		if err != nil {
			return res, fmt.Errorf("statements[%d]: subject: %w", i, err)
		}
		var object ir.Value
		if s.Value != nil {
			object = ir.Literal(*s.Value)
		} else {
			ref, err := ResolveRef(ctx, sys, s.Object, res.Entities)
			if err != nil {
				return res, fmt.Errorf("statements[%d]: object: %w", i, err)
			}
			object = ir.EntityRef(ref)
		}
		made, err := sys.MakeStatement(ctx, entity.NewStatement{
			Subject:       subject,
			Predicate:     ir.Literal(s.Predicate),
			Object:        object,
			EditedBy:      editor,
			EditorialNote: s.Note,
			Group:         res.Group,
		})
		if err != nil {
			return res, fmt.Errorf("statements[%d] (%s %s): %w", i, s.Subject, s.Predicate, err)
		}
		res.Group = made.Group
		res.Statements = append(res.Statements, made.ID)
	}
	return res, nil
}

func (f *File) createEntity(ctx context.Context, sys *entity.System, e EntityDef, editor int64) (int64, error) {
	cfg, err := sys.TypeConfig(ir.TypeName(e.Type))
	if err != nil {
		return 0, err
	}
	if cfg.UniqueNames && e.Name != "" {
		id, err := sys.GetTidByTypeAndName(ctx, ir.TypeName(cfg.Name), e.Name)
		if err == nil {
			return id, nil
		}
		if !entity.IsNotFound(err) {
			return 0, err
		}
	}
	return sys.CreateEntity(ctx, ir.TypeName(cfg.Name), e.Name, e.Description, editor, time.Time{})
}

// ResolveRef returns the entity a reference names: "@key" looks the key up
// in keys, "Type:Name" looks the name up in a uniquely named type, and
// anything else is decoded as a TID.
func ResolveRef(ctx context.Context, sys *entity.System, ref string, keys map[string]int64) (int64, error) {
	if key, ok := strings.CutPrefix(ref, "@"); ok {
		id, ok := keys[key]
		if !ok {
			return 0, fmt.Errorf("unknown key %q", key)
		}
		return id, nil
	}
	if strings.Contains(ref, ":") {
		return sys.GetTidByTypeAndName(ctx, ir.TypeName(ref), "")
	}
	id, err := tid.FromString(ref)
	if err != nil {
		return 0, err
	}
	return id, nil
}
