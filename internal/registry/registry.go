package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/roach88/entsys/internal/cache"
	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/store"
)

// PlaceholderTID marks a type whose TID is not known yet.
const PlaceholderTID int64 = -1

// TypeConfig is the storage and caching policy of one entity type.
type TypeConfig struct {
	Name        string
	TID         int64
	UniqueNames bool

	// Storage holds the statements whose subject is of this type.
	Storage store.StatementStorage

	// Cache holds resolved entity data and name maps. Nil disables caching
	// of entity data for the type.
	Cache cache.DataCache

	// CacheTTL applies to entity data. Zero keeps entries until invalidated.
	CacheTTL time.Duration

	// InternalCache marks system types that share the system cache.
	InternalCache bool
}

// Error codes.
const (
	ErrCodeUnknownType       = "UNKNOWN_TYPE"
	ErrCodeSchemaConsistency = "SCHEMA_CONSISTENCY"
)

// Error is a registry failure.
type Error struct {
	Code    string
	Type    string
	Message string
}

func (e *Error) Error() string {
	if e.Type == "" {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Type, e.Message)
}

// IsUnknownType reports whether err is an UNKNOWN_TYPE error.
func IsUnknownType(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeUnknownType
}

// IsSchemaConsistency reports whether err is a SCHEMA_CONSISTENCY error.
func IsSchemaConsistency(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeSchemaConsistency
}

// Registry maps type names and TIDs to configs.
//
// Thread-safety: All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]*TypeConfig
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byName: make(map[string]*TypeConfig)}
}

// Register adds cfg, or replaces the entry with the same name.
func (r *Registry) Register(cfg TypeConfig) error {
	if cfg.Name == "" {
		return &Error{Code: ErrCodeUnknownType, Message: "type name is empty"}
	}
	if cfg.Storage == nil {
		return &Error{Code: ErrCodeSchemaConsistency, Type: cfg.Name, Message: "no statement storage"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cfg.TID != PlaceholderTID {
		if other := r.byTIDLocked(cfg.TID); other != nil && other.Name != cfg.Name {
			return &Error{
				Code:    ErrCodeSchemaConsistency,
				Type:    cfg.Name,
				Message: fmt.Sprintf("TID %d already registered for type %q", cfg.TID, other.Name),
			}
		}
	}
	if _, exists := r.byName[cfg.Name]; !exists {
		r.order = append(r.order, cfg.Name)
	}
	c := cfg
	r.byName[cfg.Name] = &c
	return nil
}

// SetTID fills in the TID of a registered type.
func (r *Registry) SetTID(name string, tid int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.byName[name]
	if !ok {
		return &Error{Code: ErrCodeUnknownType, Type: name, Message: "not registered"}
	}
	if other := r.byTIDLocked(tid); other != nil && other.Name != name {
		return &Error{
			Code:    ErrCodeSchemaConsistency,
			Type:    name,
			Message: fmt.Sprintf("TID %d already registered for type %q", tid, other.Name),
		}
	}
	cfg.TID = tid
	return nil
}

// Resolve finds a type by TID or by name.
func (r *Registry) Resolve(ref ir.TypeRef) (TypeConfig, error) {
	if name, ok := ref.Name(); ok {
		return r.ByName(name)
	}
	if tid, ok := ref.ID(); ok {
		return r.ByTID(tid)
	}
	return TypeConfig{}, &Error{Code: ErrCodeUnknownType, Message: "no type given"}
}

// ByName returns the config for name.
func (r *Registry) ByName(name string) (TypeConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.byName[name]
	if !ok {
		return TypeConfig{}, &Error{Code: ErrCodeUnknownType, Type: name, Message: "not registered"}
	}
	return *cfg, nil
}

// ByTID returns the config whose type entity is tid.
func (r *Registry) ByTID(tid int64) (TypeConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if tid != PlaceholderTID {
		if cfg := r.byTIDLocked(tid); cfg != nil {
			return *cfg, nil
		}
	}
	return TypeConfig{}, &Error{Code: ErrCodeUnknownType, Type: fmt.Sprint(tid), Message: "no type with this TID"}
}

// IsTypeTID reports whether tid is the TID of a registered type.
func (r *Registry) IsTypeTID(tid int64) bool {
	_, err := r.ByTID(tid)
	return err == nil
}

func (r *Registry) byTIDLocked(tid int64) *TypeConfig {
	for _, name := range r.order {
		if cfg := r.byName[name]; cfg.TID == tid {
			return cfg
		}
	}
	return nil
}

// Names returns type names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// All returns every config in registration order.
func (r *Registry) All() []TypeConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TypeConfig, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.byName[name])
	}
	return out
}

// Storages returns each distinct statement storage once, in registration
// order.
func (r *Registry) Storages() []store.StatementStorage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []store.StatementStorage
	for _, name := range r.order {
		s := r.byName[name].Storage
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// Validate fails with SCHEMA_CONSISTENCY if any type still has the
// placeholder TID.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var missing []string
	for _, name := range r.order {
		if r.byName[name].TID == PlaceholderTID {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &Error{
			Code:    ErrCodeSchemaConsistency,
			Message: "no TID for type(s) " + strings.Join(missing, ", "),
		}
	}
	return nil
}
