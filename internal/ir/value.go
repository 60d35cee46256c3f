package ir

import (
	"fmt"
	"strconv"
)

// Value is a sealed interface for a statement's object position.
// Only EntityRef and Literal implement it.
type Value interface {
	isValue() // Sealed - only these types implement it

	// String renders the value for logs and literal coercion.
	String() string
}

// EntityRef is a reference to another entity by TID. Statements with an
// EntityRef payload populate the object column.
type EntityRef int64

func (EntityRef) isValue() {}

// String returns the TID in base-10.
func (r EntityRef) String() string {
	return strconv.FormatInt(int64(r), 10)
}

// Literal is a literal string payload. Statements with a Literal payload
// populate the value column.
type Literal string

func (Literal) isValue() {}

func (l Literal) String() string {
	return string(l)
}

// AsEntity returns the TID in v if v is an EntityRef.
func AsEntity(v Value) (int64, bool) {
	r, ok := v.(EntityRef)
	return int64(r), ok
}

// AsLiteral returns the string in v if v is a Literal.
func AsLiteral(v Value) (string, bool) {
	l, ok := v.(Literal)
	return string(l), ok
}

// ValuesEqual reports whether a and b are the same variant with the same
// content. Two nil values are equal.
func ValuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case EntityRef:
		bv, ok := b.(EntityRef)
		return ok && av == bv
	case Literal:
		bv, ok := b.(Literal)
		return ok && av == bv
	default:
		return false
	}
}

// TypeRef names an entity type either by TID or by name.
// The zero TypeRef means "no type given".
type TypeRef struct {
	id   int64
	name string
}

// TypeID returns a TypeRef that selects a type by TID.
func TypeID(id int64) TypeRef {
	return TypeRef{id: id}
}

// TypeName returns a TypeRef that selects a type by name.
func TypeName(name string) TypeRef {
	return TypeRef{name: name}
}

// IsZero reports whether no type was given.
func (r TypeRef) IsZero() bool {
	return r.id == 0 && r.name == ""
}

// ID returns the TID if r selects by TID.
func (r TypeRef) ID() (int64, bool) {
	return r.id, r.name == "" && r.id != 0
}

// Name returns the type name if r selects by name.
func (r TypeRef) Name() (string, bool) {
	return r.name, r.name != ""
}

func (r TypeRef) String() string {
	if r.name != "" {
		return r.name
	}
	if r.id != 0 {
		return strconv.FormatInt(r.id, 10)
	}
	return "<none>"
}

// GoString makes TypeRef readable in test failure output.
func (r TypeRef) GoString() string {
	if r.name != "" {
		return fmt.Sprintf("ir.TypeName(%q)", r.name)
	}
	return fmt.Sprintf("ir.TypeID(%d)", r.id)
}
