package entity

import (
	"errors"
	"fmt"

	"github.com/roach88/entsys/internal/registry"
	"github.com/roach88/entsys/internal/store"
	"github.com/roach88/entsys/internal/tid"
)

// ErrorCode categorizes entity system errors.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates a malformed or inconsistent request.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeInvalidName indicates an empty or duplicate name on a type
	// with unique names.
	ErrCodeInvalidName ErrorCode = "INVALID_NAME"

	// ErrCodeInvalidType indicates a missing type reference or a type that
	// is not usable for the operation.
	ErrCodeInvalidType ErrorCode = "INVALID_TYPE"

	// ErrCodeUnknownType indicates a type that is not defined.
	ErrCodeUnknownType ErrorCode = "UNKNOWN_TYPE"

	// ErrCodeEntityDoesNotExist indicates an unknown entity or name.
	ErrCodeEntityDoesNotExist ErrorCode = "ENTITY_DOES_NOT_EXIST"

	// ErrCodeDataConsistency indicates stored data that breaks a schema
	// invariant.
	ErrCodeDataConsistency ErrorCode = "DATA_CONSISTENCY"
)

// Error is an entity system failure.
type Error struct {
	Code    ErrorCode
	Message string

	// Entity is the TID the error is about, or 0.
	Entity int64

	Err error
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Entity != 0 {
		msg = fmt.Sprintf("%s (entity %d)", msg, e.Entity)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, entity int64, format string, args ...any) *Error {
	return &Error{Code: code, Entity: entity, Message: fmt.Sprintf(format, args...)}
}

func invalidArgument(format string, args ...any) *Error {
	return newError(ErrCodeInvalidArgument, 0, format, args...)
}

func invalidName(format string, args ...any) *Error {
	return newError(ErrCodeInvalidName, 0, format, args...)
}

func invalidType(format string, args ...any) *Error {
	return newError(ErrCodeInvalidType, 0, format, args...)
}

func unknownType(ref fmt.Stringer, err error) *Error {
	return &Error{Code: ErrCodeUnknownType, Message: fmt.Sprintf("type %s is not defined", ref), Err: err}
}

func doesNotExist(entity int64, format string, args ...any) *Error {
	return newError(ErrCodeEntityDoesNotExist, entity, format, args...)
}

func consistency(entity int64, format string, args ...any) *Error {
	return newError(ErrCodeDataConsistency, entity, format, args...)
}

func codeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err is a not-found condition from any layer:
// a missing entity, a missing statement or an unknown type.
func IsNotFound(err error) bool {
	switch codeOf(err) {
	case ErrCodeEntityDoesNotExist, ErrCodeUnknownType:
		return true
	}
	return store.IsNotFound(err) ||
		registry.IsUnknownType(err)
}

// IsArgumentError reports whether err rejects the caller's input.
func IsArgumentError(err error) bool {
	switch codeOf(err) {
	case ErrCodeInvalidArgument, ErrCodeInvalidName, ErrCodeInvalidType:
		return true
	}
	return store.IsInvalidArgument(err)
}

// IsInvalidName reports whether err is an INVALID_NAME error.
func IsInvalidName(err error) bool {
	return codeOf(err) == ErrCodeInvalidName
}

// IsInvalidType reports whether err is an INVALID_TYPE error.
func IsInvalidType(err error) bool {
	return codeOf(err) == ErrCodeInvalidType
}

// IsUnknownType reports whether err names a type that is not defined.
func IsUnknownType(err error) bool {
	return codeOf(err) == ErrCodeUnknownType || registry.IsUnknownType(err)
}

// IsConsistencyError reports whether err signals inconsistent stored data
// or schema.
func IsConsistencyError(err error) bool {
	return codeOf(err) == ErrCodeDataConsistency ||
		registry.IsSchemaConsistency(err) ||
		store.IsDuplicate(err)
}

// IsAlreadyCancelled reports whether err is a cancellation of a statement
// that was already cancelled.
func IsAlreadyCancelled(err error) bool {
	return store.IsAlreadyCancelled(err)
}

// Code returns a stable code for err from whichever layer raised it, or
// "" for errors without one.
func Code(err error) string {
	if err == nil {
		return ""
	}
	if c := codeOf(err); c != "" {
		return string(c)
	}
	if c := store.Code(err); c != "" {
		return c
	}
	var re *registry.Error
	if errors.As(err, &re) {
		return re.Code
	}
	var ge *tid.GenerationError
	if errors.As(err, &ge) {
		return "GENERATION_ERROR"
	}
	return ""
}
