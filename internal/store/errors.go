package store

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	ErrCodeInvalidArgument           = "INVALID_ARGUMENT"
	ErrCodeDuplicateStatementID      = "DUPLICATE_STATEMENT_ID"
	ErrCodeStatementNotFound         = "STATEMENT_NOT_FOUND"
	ErrCodeStatementAlreadyCancelled = "STATEMENT_ALREADY_CANCELLED"
	ErrCodeBackend                   = "BACKEND"
)

var (
	errBatchDone       = errors.New("batch already committed or rolled back")
	errConcurrentWrite = errors.New("store changed since the batch was prepared")
)

// Error is a storage failure with a stable code.
type Error struct {
	Code        string
	Message     string
	StatementID int64
	Err         error
}

func (e *Error) Error() string {
	msg := e.Code + ": " + e.Message
	if e.StatementID != 0 {
		msg = fmt.Sprintf("%s (statement %d)", msg, e.StatementID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BatchError tags the command that made a batch fail.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch command %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

func invalidArgument(id int64, format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...), StatementID: id}
}

func notFound(id int64) *Error {
	return &Error{Code: ErrCodeStatementNotFound, Message: "statement not found", StatementID: id}
}

func cancellationNotFound(cancellationID int64) *Error {
	return &Error{
		Code:    ErrCodeStatementNotFound,
		Message: fmt.Sprintf("no statement with cancellation id %d", cancellationID),
	}
}

func duplicateID(id int64) *Error {
	return &Error{Code: ErrCodeDuplicateStatementID, Message: "statement id already exists", StatementID: id}
}

func alreadyCancelled(id int64) *Error {
	return &Error{Code: ErrCodeStatementAlreadyCancelled, Message: "statement already cancelled", StatementID: id}
}

func backendError(op string, err error) *Error {
	return &Error{Code: ErrCodeBackend, Message: op, Err: err}
}

// Code returns the code of the first *Error in err's chain, or "".
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err is a STATEMENT_NOT_FOUND error.
func IsNotFound(err error) bool {
	return Code(err) == ErrCodeStatementNotFound
}

// IsAlreadyCancelled reports whether err is a STATEMENT_ALREADY_CANCELLED error.
func IsAlreadyCancelled(err error) bool {
	return Code(err) == ErrCodeStatementAlreadyCancelled
}

// IsDuplicate reports whether err is a DUPLICATE_STATEMENT_ID error.
func IsDuplicate(err error) bool {
	return Code(err) == ErrCodeDuplicateStatementID
}

// IsInvalidArgument reports whether err is an INVALID_ARGUMENT error.
func IsInvalidArgument(err error) bool {
	return Code(err) == ErrCodeInvalidArgument
}
