package store

import (
	"context"

	"github.com/roach88/entsys/internal/ir"
)

// StatementStorage is the contract every statement backend implements.
// Metadata lists read back in the order they were written.
type StatementStorage interface {
	// Store adds a new active statement.
	Store(ctx context.Context, id, subject, predicate int64, object ir.Value, metadata []ir.MetadataPair) error

	// Retrieve returns the statement with the given ID.
	Retrieve(ctx context.Context, id int64) (ir.Statement, error)

	// RetrieveByCancellationID returns the statement cancelled by cancellationID.
	RetrieveByCancellationID(ctx context.Context, cancellationID int64) (ir.Statement, error)

	// Cancel marks an active statement as cancelled.
	Cancel(ctx context.Context, id, cancellationID int64, metadata []ir.MetadataPair) error

	// Find returns the statements matching q, ordered by ID.
	Find(ctx context.Context, q Query) ([]ir.Statement, error)

	// ApplyBatch applies every command or none of them.
	ApplyBatch(ctx context.Context, cmds []Command) error

	// PrepareBatch stages cmds. Nothing is visible until Commit.
	PrepareBatch(ctx context.Context, cmds []Command) (Batch, error)

	// Transactional reports whether ApplyBatch is all-or-nothing.
	Transactional() bool
}

// Batch is a set of staged commands.
type Batch interface {
	Commit() error
	Rollback() error
}

// Query selects statements. Nil fields match anything.
type Query struct {
	Subject   *int64
	Predicate *int64
	Object    ir.Value

	// Metadata restricts results to statements whose creation metadata
	// contains every listed pair.
	Metadata []ir.MetadataPair

	IncludeCancelled bool
}

// Int64 returns a pointer to v, for Query fields.
func Int64(v int64) *int64 {
	return &v
}

// CommandKind distinguishes store and cancel commands.
type CommandKind int

const (
	CommandStore CommandKind = iota + 1
	CommandCancel
)

func (k CommandKind) String() string {
	switch k {
	case CommandStore:
		return "store"
	case CommandCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Command is one batch entry. Build commands with StoreCommand and
// CancelCommand.
type Command struct {
	Kind CommandKind

	// ID is the statement ID for both kinds.
	ID int64

	Subject   int64
	Predicate int64
	Object    ir.Value

	CancellationID int64

	// Metadata is creation metadata for store commands and cancellation
	// metadata for cancel commands.
	Metadata []ir.MetadataPair
}

// StoreCommand returns a command that stores a new statement.
func StoreCommand(id, subject, predicate int64, object ir.Value, metadata []ir.MetadataPair) Command {
	return Command{
		Kind:      CommandStore,
		ID:        id,
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
		Metadata:  metadata,
	}
}

// CancelCommand returns a command that cancels statement id.
func CancelCommand(id, cancellationID int64, metadata []ir.MetadataPair) Command {
	return Command{
		Kind:           CommandCancel,
		ID:             id,
		CancellationID: cancellationID,
		Metadata:       metadata,
	}
}
