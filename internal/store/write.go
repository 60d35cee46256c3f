package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/entsys/internal/ir"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store inserts a new active statement.
// A duplicate ID fails with DUPLICATE_STATEMENT_ID.
func (s *SQLiteStore) Store(ctx context.Context, id, subject, predicate int64, object ir.Value, metadata []ir.MetadataPair) error {
	return s.insert(ctx, s.db, StoreCommand(id, subject, predicate, object, metadata))
}

// Cancel marks statement id as cancelled.
// Cancelling twice fails with STATEMENT_ALREADY_CANCELLED.
func (s *SQLiteStore) Cancel(ctx context.Context, id, cancellationID int64, metadata []ir.MetadataPair) error {
	return s.cancel(ctx, s.db, CancelCommand(id, cancellationID, metadata))
}

// ApplyBatch runs every command in one transaction.
// On failure nothing is written and the error is a *BatchError.
func (s *SQLiteStore) ApplyBatch(ctx context.Context, cmds []Command) error {
	b, err := s.PrepareBatch(ctx, cmds)
	if err != nil {
		return err
	}
	return b.Commit()
}

// PrepareBatch runs cmds inside an open transaction and returns it
// uncommitted. The store's only connection stays busy until the batch
// is committed or rolled back.
func (s *SQLiteStore) PrepareBatch(ctx context.Context, cmds []Command) (Batch, error) {
	for i, c := range cmds {
		if err := validateCommand(c); err != nil {
			return nil, &BatchError{Index: i, Err: err}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, backendError("begin batch", err)
	}

	for i, c := range cmds {
		if err := s.apply(ctx, tx, c); err != nil {
			tx.Rollback()
			return nil, &BatchError{Index: i, Err: err}
		}
	}
	return &sqliteBatch{tx: tx}, nil
}

type sqliteBatch struct {
	tx *sql.Tx
}

func (b *sqliteBatch) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return backendError("commit batch", err)
	}
	return nil
}

func (b *sqliteBatch) Rollback() error {
	if err := b.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return backendError("rollback batch", err)
	}
	return nil
}

func (s *SQLiteStore) apply(ctx context.Context, q querier, c Command) error {
	if c.Kind == CommandCancel {
		return s.cancel(ctx, q, c)
	}
	return s.insert(ctx, q, c)
}

func (s *SQLiteStore) columns(cols []metadataColumn) []metadataColumn {
	if !s.metadataColumns {
		return nil
	}
	return cols
}

func (s *SQLiteStore) insert(ctx context.Context, q querier, c Command) error {
	if err := validateStore(c.ID, c.Subject, c.Predicate, c.Object, c.Metadata); err != nil {
		return err
	}

	blob, cols, positions, err := splitMetadata(c.Metadata, s.columns(statementColumns))
	if err != nil {
		return invalidArgument(c.ID, "%v", err)
	}
	editedBy, editTimestamp, group := columnArg(cols, 0), columnArg(cols, 1), columnArg(cols, 2)
	object, value := objectArgs(c.Object)

	_, err = q.ExecContext(ctx, `
		INSERT INTO statements
		(id, subject, predicate, object, value, statement_metadata, statement_metadata_positions,
		 edited_by, edit_timestamp, statement_group)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		c.Subject,
		c.Predicate,
		object,
		value,
		blob,
		positions,
		editedBy,
		editTimestamp,
		group,
	)
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintPrimaryKey) {
			return duplicateID(c.ID)
		}
		return backendError(fmt.Sprintf("store statement %d", c.ID), err)
	}
	return nil
}

func (s *SQLiteStore) cancel(ctx context.Context, q querier, c Command) error {
	if err := validateCancel(c.ID, c.CancellationID, c.Metadata); err != nil {
		return err
	}

	blob, cols, positions, err := splitMetadata(c.Metadata, s.columns(cancellationColumns))
	if err != nil {
		return invalidArgument(c.ID, "%v", err)
	}

	res, err := q.ExecContext(ctx, `
		UPDATE statements
		SET cancellation_id = ?, cancellation_metadata = ?, cancellation_metadata_positions = ?,
		    cancelled_by = ?, cancellation_timestamp = ?
		WHERE id = ? AND cancellation_id = 0
	`,
		c.CancellationID,
		blob,
		positions,
		columnArg(cols, 0),
		columnArg(cols, 1),
		c.ID,
	)
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintUnique) {
			return invalidArgument(c.ID, "cancellation id %d already used", c.CancellationID)
		}
		return backendError(fmt.Sprintf("cancel statement %d", c.ID), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return backendError("rows affected", err)
	}
	if n > 0 {
		return nil
	}

	// Nothing updated: either missing or already cancelled.
	var cancellationID int64
	err = q.QueryRowContext(ctx, "SELECT cancellation_id FROM statements WHERE id = ?", c.ID).Scan(&cancellationID)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(c.ID)
	}
	if err != nil {
		return backendError(fmt.Sprintf("cancel statement %d", c.ID), err)
	}
	return alreadyCancelled(c.ID)
}

// columnArg returns the i-th column argument, or nil when columns are off.
func columnArg(cols []any, i int) any {
	if i < len(cols) {
		return cols[i]
	}
	return nil
}

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == code
}
