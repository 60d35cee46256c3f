package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/entsys/internal/ir"
)

const selectStatement = `
	SELECT id, subject, predicate, object, value, cancellation_id,
	       statement_metadata, cancellation_metadata,
	       statement_metadata_positions, cancellation_metadata_positions,
	       edited_by, edit_timestamp, statement_group,
	       cancelled_by, cancellation_timestamp
	FROM statements`

// Retrieve returns statement id, active or cancelled.
func (s *SQLiteStore) Retrieve(ctx context.Context, id int64) (ir.Statement, error) {
	row := s.db.QueryRowContext(ctx, selectStatement+" WHERE id = ?", id)
	st, err := scanStatement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Statement{}, notFound(id)
	}
	return st, err
}

// RetrieveByCancellationID returns the statement cancelled by cancellationID.
func (s *SQLiteStore) RetrieveByCancellationID(ctx context.Context, cancellationID int64) (ir.Statement, error) {
	if cancellationID <= 0 {
		return ir.Statement{}, cancellationNotFound(cancellationID)
	}
	row := s.db.QueryRowContext(ctx, selectStatement+" WHERE cancellation_id = ?", cancellationID)
	st, err := scanStatement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Statement{}, cancellationNotFound(cancellationID)
	}
	return st, err
}

// Find returns the statements matching q ordered by ID.
// Returns an empty slice (not nil) if nothing matches.
func (s *SQLiteStore) Find(ctx context.Context, q Query) ([]ir.Statement, error) {
	where, args := s.buildWhere(q)
	query := selectStatement
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, backendError("query statements", err)
	}
	defer rows.Close()

	statements := []ir.Statement{}
	for rows.Next() {
		st, err := scanStatement(rows)
		if err != nil {
			return nil, err
		}
		statements = append(statements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, backendError("iterate statements", err)
	}
	return statements, nil
}

func (s *SQLiteStore) buildWhere(q Query) ([]string, []any) {
	var where []string
	var args []any

	if !q.IncludeCancelled {
		where = append(where, "cancellation_id = 0")
	}
	if q.Subject != nil {
		where = append(where, "subject = ?")
		args = append(args, *q.Subject)
	}
	if q.Predicate != nil {
		where = append(where, "predicate = ?")
		args = append(args, *q.Predicate)
	}
	switch v := q.Object.(type) {
	case ir.EntityRef:
		where = append(where, "object = ?")
		args = append(args, int64(v))
	case ir.Literal:
		where = append(where, "value = ?")
		args = append(args, string(v))
	}
	for _, m := range q.Metadata {
		clause, clauseArgs := metadataClause(m)
		where = append(where, clause)
		args = append(args, clauseArgs...)
	}
	return where, args
}

// metadataClause matches a creation metadata pair in the dedicated column
// or in the JSON blob. Integer and text compare unequal in SQLite, so an
// EntityRef never matches a Literal with the same digits.
func metadataClause(m ir.MetadataPair) (string, []any) {
	var arg any = m.Value.String()
	if ref, ok := m.Value.(ir.EntityRef); ok {
		arg = int64(ref)
	}

	jsonMatch := `EXISTS (SELECT 1 FROM json_each(statement_metadata) AS md
		WHERE json_extract(md.value, '$[0]') = ? AND json_extract(md.value, '$[1]') = ?)`

	for _, c := range statementColumns {
		if c.predicate == m.Predicate && c.accepts(m.Value) {
			return fmt.Sprintf("(%s = ? OR %s)", c.name, jsonMatch), []any{arg, m.Predicate, arg}
		}
	}
	return jsonMatch, []any{m.Predicate, arg}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatement(row rowScanner) (ir.Statement, error) {
	var st ir.Statement
	var object sql.NullInt64
	var value sql.NullString
	var stmtBlob, cancBlob, stmtPositions, cancPositions string
	stmtCols := make([]columnValue, len(statementColumns))
	cancCols := make([]columnValue, len(cancellationColumns))

	dest := []any{&st.ID, &st.Subject, &st.Predicate, &object, &value, &st.CancellationID, &stmtBlob, &cancBlob, &stmtPositions, &cancPositions}
	for i, c := range statementColumns {
		dest = append(dest, stmtCols[i].dest(c))
	}
	for i, c := range cancellationColumns {
		dest = append(dest, cancCols[i].dest(c))
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Statement{}, err
		}
		return ir.Statement{}, backendError("scan statement", err)
	}

	switch {
	case object.Valid:
		st.Object = ir.EntityRef(object.Int64)
	case value.Valid:
		st.Object = ir.Literal(value.String)
	}

	var err error
	if st.StatementMetadata, err = joinMetadata(stmtBlob, stmtPositions, statementColumns, stmtCols); err != nil {
		return ir.Statement{}, backendError(fmt.Sprintf("statement %d", st.ID), err)
	}
	if st.CancellationMetadata, err = joinMetadata(cancBlob, cancPositions, cancellationColumns, cancCols); err != nil {
		return ir.Statement{}, backendError(fmt.Sprintf("statement %d", st.ID), err)
	}
	return st, nil
}
