package store

import (
	"github.com/roach88/entsys/internal/ir"
)

func validateStore(id, subject, predicate int64, object ir.Value, metadata []ir.MetadataPair) error {
	if id <= 0 {
		return invalidArgument(id, "statement id must be positive")
	}
	if subject < 0 {
		return invalidArgument(id, "negative subject %d", subject)
	}
	if predicate < 0 {
		return invalidArgument(id, "negative predicate %d", predicate)
	}
	switch v := object.(type) {
	case nil:
		return invalidArgument(id, "statement has neither object nor value")
	case ir.EntityRef:
		if v < 0 {
			return invalidArgument(id, "negative object %d", int64(v))
		}
	}
	return validateMetadata(id, metadata)
}

func validateCancel(id, cancellationID int64, metadata []ir.MetadataPair) error {
	if id <= 0 {
		return invalidArgument(id, "statement id must be positive")
	}
	if cancellationID <= 0 {
		return invalidArgument(id, "cancellation id must be positive")
	}
	return validateMetadata(id, metadata)
}

func validateMetadata(id int64, metadata []ir.MetadataPair) error {
	for i, m := range metadata {
		if m.Predicate < 0 {
			return invalidArgument(id, "metadata[%d]: negative predicate %d", i, m.Predicate)
		}
		switch v := m.Value.(type) {
		case nil:
			return invalidArgument(id, "metadata[%d]: missing value", i)
		case ir.EntityRef:
			if v < 0 {
				return invalidArgument(id, "metadata[%d]: negative object %d", i, int64(v))
			}
		}
	}
	return nil
}

func validateCommand(c Command) error {
	switch c.Kind {
	case CommandStore:
		return validateStore(c.ID, c.Subject, c.Predicate, c.Object, c.Metadata)
	case CommandCancel:
		return validateCancel(c.ID, c.CancellationID, c.Metadata)
	default:
		return invalidArgument(c.ID, "unknown command kind %d", int(c.Kind))
	}
}

// matches reports whether s satisfies q. Backends without an index for a
// field fall back to this.
func matches(q Query, s ir.Statement) bool {
	if !q.IncludeCancelled && s.IsCancelled() {
		return false
	}
	if q.Subject != nil && s.Subject != *q.Subject {
		return false
	}
	if q.Predicate != nil && s.Predicate != *q.Predicate {
		return false
	}
	if q.Object != nil && !ir.ValuesEqual(s.Object, q.Object) {
		return false
	}
	for _, m := range q.Metadata {
		if !s.HasMetadata(m) {
			return false
		}
	}
	return true
}

func cloneStatement(s ir.Statement) ir.Statement {
	s.StatementMetadata = clonePairs(s.StatementMetadata)
	s.CancellationMetadata = clonePairs(s.CancellationMetadata)
	return s
}

func clonePairs(p []ir.MetadataPair) []ir.MetadataPair {
	if len(p) == 0 {
		return nil
	}
	out := make([]ir.MetadataPair, len(p))
	copy(out, p)
	return out
}
