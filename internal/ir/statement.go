package ir

// MetadataPair is one (predicate, object-or-value) entry attached to a
// statement at creation or cancellation time.
type MetadataPair struct {
	Predicate int64
	Value     Value
}

// M is shorthand for a MetadataPair.
func M(predicate int64, v Value) MetadataPair {
	return MetadataPair{Predicate: predicate, Value: v}
}

// Statement is one stored (subject, predicate, object-or-value) assertion.
//
// A statement is active while CancellationID is 0. Once cancelled it keeps
// its row forever and never becomes active again.
type Statement struct {
	ID                   int64
	Subject              int64
	Predicate            int64
	Object               Value
	CancellationID       int64
	StatementMetadata    []MetadataPair
	CancellationMetadata []MetadataPair
}

// IsCancelled reports whether the statement has been cancelled.
func (s Statement) IsCancelled() bool {
	return s.CancellationID != 0
}

// ObjectID returns the object TID for entity-valued statements.
func (s Statement) ObjectID() (int64, bool) {
	return AsEntity(s.Object)
}

// MetadataValue returns the first creation metadata value for predicate.
func (s Statement) MetadataValue(predicate int64) (Value, bool) {
	return lookupMetadata(s.StatementMetadata, predicate)
}

// CancellationMetadataValue returns the first cancellation metadata value
// for predicate.
func (s Statement) CancellationMetadataValue(predicate int64) (Value, bool) {
	return lookupMetadata(s.CancellationMetadata, predicate)
}

// HasMetadata reports whether the creation metadata contains the exact pair.
func (s Statement) HasMetadata(p MetadataPair) bool {
	for _, m := range s.StatementMetadata {
		if m.Predicate == p.Predicate && ValuesEqual(m.Value, p.Value) {
			return true
		}
	}
	return false
}

func lookupMetadata(pairs []MetadataPair, predicate int64) (Value, bool) {
	for _, m := range pairs {
		if m.Predicate == predicate {
			return m.Value, true
		}
	}
	return nil, false
}
