package ir

// EntityData is the resolved statement set of one entity: everything it is
// the subject of, plus everything that points at it as object.
type EntityData struct {
	ID                 int64       `json:"id"`
	Type               int64       `json:"type"`
	Name               string      `json:"name"`
	Statements         []Statement `json:"statements"`
	StatementsAsObject []Statement `json:"statements_as_object"`

	// MergedInto is the TID of the entity this one was merged into, or 0.
	MergedInto int64 `json:"merged_into,omitempty"`
}

// Qualifier restricts predicate lookups to statements whose creation
// metadata contains Predicate, and, when Value is non-nil, that exact value.
type Qualifier struct {
	Predicate int64
	Value     Value
}

// IsMerged reports whether the entity was merged into another.
func (d EntityData) IsMerged() bool {
	return d.MergedInto != 0
}

// AllStatements returns subject statements followed by object statements.
func (d EntityData) AllStatements() []Statement {
	all := make([]Statement, 0, len(d.Statements)+len(d.StatementsAsObject))
	all = append(all, d.Statements...)
	return append(all, d.StatementsAsObject...)
}

// StatementForPredicate returns the first active subject statement with
// the given predicate that satisfies every qualifier.
func (d EntityData) StatementForPredicate(predicate int64, qs ...Qualifier) (Statement, bool) {
	for _, s := range d.Statements {
		if s.Predicate == predicate && !s.IsCancelled() && qualifies(s, qs) {
			return s, true
		}
	}
	return Statement{}, false
}

// ObjectForPredicate returns the payload of StatementForPredicate.
func (d EntityData) ObjectForPredicate(predicate int64, qs ...Qualifier) (Value, bool) {
	s, ok := d.StatementForPredicate(predicate, qs...)
	if !ok {
		return nil, false
	}
	return s.Object, true
}

// AllStatementsForPredicate returns every active subject statement with the
// given predicate that satisfies every qualifier.
func (d EntityData) AllStatementsForPredicate(predicate int64, qs ...Qualifier) []Statement {
	var out []Statement
	for _, s := range d.Statements {
		if s.Predicate == predicate && !s.IsCancelled() && qualifies(s, qs) {
			out = append(out, s)
		}
	}
	return out
}

// AllObjectsForPredicate returns the payloads of AllStatementsForPredicate.
func (d EntityData) AllObjectsForPredicate(predicate int64, qs ...Qualifier) []Value {
	statements := d.AllStatementsForPredicate(predicate, qs...)
	out := make([]Value, 0, len(statements))
	for _, s := range statements {
		out = append(out, s.Object)
	}
	return out
}

// ObjectsByQualification groups the payloads of predicate by the value of
// their qualification predicate. Statements without it are grouped under
// noQualificationKey.
func (d EntityData) ObjectsByQualification(predicate, qualificationPredicate int64, noQualificationKey string) map[string][]Value {
	out := make(map[string][]Value)
	for _, s := range d.AllStatementsForPredicate(predicate) {
		key := noQualificationKey
		if v, ok := s.MetadataValue(qualificationPredicate); ok {
			key = v.String()
		}
		out[key] = append(out[key], s.Object)
	}
	return out
}

func qualifies(s Statement, qs []Qualifier) bool {
	for _, q := range qs {
		if !hasQualifier(s.StatementMetadata, q) {
			return false
		}
	}
	return true
}

func hasQualifier(pairs []MetadataPair, q Qualifier) bool {
	for _, m := range pairs {
		if m.Predicate == q.Predicate && (q.Value == nil || ValuesEqual(m.Value, q.Value)) {
			return true
		}
	}
	return false
}
