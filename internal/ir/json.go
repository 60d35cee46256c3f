package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// MarshalJSON encodes the pair as [predicate, value].
func (p MetadataPair) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(p)
}

// UnmarshalJSON decodes [predicate, value]; a numeric value becomes an
// EntityRef and a string value a Literal.
func (p *MetadataPair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("metadata pair: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("metadata pair: expected 2 elements, got %d", len(raw))
	}
	pred, err := strconv.ParseInt(string(bytes.TrimSpace(raw[0])), 10, 64)
	if err != nil {
		return fmt.Errorf("metadata pair predicate: %w", err)
	}
	v, err := decodeValue(raw[1])
	if err != nil {
		return fmt.Errorf("metadata pair %d: %w", pred, err)
	}
	p.Predicate = pred
	p.Value = v
	return nil
}

// MarshalMetadata encodes pairs as a canonical JSON array. A nil slice
// encodes as [].
func MarshalMetadata(pairs []MetadataPair) ([]byte, error) {
	return MarshalCanonical(nonNilPairs(pairs))
}

// UnmarshalMetadata decodes the output of MarshalMetadata. Empty input
// decodes to nil.
func UnmarshalMetadata(data []byte) ([]MetadataPair, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var pairs []MetadataPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, nil
	}
	return pairs, nil
}

type statementWire struct {
	ID                   int64          `json:"id"`
	Subject              int64          `json:"subject"`
	Predicate            int64          `json:"predicate"`
	Object               *int64         `json:"object,omitempty"`
	Value                *string        `json:"value,omitempty"`
	CancellationID       int64          `json:"cancellation_id,omitempty"`
	Metadata             []MetadataPair `json:"metadata"`
	CancellationMetadata []MetadataPair `json:"cancellation_metadata,omitempty"`
}

// MarshalJSON encodes the statement as canonical JSON with either an
// "object" or a "value" field.
func (s Statement) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(s)
}

// UnmarshalJSON decodes the output of MarshalJSON.
func (s *Statement) UnmarshalJSON(data []byte) error {
	var w statementWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Object != nil && w.Value != nil:
		return fmt.Errorf("statement %d has both object and value", w.ID)
	case w.Object != nil:
		s.Object = EntityRef(*w.Object)
	case w.Value != nil:
		s.Object = Literal(*w.Value)
	default:
		return fmt.Errorf("statement %d has neither object nor value", w.ID)
	}
	s.ID = w.ID
	s.Subject = w.Subject
	s.Predicate = w.Predicate
	s.CancellationID = w.CancellationID
	s.StatementMetadata = emptyToNil(w.Metadata)
	s.CancellationMetadata = emptyToNil(w.CancellationMetadata)
	return nil
}

// MarshalJSON encodes entity data as canonical JSON.
func (d EntityData) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(d)
}

func decodeValue(raw json.RawMessage) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty value")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return Literal(s), nil
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("value must be an integer or a string: %s", raw)
	}
	return EntityRef(n), nil
}

func emptyToNil(p []MetadataPair) []MetadataPair {
	if len(p) == 0 {
		return nil
	}
	return p
}
