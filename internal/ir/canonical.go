package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON (RFC 8785 subset) for v.
//
// Key differences from standard json.Marshal:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. No floats and no null (returns error)
//
// Supported inputs: string, Literal, int, int64, EntityRef, bool, []any,
// map[string]any, MetadataPair, []MetadataPair, Statement, []Statement and
// EntityData. Metadata pairs encode as two-element arrays whose second
// element is a number for an EntityRef and a string for a Literal.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return writeCanonicalString(buf, val)
	case Literal:
		return writeCanonicalString(buf, string(val))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case EntityRef:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case MetadataPair:
		if val.Value == nil {
			return fmt.Errorf("metadata predicate %d has no value", val.Predicate)
		}
		return writeCanonical(buf, []any{val.Predicate, val.Value})
	case []MetadataPair:
		items := make([]any, len(val))
		for i, p := range val {
			items[i] = p
		}
		return writeCanonical(buf, items)
	case Statement:
		m, err := statementMap(val)
		if err != nil {
			return err
		}
		return writeCanonical(buf, m)
	case []Statement:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return writeCanonical(buf, items)
	case EntityData:
		return writeCanonical(buf, entityDataMap(val))
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		// CRITICAL: RFC 8785 UTF-16 code unit ordering
		slices.SortFunc(keys, compareKeysRFC8785)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString writes s NFC-normalised, escaping only what JSON
// requires: quote, backslash and control characters. U+2028 and U+2029
// are written literally.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false) // CRITICAL: <, >, & must NOT be escaped
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters. An escape preceded by an odd
// number of backslashes is literal text and is kept.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) && data[i+1] == 'u' &&
			data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {
			backslashes := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

func statementMap(s Statement) (map[string]any, error) {
	m := map[string]any{
		"id":        s.ID,
		"subject":   s.Subject,
		"predicate": s.Predicate,
		"metadata":  nonNilPairs(s.StatementMetadata),
	}
	switch obj := s.Object.(type) {
	case EntityRef:
		m["object"] = int64(obj)
	case Literal:
		m["value"] = string(obj)
	default:
		return nil, fmt.Errorf("statement %d has no object or value", s.ID)
	}
	if s.CancellationID != 0 {
		m["cancellation_id"] = s.CancellationID
		m["cancellation_metadata"] = nonNilPairs(s.CancellationMetadata)
	}
	return m, nil
}

func entityDataMap(d EntityData) map[string]any {
	m := map[string]any{
		"id":                   d.ID,
		"type":                 d.Type,
		"name":                 d.Name,
		"statements":           nonNilStatements(d.Statements),
		"statements_as_object": nonNilStatements(d.StatementsAsObject),
	}
	if d.MergedInto != 0 {
		m["merged_into"] = d.MergedInto
	}
	return m
}

func nonNilPairs(p []MetadataPair) []MetadataPair {
	if p == nil {
		return []MetadataPair{}
	}
	return p
}

func nonNilStatements(s []Statement) []Statement {
	if s == nil {
		return []Statement{}
	}
	return s
}
