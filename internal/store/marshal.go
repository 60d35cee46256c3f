package store

import (
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/schema"
)

// metadataColumn maps one standard metadata predicate to a dedicated column.
type metadataColumn struct {
	name      string
	predicate int64
	entity    bool // INTEGER column holding an EntityRef; TEXT holds a Literal
}

var statementColumns = []metadataColumn{
	{"edited_by", schema.RelationStatementEditor, true},
	{"edit_timestamp", schema.AttributeEditTimestamp, false},
	{"statement_group", schema.RelationStatementGroup, true},
}

var cancellationColumns = []metadataColumn{
	{"cancelled_by", schema.RelationCancelledBy, true},
	{"cancellation_timestamp", schema.AttributeCancellationTimestamp, false},
}

func (c metadataColumn) accepts(v ir.Value) bool {
	if c.entity {
		_, ok := v.(ir.EntityRef)
		return ok
	}
	_, ok := v.(ir.Literal)
	return ok
}

func (c metadataColumn) arg(v ir.Value) any {
	if ref, ok := v.(ir.EntityRef); ok {
		return int64(ref)
	}
	return v.String()
}

// splitMetadata moves the first pair for each column predicate into that
// column. Everything else, in order, goes to the JSON blob. Unused columns
// get SQL NULL. positions records where each column's pair sat in pairs.
func splitMetadata(pairs []ir.MetadataPair, cols []metadataColumn) (blob string, args []any, positions string, err error) {
	args = make([]any, len(cols))
	at := make([]int, len(cols))
	for i := range at {
		at[i] = -1
	}
	rest := make([]ir.MetadataPair, 0, len(pairs))
	for j, p := range pairs {
		placed := false
		for i, c := range cols {
			if args[i] == nil && c.predicate == p.Predicate && c.accepts(p.Value) {
				args[i] = c.arg(p.Value)
				at[i] = j
				placed = true
				break
			}
		}
		if !placed {
			rest = append(rest, p)
		}
	}
	data, err := ir.MarshalMetadata(rest)
	if err != nil {
		return "", nil, "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(data), args, formatPositions(at), nil
}

// formatPositions renders column positions as "0,2,-1"; "" when no
// column holds a pair.
func formatPositions(at []int) string {
	if !slices.ContainsFunc(at, func(i int) bool { return i >= 0 }) {
		return ""
	}
	parts := make([]string, len(at))
	for i, p := range at {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

func parsePositions(s string, n int) []int {
	parts := strings.Split(s, ",")
	if s == "" || len(parts) != n {
		return nil
	}
	at := make([]int, n)
	for i, part := range parts {
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil
		}
		at[i] = p
	}
	return at
}

// columnValue receives one dedicated column during a scan.
type columnValue struct {
	i sql.NullInt64
	s sql.NullString
}

func (v *columnValue) dest(c metadataColumn) any {
	if c.entity {
		return &v.i
	}
	return &v.s
}

func (v columnValue) value(c metadataColumn) (ir.Value, bool) {
	if c.entity {
		return ir.EntityRef(v.i.Int64), v.i.Valid
	}
	return ir.Literal(v.s.String), v.s.Valid
}

// joinMetadata rebuilds the logical metadata list, putting column pairs
// back at their recorded positions. Rows without usable positions get the
// column pairs first, then the JSON entries.
func joinMetadata(blob, positions string, cols []metadataColumn, vals []columnValue) ([]ir.MetadataPair, error) {
	rest, err := ir.UnmarshalMetadata([]byte(blob))
	if err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	at := parsePositions(positions, len(cols))

	var placed []ir.MetadataPair
	var slots []int
	for i, c := range cols {
		if v, ok := vals[i].value(c); ok {
			placed = append(placed, ir.M(c.predicate, v))
			slot := -1
			if at != nil {
				slot = at[i]
			}
			slots = append(slots, slot)
		}
	}
	if len(placed) == 0 {
		return rest, nil
	}

	out := make([]ir.MetadataPair, len(placed)+len(rest))
	filled := make([]bool, len(out))
	for k, p := range placed {
		j := slots[k]
		if j < 0 || j >= len(out) || filled[j] {
			return append(placed, rest...), nil
		}
		out[j] = p
		filled[j] = true
	}
	r := 0
	for j := range out {
		if !filled[j] {
			out[j] = rest[r]
			r++
		}
	}
	return out, nil
}

// objectArgs returns the object and value column arguments for v.
func objectArgs(v ir.Value) (any, any) {
	switch val := v.(type) {
	case ir.EntityRef:
		return int64(val), nil
	case ir.Literal:
		return nil, string(val)
	default:
		return nil, nil
	}
}
