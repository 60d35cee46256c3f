package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"literal", Literal("hello"), `"hello"`},
		{"int64", int64(42), "42"},
		{"entity ref", EntityRef(852015060820), "852015060820"},
		{"bool", true, "true"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"metadata pair object", M(11, EntityRef(1)), "[11,1]"},
		{"metadata pair value", M(24, Literal("1700000000")), `[24,"1700000000"]`},
		{"no metadata", []MetadataPair{}, "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": int64(1),
		"alpha": int64(2),
		"beta":  int64(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":3,"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+E000 vs U+10000: UTF-16 order differs from UTF-8.
	obj := map[string]any{
		"\ue000":     int64(1),
		"\U00010000": int64(2),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\ue000\":1}", string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(Literal("<a & b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" followed by a combining acute accent normalises to U+00E9.
	result, err := MarshalCanonical("Averroe\u0301s")
	require.NoError(t, err)
	assert.Equal(t, "\"Averro\u00e9s\"", string(result))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	// A literal backslash followed by the text u2028 stays escaped.
	result, err = MarshalCanonical(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(result))
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(3.14)
	assert.Error(t, err)

	_, err = MarshalCanonical(MetadataPair{Predicate: 1})
	assert.Error(t, err)

	_, err = MarshalCanonical(Statement{ID: 1, Subject: 2, Predicate: 3})
	assert.Error(t, err, "statement without payload")
}

func TestMarshalCanonicalStatement(t *testing.T) {
	s := Statement{
		ID:        1000,
		Subject:   2000,
		Predicate: 20,
		Object:    Literal("Republic"),
		StatementMetadata: []MetadataPair{
			M(11, EntityRef(1)),
			M(24, Literal("1700000000")),
		},
	}

	result, err := MarshalCanonical(s)
	require.NoError(t, err)
	assert.Equal(t,
		`{"id":1000,"metadata":[[11,1],[24,"1700000000"]],"predicate":20,"subject":2000,"value":"Republic"}`,
		string(result))
}

func TestMarshalCanonicalCancelledStatement(t *testing.T) {
	s := Statement{
		ID:             1000,
		Subject:        2000,
		Predicate:      10,
		Object:         EntityRef(101),
		CancellationID: 3000,
	}

	result, err := MarshalCanonical(s)
	require.NoError(t, err)
	assert.Equal(t,
		`{"cancellation_id":3000,"cancellation_metadata":[],"id":1000,"metadata":[],"object":101,"predicate":10,"subject":2000}`,
		string(result))
}
