package entity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/schema"
	"github.com/roach88/entsys/internal/store"
)

func TestBookLifecycle(t *testing.T) {
	ctx := context.Background()
	s := createTestSystem(t, testConfig(t))

	bookType, err := s.CreateEntityType(ctx, "Book", "A book", true, 0, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, bookType, mustTID(t, s, "EntityType:Book"))

	b1, err := s.CreateEntity(ctx, ir.TypeName("Book"), "Republic", "", 0, time.Time{})
	require.NoError(t, err)

	_, err = s.CreateEntity(ctx, ir.TypeName("Book"), "Republic", "", 0, time.Time{})
	require.Error(t, err)
	assert.True(t, IsInvalidName(err))

	tid, err := s.GetTidByTypeAndName(ctx, ir.TypeName("Book"), "Republic")
	require.NoError(t, err)
	assert.Equal(t, b1, tid)

	nameStmt := activeStatement(t, s, b1, schema.AttributeName)
	_, err = s.CancelStatement(ctx, nameStmt.ID, 0, "wrong title", ir.TypeRef{}, time.Time{})
	require.NoError(t, err)

	_, err = s.GetEntityName(ctx, b1, ir.TypeRef{})
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "ENTITY_DOES_NOT_EXIST", Code(err))

	typ, err := s.GetEntityType(ctx, b1)
	require.NoError(t, err, "cancelling the name keeps the entity")
	assert.Equal(t, bookType, typ)

	_, err = s.GetTidByTypeAndName(ctx, ir.TypeName("Book"), "Republic")
	assert.True(t, IsNotFound(err))

	_, err = s.MakeStatement(ctx, NewStatement{
		Subject:   b1,
		Predicate: ir.EntityRef(schema.AttributeName),
		Object:    ir.Literal("Politeia"),
	})
	require.NoError(t, err)

	name, err := s.GetEntityName(ctx, b1, ir.TypeRef{})
	require.NoError(t, err)
	assert.Equal(t, "Politeia", name)

	// The old name is free again.
	b2, err := s.CreateEntity(ctx, ir.TypeName("Book"), "Republic", "", 0, time.Time{})
	require.NoError(t, err)
	assert.NotEqual(t, b1, b2)
}

func TestCreateEntity_Statements(t *testing.T) {
	ctx := context.Background()
	s := createTestSystem(t, testConfig(t))
	editor := mustCreate(t, s, schema.TypeNamePerson, "Editor")

	ts := time.Unix(1_600_000_000, 0)
	plato, err := s.CreateEntity(ctx, ir.TypeName(schema.TypeNamePerson), "Plato", "A philosopher", editor, ts)
	require.NoError(t, err)

	rows, err := s.FindStatements(ctx, store.Query{Subject: store.Int64(plato)})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	group, ok := rows[0].MetadataValue(schema.RelationStatementGroup)
	require.True(t, ok)
	for _, r := range rows {
		g, _ := r.MetadataValue(schema.RelationStatementGroup)
		assert.Equal(t, group, g)
		e, _ := r.MetadataValue(schema.RelationStatementEditor)
		assert.Equal(t, ir.EntityRef(editor), e)
		at, _ := r.MetadataValue(schema.AttributeEditTimestamp)
		assert.Equal(t, ir.Literal("1600000000"), at)
		assert.NotEqual(t, group, ir.EntityRef(r.ID))
	}

	assert.Equal(t, ir.Literal("A philosopher"),
		activeStatement(t, s, plato, schema.AttributeDescription).Object)
	assert.Equal(t, ir.EntityRef(mustTID(t, s, "EntityType:Person")),
		activeStatement(t, s, plato, schema.RelationIsOfType).Object)
}

func TestCreateEntity_Defaults(t *testing.T) {
	s := createTestSystem(t, testConfig(t))
	plato := mustCreate(t, s, schema.TypeNamePerson, "Plato")

	st := activeStatement(t, s, plato, schema.AttributeName)
	editor, _ := st.MetadataValue(schema.RelationStatementEditor)
	assert.Equal(t, ir.EntityRef(schema.System), editor)
	at, _ := st.MetadataValue(schema.AttributeEditTimestamp)
	assert.Equal(t, ir.Literal("1700000000"), at)
	_, hasNote := st.MetadataValue(schema.AttributeEditorialNote)
	assert.False(t, hasNote)
}

func TestCreateEntity_NonUniqueNamesRepeat(t *testing.T) {
	ctx := context.Background()
	s := createTestSystem(t, testConfig(t))
	a := mustCreate(t, s, schema.TypeNamePerson, "Socrates")
	b := mustCreate(t, s, schema.TypeNamePerson, "Socrates")
	assert.NotEqual(t, a, b)

	names, err := s.GetDefinedEntityNamesForType(ctx, ir.TypeName(schema.TypeNamePerson))
	require.NoError(t, err)
	assert.Equal(t, []string{"Socrates"}, names)

	_, err = s.GetTidByTypeAndName(ctx, ir.TypeName(schema.TypeNamePerson), "Socrates")
	assert.True(t, IsInvalidType(err))
}

func TestCreateEntity_NormalizesNames(t *testing.T) {
	ctx := context.Background()
	s := createTestSystem(t, testConfig(t))
	mustCreateType(t, s, "Book", true)

	decomposed := "Cafe\u0301"
	composed := "Caf\u00e9"
	tid := mustCreate(t, s, "Book", decomposed)

	got, err := s.GetTidByTypeAndName(ctx, ir.TypeName("Book"), composed)
	require.NoError(t, err)
	assert.Equal(t, tid, got)

	_, err = s.CreateEntity(ctx, ir.TypeName("Book"), composed, "", 0, time.Time{})
	assert.True(t, IsInvalidName(err))
}

func TestCreateEntity_Errors(t *testing.T) {
	ctx := context.Background()
	s := createTestSystem(t, testConfig(t))
	mustCreateType(t, s, "Book", true)
	mustCreate(t, s, "Book", "Republic")

	tests := []struct {
		name    string
		typ     ir.TypeRef
		entity  string
		check   func(error) bool
		wantErr string
	}{
		{"no type", ir.TypeRef{}, "x", IsInvalidType, "INVALID_TYPE"},
		{"entity type", ir.TypeID(schema.TypeEntityType), "Novel", IsInvalidType, "INVALID_TYPE"},
		{"empty unique name", ir.TypeName("Book"), "", IsInvalidName, "INVALID_NAME"},
		{"duplicate unique name", ir.TypeName("Book"), "Republic", IsInvalidName, "INVALID_NAME"},
		{"duplicate attribute", ir.TypeID(schema.TypeAttribute), schema.AttrAlias, IsInvalidName, "INVALID_NAME"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateEntity(ctx, tt.typ, tt.entity, "", 0, time.Time{})
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
			assert.True(t, IsArgumentError(err))
			assert.Equal(t, tt.wantErr, Code(err))
		})
	}
}

func TestCreateEntity_UnknownType(t *testing.T) {
	ctx := context.Background()
	s := createTestSystem(t, testConfig(t))

	for _, typ := range []ir.TypeRef{ir.TypeName("NoSuchType"), ir.TypeID(424242)} {
		_, err := s.CreateEntity(ctx, typ, "x", "", 0, time.Time{})
		require.Error(t, err)
		assert.True(t, IsUnknownType(err), err.Error())
		assert.True(t, IsNotFound(err), "%#v", typ)
		assert.False(t, IsArgumentError(err), "%#v", typ)
		assert.Equal(t, "UNKNOWN_TYPE", Code(err))
	}

	_, err := s.GetTidByTypeAndName(ctx, ir.TypeName("NoSuchType:Argo"), "")
	assert.True(t, IsNotFound(err))
	assert.False(t, IsArgumentError(err))

	_, err = s.GetTidByTypeAndName(ctx, ir.TypeName("NoSuchType"), "Argo")
	assert.True(t, IsUnknownType(err))
}

func TestCreateEntityType(t *testing.T) {
	ctx := context.Background()
	s := createTestSystem(t, testConfig(t))

	tid, err := s.CreateEntityType(ctx, "Manuscript", "A handwritten book", false, 0, time.Time{})
	require.NoError(t, err)

	cfg, err := s.TypeConfig(ir.TypeID(tid))
	require.NoError(t, err)
	assert.Equal(t, "Manuscript", cfg.Name)
	assert.False(t, cfg.UniqueNames)
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL)

	flag := activeStatement(t, s, tid, schema.AttributeMustHaveUniqueNames)
	assert.Equal(t, ir.Literal(schema.ValueFalse), flag.Object)
	note, _ := flag.MetadataValue(schema.AttributeEditorialNote)
	assert.Equal(t, ir.Literal("Setting up EntityType:Manuscript"), note)

	types, err := s.GetValidEntityTypeNames(ctx)
	require.NoError(t, err)
	assert.Contains(t, types, "Manuscript")

	got, err := s.GetEntityType(ctx, tid)
	require.NoError(t, err)
	assert.Equal(t, schema.TypeEntityType, got)

	m := mustCreate(t, s, "Manuscript", "Codex Parisinus")
	name, err := s.GetEntityName(ctx, m, ir.TypeRef{})
	require.NoError(t, err)
	assert.Equal(t, "Codex Parisinus", name)
}

func TestCreateEntityType_Errors(t *testing.T) {
	ctx := context.Background()
	s := createTestSystem(t, testConfig(t))

	_, err := s.CreateEntityType(ctx, "", "", false, 0, time.Time{})
	assert.True(t, IsInvalidName(err))

	_, err = s.CreateEntityType(ctx, "Book:Novel", "", false, 0, time.Time{})
	assert.True(t, IsInvalidName(err))

	_, err = s.CreateEntityType(ctx, schema.TypeNamePerson, "", false, 0, time.Time{})
	assert.True(t, IsInvalidType(err))
}

func TestCreateEntityType_VisibleToOtherSystems(t *testing.T) {
	cfg := testConfig(t)
	first := createTestSystem(t, cfg)
	mustCreateType(t, first, "Book", true)
	mustCreateType(t, first, "Note", false)

	second := createTestSystem(t, cfg)
	book, err := second.TypeConfig(ir.TypeName("Book"))
	require.NoError(t, err)
	assert.True(t, book.UniqueNames)
	note, err := second.TypeConfig(ir.TypeName("Note"))
	require.NoError(t, err)
	assert.False(t, note.UniqueNames)
}
