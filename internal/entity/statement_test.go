package entity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entsys/internal/cache"
	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/schema"
	"github.com/roach88/entsys/internal/store"
)

// library is a system with a Book type, one book, one person and an
// authorOf relation.
type library struct {
	s        *System
	cfg      Config
	republic int64
	plato    int64
	authorOf int64
	alias    int64
}

func createTestLibrary(t *testing.T) library {
	t.Helper()
	cfg := testConfig(t)
	s := createTestSystem(t, cfg)
	mustCreateType(t, s, "Book", true)
	return library{
		s:        s,
		cfg:      cfg,
		republic: mustCreate(t, s, "Book", "Republic"),
		plato:    mustCreate(t, s, schema.TypeNamePerson, "Plato"),
		authorOf: mustCreate(t, s, schema.TypeNameRelation, "authorOf"),
		alias:    mustTID(t, s, "Attribute:alias"),
	}
}

func TestMakeStatement_Attribute(t *testing.T) {
	ctx := context.Background()
	lib := createTestLibrary(t)

	ref, err := lib.s.MakeStatement(ctx, NewStatement{
		Subject:       lib.republic,
		Predicate:     ir.Literal(schema.AttrAlias),
		Object:        ir.Literal("Politeia"),
		EditedBy:      lib.plato,
		EditorialNote: "Greek title",
		Timestamp:     time.Unix(1_500_000_000, 0),
	})
	require.NoError(t, err)
	assert.Positive(t, ref.ID)
	assert.Positive(t, ref.Group)

	st, err := lib.s.GetStatementByID(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, lib.republic, st.Subject)
	assert.Equal(t, lib.alias, st.Predicate)
	assert.Equal(t, ir.Literal("Politeia"), st.Object)
	assert.True(t, st.HasMetadata(ir.M(schema.RelationStatementEditor, ir.EntityRef(lib.plato))))
	assert.True(t, st.HasMetadata(ir.M(schema.AttributeEditTimestamp, ir.Literal("1500000000"))))
	assert.True(t, st.HasMetadata(ir.M(schema.RelationStatementGroup, ir.EntityRef(ref.Group))))
	assert.True(t, st.HasMetadata(ir.M(schema.AttributeEditorialNote, ir.Literal("Greek title"))))
}

func TestMakeStatement_AttributeValueCoercedToLiteral(t *testing.T) {
	ctx := context.Background()
	lib := createTestLibrary(t)

	ref, err := lib.s.MakeStatement(ctx, NewStatement{
		Subject:   lib.republic,
		Predicate: ir.EntityRef(lib.alias),
		Object:    ir.EntityRef(42),
	})
	require.NoError(t, err)

	st, err := lib.s.GetStatementByID(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, ir.Literal("42"), st.Object)
}

func TestMakeStatement_RelationByName(t *testing.T) {
	ctx := context.Background()
	lib := createTestLibrary(t)

	// Warm the object's cache so the write has something to invalidate.
	before, err := lib.s.GetEntityData(ctx, lib.republic)
	require.NoError(t, err)
	assert.Empty(t, before.StatementsAsObject)

	ref, err := lib.s.MakeStatement(ctx, NewStatement{
		Subject:   lib.plato,
		Predicate: ir.Literal("authorOf"),
		Object:    ir.Literal("Book:Republic"),
	})
	require.NoError(t, err)

	st, err := lib.s.GetStatementByID(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, lib.authorOf, st.Predicate)
	assert.Equal(t, ir.EntityRef(lib.republic), st.Object)

	after, err := lib.s.GetEntityData(ctx, lib.republic)
	require.NoError(t, err)
	require.Len(t, after.StatementsAsObject, 1)
	assert.Equal(t, ref.ID, after.StatementsAsObject[0].ID)

	_, err = lib.s.MakeStatement(ctx, NewStatement{
		Subject:   lib.plato,
		Predicate: ir.Literal("Relation:authorOf"),
		Object:    ir.EntityRef(lib.republic),
	})
	require.NoError(t, err)
}

func TestMakeStatement_Errors(t *testing.T) {
	ctx := context.Background()
	lib := createTestLibrary(t)
	personType := mustTID(t, lib.s, "EntityType:Person")

	tests := []struct {
		name string
		ns   NewStatement
		code string
	}{
		{"no subject", NewStatement{Predicate: ir.Literal("alias"), Object: ir.Literal("x")}, "INVALID_ARGUMENT"},
		{"unknown subject", NewStatement{Subject: 999, Predicate: ir.Literal("alias"), Object: ir.Literal("x")}, "INVALID_ARGUMENT"},
		{"negative editor", NewStatement{Subject: lib.plato, Predicate: ir.Literal("alias"), Object: ir.Literal("x"), EditedBy: -1}, "INVALID_ARGUMENT"},
		{"no predicate", NewStatement{Subject: lib.plato, Object: ir.Literal("x")}, "INVALID_ARGUMENT"},
		{"unknown predicate name", NewStatement{Subject: lib.plato, Predicate: ir.Literal("nope"), Object: ir.Literal("x")}, "INVALID_ARGUMENT"},
		{"unknown predicate tid", NewStatement{Subject: lib.plato, Predicate: ir.EntityRef(999), Object: ir.Literal("x")}, "INVALID_ARGUMENT"},
		{"predicate is not attribute or relation", NewStatement{Subject: lib.plato, Predicate: ir.EntityRef(lib.republic), Object: ir.Literal("x")}, "INVALID_ARGUMENT"},
		{"no object", NewStatement{Subject: lib.plato, Predicate: ir.Literal("alias")}, "INVALID_ARGUMENT"},
		{"missing relation object", NewStatement{Subject: lib.plato, Predicate: ir.EntityRef(lib.authorOf), Object: ir.EntityRef(999)}, "INVALID_ARGUMENT"},
		{"missing named relation object", NewStatement{Subject: lib.plato, Predicate: ir.EntityRef(lib.authorOf), Object: ir.Literal("Book:Laws")}, "INVALID_ARGUMENT"},
		{"rename entity type", NewStatement{Subject: personType, Predicate: ir.EntityRef(schema.AttributeName), Object: ir.Literal("Human")}, "INVALID_ARGUMENT"},
		{"empty unique name", NewStatement{Subject: lib.republic, Predicate: ir.EntityRef(schema.AttributeName), Object: ir.Literal("")}, "INVALID_NAME"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lib.s.MakeStatement(ctx, tt.ns)
			require.Error(t, err)
			assert.Equal(t, tt.code, Code(err), err.Error())
			assert.True(t, IsArgumentError(err))
		})
	}
}

func TestMakeStatement_UniqueNames(t *testing.T) {
	ctx := context.Background()
	lib := createTestLibrary(t)
	laws := mustCreate(t, lib.s, "Book", "Laws")

	_, err := lib.s.MakeStatement(ctx, NewStatement{
		Subject:   laws,
		Predicate: ir.EntityRef(schema.AttributeName),
		Object:    ir.Literal("Republic"),
	})
	assert.True(t, IsInvalidName(err))

	// Restating an entity's own name is allowed.
	_, err = lib.s.MakeStatement(ctx, NewStatement{
		Subject:   lib.republic,
		Predicate: ir.EntityRef(schema.AttributeName),
		Object:    ir.Literal("Republic"),
	})
	require.NoError(t, err)
}

func TestMakeStatement_MetadataAllowList(t *testing.T) {
	ctx := context.Background()
	lib := createTestLibrary(t)

	ref, err := lib.s.MakeStatement(ctx, NewStatement{
		Subject:   lib.plato,
		Predicate: ir.EntityRef(lib.alias),
		Object:    ir.Literal("Aristocles"),
		Metadata: []ir.MetadataPair{
			ir.M(schema.AttributeEditorialNote, ir.Literal("from metadata")),
			ir.M(lib.alias, ir.Literal("dropped")),
		},
	})
	require.NoError(t, err)

	st, err := lib.s.GetStatementByID(ctx, ref.ID)
	require.NoError(t, err)
	assert.True(t, st.HasMetadata(ir.M(schema.AttributeEditorialNote, ir.Literal("from metadata"))))
	_, ok := st.MetadataValue(lib.alias)
	assert.False(t, ok, "predicates off the allow-list are dropped")

	_, err = lib.s.MakeStatement(ctx, NewStatement{
		Subject:   lib.plato,
		Predicate: ir.EntityRef(lib.alias),
		Object:    ir.Literal("Aristocles"),
		Metadata:  []ir.MetadataPair{ir.M(schema.AttributeEditorialNote, nil)},
	})
	assert.True(t, IsArgumentError(err))
}

func TestMakeStatement_CustomAllowList(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.MetadataAllowList = []int64{schema.AttributeDescription}
	s := createTestSystem(t, cfg)
	plato := mustCreate(t, s, schema.TypeNamePerson, "Plato")

	ref, err := s.MakeStatement(ctx, NewStatement{
		Subject:   plato,
		Predicate: ir.Literal(schema.AttrAlias),
		Object:    ir.Literal("Aristocles"),
		Metadata: []ir.MetadataPair{
			ir.M(schema.AttributeDescription, ir.Literal("kept")),
			ir.M(schema.AttributeEditorialNote, ir.Literal("dropped")),
		},
	})
	require.NoError(t, err)

	st, err := s.GetStatementByID(ctx, ref.ID)
	require.NoError(t, err)
	assert.True(t, st.HasMetadata(ir.M(schema.AttributeDescription, ir.Literal("kept"))))
	_, ok := st.MetadataValue(schema.AttributeEditorialNote)
	assert.False(t, ok)
}

func TestMakeStatement_Qualifications(t *testing.T) {
	ctx := context.Background()
	lib := createTestLibrary(t)

	ref, err := lib.s.MakeStatement(ctx, NewStatement{
		Subject:   lib.plato,
		Predicate: ir.EntityRef(lib.authorOf),
		Object:    ir.EntityRef(lib.republic),
		Qualifications: []ir.MetadataPair{
			ir.M(lib.alias, ir.Literal("as Aristocles")),
			ir.M(lib.authorOf, ir.EntityRef(lib.republic)),
		},
	})
	require.NoError(t, err)

	data, err := lib.s.GetEntityData(ctx, lib.plato)
	require.NoError(t, err)
	st, ok := data.StatementForPredicate(lib.authorOf, ir.Qualifier{Predicate: lib.alias, Value: ir.Literal("as Aristocles")})
	require.True(t, ok)
	assert.Equal(t, ref.ID, st.ID)

	bad := []struct {
		name string
		q    ir.MetadataPair
	}{
		{"reserved metadata predicate", ir.M(schema.RelationStatementEditor, ir.EntityRef(lib.plato))},
		{"undefined predicate", ir.M(999, ir.Literal("x"))},
		{"not a predicate", ir.M(lib.republic, ir.Literal("x"))},
		{"attribute with entity", ir.M(lib.alias, ir.EntityRef(lib.plato))},
		{"relation with literal", ir.M(lib.authorOf, ir.Literal("x"))},
		{"relation to missing entity", ir.M(lib.authorOf, ir.EntityRef(999))},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lib.s.MakeStatement(ctx, NewStatement{
				Subject:        lib.plato,
				Predicate:      ir.EntityRef(lib.alias),
				Object:         ir.Literal("x"),
				Qualifications: []ir.MetadataPair{tt.q},
			})
			assert.True(t, IsArgumentError(err))
		})
	}
}

func TestMakeStatement_ReusesGroup(t *testing.T) {
	ctx := context.Background()
	lib := createTestLibrary(t)

	first, err := lib.s.MakeStatement(ctx, NewStatement{
		Subject:   lib.plato,
		Predicate: ir.EntityRef(lib.alias),
		Object:    ir.Literal("Aristocles"),
	})
	require.NoError(t, err)

	second, err := lib.s.MakeStatement(ctx, NewStatement{
		Subject:   lib.republic,
		Predicate: ir.EntityRef(lib.alias),
		Object:    ir.Literal("Politeia"),
		Group:     first.Group,
	})
	require.NoError(t, err)
	assert.Equal(t, first.Group, second.Group)

	rows, err := lib.s.FindStatements(ctx, store.Query{
		Metadata: []ir.MetadataPair{ir.M(schema.RelationStatementGroup, ir.EntityRef(first.Group))},
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestMakeStatement_InvalidatesStaleData(t *testing.T) {
	ctx := context.Background()
	lib := createTestLibrary(t)
	edc := cache.NewEntityDataCache(lib.cfg.Default.Cache, "", DefaultCacheDataID)

	before, err := lib.s.GetEntityStatements(ctx, lib.plato)
	require.NoError(t, err)
	_, err = edc.Get(ctx, lib.plato)
	require.NoError(t, err, "entity data must be cached after a read")

	ref, err := lib.s.MakeStatement(ctx, NewStatement{
		Subject:   lib.plato,
		Predicate: ir.EntityRef(schema.AttributeName),
		Object:    ir.Literal("foo"),
	})
	require.NoError(t, err)

	_, err = edc.Get(ctx, lib.plato)
	assert.True(t, cache.IsMiss(err))

	after, err := lib.s.GetEntityStatements(ctx, lib.plato)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)
	var found bool
	for _, st := range after {
		found = found || st.ID == ref.ID
	}
	assert.True(t, found)
}

func TestCancelStatement(t *testing.T) {
	ctx := context.Background()
	lib := createTestLibrary(t)

	ref, err := lib.s.MakeStatement(ctx, NewStatement{
		Subject:   lib.plato,
		Predicate: ir.EntityRef(lib.alias),
		Object:    ir.Literal("Aristocles"),
	})
	require.NoError(t, err)
	before, err := lib.s.GetEntityStatements(ctx, lib.plato)
	require.NoError(t, err)

	cid, err := lib.s.CancelStatement(ctx, ref.ID, lib.plato, "not an alias",
		ir.TypeName(schema.TypeNamePerson), time.Unix(1_650_000_000, 0))
	require.NoError(t, err)
	assert.Positive(t, cid)
	assert.NotEqual(t, ref.ID, cid)

	st, err := lib.s.GetStatementByID(ctx, ref.ID)
	require.NoError(t, err)
	assert.True(t, st.IsCancelled())
	assert.Equal(t, cid, st.CancellationID)
	by, _ := st.CancellationMetadataValue(schema.RelationCancelledBy)
	assert.Equal(t, ir.EntityRef(lib.plato), by)
	at, _ := st.CancellationMetadataValue(schema.AttributeCancellationTimestamp)
	assert.Equal(t, ir.Literal("1650000000"), at)
	note, _ := st.CancellationMetadataValue(schema.AttributeCancellationNote)
	assert.Equal(t, ir.Literal("not an alias"), note)

	after, err := lib.s.GetEntityStatements(ctx, lib.plato)
	require.NoError(t, err)
	assert.Len(t, after, len(before)-1)

	data, err := lib.s.GetEntityData(ctx, lib.plato)
	require.NoError(t, err)
	assert.Len(t, data.Statements, len(before), "entity data keeps cancelled statements")

	_, err = lib.s.CancelStatement(ctx, ref.ID, 0, "", ir.TypeRef{}, time.Time{})
	assert.True(t, IsAlreadyCancelled(err))
	assert.Equal(t, store.ErrCodeStatementAlreadyCancelled, Code(err))
}

func TestCancelStatement_Errors(t *testing.T) {
	ctx := context.Background()
	lib := createTestLibrary(t)

	_, err := lib.s.CancelStatement(ctx, 0, 0, "", ir.TypeRef{}, time.Time{})
	assert.True(t, IsArgumentError(err))

	_, err = lib.s.CancelStatement(ctx, 999, 0, "", ir.TypeRef{}, time.Time{})
	assert.True(t, IsNotFound(err))
	assert.Equal(t, store.ErrCodeStatementNotFound, Code(err))

	nameStmt := activeStatement(t, lib.s, lib.plato, schema.AttributeName)
	_, err = lib.s.CancelStatement(ctx, nameStmt.ID, 0, "", ir.TypeName("Nope"), time.Time{})
	assert.True(t, IsArgumentError(err))
}

func TestCancelStatement_TypeHintSelectsStorage(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	books := store.NewMemoryStore()
	base := createTestSystem(t, cfg)
	mustCreateType(t, base, "Book", true)

	cfg.Types = map[string]TypeOverride{"Book": {Storage: books}}
	s := createTestSystem(t, cfg)
	republic := mustCreate(t, s, "Book", "Republic")
	nameStmt := activeStatement(t, s, republic, schema.AttributeName)

	_, err := s.CancelStatement(ctx, nameStmt.ID, 0, "", ir.TypeName(schema.TypeNamePerson), time.Time{})
	assert.True(t, IsNotFound(err), "the hinted storage does not hold the statement")

	_, err = s.CancelStatement(ctx, nameStmt.ID, 0, "", ir.TypeName("Book"), time.Time{})
	require.NoError(t, err)
}

func TestCancelStatement_TypeAssignment(t *testing.T) {
	ctx := context.Background()
	lib := createTestLibrary(t)

	typeStmt := activeStatement(t, lib.s, lib.republic, schema.RelationIsOfType)
	_, err := lib.s.CancelStatement(ctx, typeStmt.ID, 0, "", ir.TypeRef{}, time.Time{})
	require.NoError(t, err)

	_, err = lib.s.GetEntityType(ctx, lib.republic)
	assert.True(t, IsNotFound(err))

	entities, err := lib.s.GetEntitiesOfType(ctx, ir.TypeName("Book"))
	require.NoError(t, err)
	assert.NotContains(t, entities, lib.republic)

	all, err := lib.s.GetAllTidsForType(ctx, ir.TypeName("Book"))
	require.NoError(t, err)
	assert.Contains(t, all, lib.republic)
}
