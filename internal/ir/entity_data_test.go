package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleEntityData() EntityData {
	return EntityData{
		ID:   100,
		Type: 3000,
		Statements: []Statement{
			{ID: 1, Subject: 100, Predicate: 10, Object: EntityRef(3000)},
			{ID: 2, Subject: 100, Predicate: 20, Object: Literal("old name"), CancellationID: 9},
			{ID: 3, Subject: 100, Predicate: 20, Object: Literal("Republic")},
			{ID: 4, Subject: 100, Predicate: 40, Object: EntityRef(500),
				StatementMetadata: []MetadataPair{M(50, Literal("en"))}},
			{ID: 5, Subject: 100, Predicate: 40, Object: EntityRef(501),
				StatementMetadata: []MetadataPair{M(50, Literal("la"))}},
			{ID: 6, Subject: 100, Predicate: 40, Object: EntityRef(502)},
		},
		StatementsAsObject: []Statement{
			{ID: 7, Subject: 600, Predicate: 40, Object: EntityRef(100)},
		},
	}
}

func TestEntityData_StatementForPredicateSkipsCancelled(t *testing.T) {
	d := sampleEntityData()

	s, ok := d.StatementForPredicate(20)
	assert.True(t, ok)
	assert.Equal(t, int64(3), s.ID)

	v, ok := d.ObjectForPredicate(20)
	assert.True(t, ok)
	assert.Equal(t, Literal("Republic"), v)

	_, ok = d.StatementForPredicate(99)
	assert.False(t, ok)
}

func TestEntityData_Qualifiers(t *testing.T) {
	d := sampleEntityData()

	v, ok := d.ObjectForPredicate(40, Qualifier{Predicate: 50, Value: Literal("la")})
	assert.True(t, ok)
	assert.Equal(t, EntityRef(501), v)

	// Any value of the qualification predicate.
	all := d.AllObjectsForPredicate(40, Qualifier{Predicate: 50})
	assert.Equal(t, []Value{EntityRef(500), EntityRef(501)}, all)

	assert.Len(t, d.AllStatementsForPredicate(40), 3)
}

func TestEntityData_ObjectsByQualification(t *testing.T) {
	d := sampleEntityData()

	grouped := d.ObjectsByQualification(40, 50, "none")
	assert.Equal(t, map[string][]Value{
		"en":   {EntityRef(500)},
		"la":   {EntityRef(501)},
		"none": {EntityRef(502)},
	}, grouped)
}

func TestEntityData_AllStatements(t *testing.T) {
	d := sampleEntityData()
	all := d.AllStatements()
	assert.Len(t, all, 7)
	assert.Equal(t, int64(7), all[6].ID)
	assert.False(t, d.IsMerged())
}
