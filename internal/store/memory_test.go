package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/schema"
)

func TestMemoryStore_WithoutTransactionsAppliesPartially(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(WithoutTransactions())
	assert.False(t, s.Transactional())

	err := s.ApplyBatch(ctx, []Command{
		StoreCommand(1, 100, schema.AttributeName, ir.Literal("a"), nil),
		StoreCommand(2, 100, schema.AttributeDescription, ir.Literal("b"), nil),
		StoreCommand(3, 100, schema.RelationIsOfType, nil, nil),
	})
	require.Error(t, err)

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 2, batchErr.Index)
	assert.Equal(t, 2, s.Len(), "commands before the failure stay applied")
}

func TestMemoryStore_PreparedBatchIsInvisible(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	b, err := s.PrepareBatch(ctx, []Command{
		StoreCommand(1, 100, schema.AttributeName, ir.Literal("a"), nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	require.NoError(t, b.Commit())
	assert.Equal(t, 1, s.Len())

	assert.Error(t, b.Commit(), "second commit")
}

func TestMemoryStore_CommitAfterConcurrentWriteFails(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	b, err := s.PrepareBatch(ctx, []Command{
		StoreCommand(1, 100, schema.AttributeName, ir.Literal("a"), nil),
	})
	require.NoError(t, err)

	require.NoError(t, s.Store(ctx, 2, 100, schema.AttributeDescription, ir.Literal("b"), nil))

	err = b.Commit()
	require.Error(t, err)
	assert.Equal(t, ErrCodeBackend, Code(err))

	_, err = s.Retrieve(ctx, 1)
	assert.True(t, IsNotFound(err))
	_, err = s.Retrieve(ctx, 2)
	assert.NoError(t, err)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	meta := []ir.MetadataPair{ir.M(schema.AttributeEditorialNote, ir.Literal("note"))}
	require.NoError(t, s.Store(ctx, 1, 100, schema.AttributeName, ir.Literal("a"), meta))

	meta[0] = ir.M(schema.AttributeEditorialNote, ir.Literal("changed by caller"))
	got, err := s.Retrieve(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ir.Literal("note"), got.StatementMetadata[0].Value)

	got.StatementMetadata[0] = ir.M(1, ir.Literal("changed by reader"))
	again, err := s.Retrieve(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ir.Literal("note"), again.StatementMetadata[0].Value)
}
