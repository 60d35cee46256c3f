package store

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/entsys/internal/ir"
)

// MemoryStore keeps statements in process memory.
type MemoryStore struct {
	mu            sync.RWMutex
	data          memoryData
	transactional bool
}

var _ StatementStorage = (*MemoryStore)(nil)

type memoryData struct {
	byID           map[int64]ir.Statement
	byCancellation map[int64]int64

	// version counts writes; a prepared batch commits only if it is
	// unchanged.
	version uint64
}

func newMemoryData() memoryData {
	return memoryData{
		byID:           make(map[int64]ir.Statement),
		byCancellation: make(map[int64]int64),
	}
}

func (d memoryData) clone() memoryData {
	c := memoryData{
		byID:           make(map[int64]ir.Statement, len(d.byID)),
		byCancellation: make(map[int64]int64, len(d.byCancellation)),
		version:        d.version,
	}
	for k, v := range d.byID {
		c.byID[k] = v
	}
	for k, v := range d.byCancellation {
		c.byCancellation[k] = v
	}
	return c
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithoutTransactions makes ApplyBatch apply commands one by one and stop
// at the first failure, leaving earlier commands applied. Transactional
// then reports false.
func WithoutTransactions() MemoryOption {
	return func(s *MemoryStore) {
		s.transactional = false
	}
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{data: newMemoryData(), transactional: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transactional reports whether batches are all-or-nothing.
func (s *MemoryStore) Transactional() bool {
	return s.transactional
}

// Len returns the number of statements, cancelled ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.byID)
}

func (s *MemoryStore) Store(ctx context.Context, id, subject, predicate int64, object ir.Value, metadata []ir.MetadataPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.apply(StoreCommand(id, subject, predicate, object, metadata))
}

func (s *MemoryStore) Cancel(ctx context.Context, id, cancellationID int64, metadata []ir.MetadataPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.apply(CancelCommand(id, cancellationID, metadata))
}

func (s *MemoryStore) Retrieve(ctx context.Context, id int64) (ir.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data.byID[id]
	if !ok {
		return ir.Statement{}, notFound(id)
	}
	return cloneStatement(st), nil
}

func (s *MemoryStore) RetrieveByCancellationID(ctx context.Context, cancellationID int64) (ir.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.data.byCancellation[cancellationID]
	if !ok || cancellationID <= 0 {
		return ir.Statement{}, cancellationNotFound(cancellationID)
	}
	return cloneStatement(s.data.byID[id]), nil
}

func (s *MemoryStore) Find(ctx context.Context, q Query) ([]ir.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []ir.Statement{}
	for _, st := range s.data.byID {
		if matches(q, st) {
			out = append(out, cloneStatement(st))
		}
	}
	slices.SortFunc(out, func(a, b ir.Statement) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

// ApplyBatch applies cmds atomically, or one by one when the store was
// built WithoutTransactions.
func (s *MemoryStore) ApplyBatch(ctx context.Context, cmds []Command) error {
	if !s.transactional {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, c := range cmds {
			if err := s.data.apply(c); err != nil {
				return &BatchError{Index: i, Err: err}
			}
		}
		return nil
	}

	b, err := s.PrepareBatch(ctx, cmds)
	if err != nil {
		return err
	}
	return b.Commit()
}

// PrepareBatch applies cmds to a private copy. Commit swaps the copy in
// if nothing else wrote in between.
func (s *MemoryStore) PrepareBatch(ctx context.Context, cmds []Command) (Batch, error) {
	s.mu.RLock()
	staged := s.data.clone()
	s.mu.RUnlock()
	base := staged.version

	for i, c := range cmds {
		if err := staged.apply(c); err != nil {
			return nil, &BatchError{Index: i, Err: err}
		}
	}
	return &memoryBatch{store: s, staged: staged, base: base}, nil
}

type memoryBatch struct {
	store  *MemoryStore
	staged memoryData
	base   uint64
	done   bool
}

func (b *memoryBatch) Commit() error {
	if b.done {
		return backendError("commit batch", errBatchDone)
	}
	b.done = true

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	if b.store.data.version != b.base {
		return backendError("commit batch", errConcurrentWrite)
	}
	b.store.data = b.staged
	return nil
}

func (b *memoryBatch) Rollback() error {
	b.done = true
	return nil
}

func (d *memoryData) apply(c Command) error {
	if err := validateCommand(c); err != nil {
		return err
	}
	switch c.Kind {
	case CommandStore:
		if _, exists := d.byID[c.ID]; exists {
			return duplicateID(c.ID)
		}
		d.byID[c.ID] = ir.Statement{
			ID:                c.ID,
			Subject:           c.Subject,
			Predicate:         c.Predicate,
			Object:            c.Object,
			StatementMetadata: clonePairs(c.Metadata),
		}
	case CommandCancel:
		st, ok := d.byID[c.ID]
		if !ok {
			return notFound(c.ID)
		}
		if st.IsCancelled() {
			return alreadyCancelled(c.ID)
		}
		if _, used := d.byCancellation[c.CancellationID]; used {
			return invalidArgument(c.ID, "cancellation id %d already used", c.CancellationID)
		}
		st.CancellationID = c.CancellationID
		st.CancellationMetadata = clonePairs(c.Metadata)
		d.byID[c.ID] = st
		d.byCancellation[c.CancellationID] = c.ID
	}
	d.version++
	return nil
}
