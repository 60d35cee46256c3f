package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/entsys/internal/ir"
)

// Key layout:
//
//	s/<id>                statement record, canonical JSON
//	c/<cancellation id>   statement id
//	x/<subject>/<id>      subject index, empty value
//
// IDs are zero-padded to 20 digits so key order is ID order.
const (
	statementPrefix    = "s/"
	cancellationPrefix = "c/"
	subjectPrefix      = "x/"
)

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Logger for BadgerDB. If nil, logging is disabled.
	Logger badger.Logger
}

// BadgerStore keeps statements in BadgerDB. Every batch is one badger
// transaction.
type BadgerStore struct {
	db *badger.DB
}

var _ StatementStorage = (*BadgerStore)(nil)

// OpenBadger opens or creates a badger-backed statement store.
func OpenBadger(opts BadgerOptions) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)

	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close closes the BadgerDB database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Transactional is always true.
func (s *BadgerStore) Transactional() bool {
	return true
}

func (s *BadgerStore) Store(ctx context.Context, id, subject, predicate int64, object ir.Value, metadata []ir.MetadataPair) error {
	return s.update(StoreCommand(id, subject, predicate, object, metadata))
}

func (s *BadgerStore) Cancel(ctx context.Context, id, cancellationID int64, metadata []ir.MetadataPair) error {
	return s.update(CancelCommand(id, cancellationID, metadata))
}

func (s *BadgerStore) update(c Command) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return badgerApply(txn, c)
	})
	return wrapBadger("write statement", err)
}

func (s *BadgerStore) Retrieve(ctx context.Context, id int64) (ir.Statement, error) {
	var st ir.Statement
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		st, err = badgerGet(txn, id)
		return err
	})
	return st, wrapBadger("retrieve statement", err)
}

func (s *BadgerStore) RetrieveByCancellationID(ctx context.Context, cancellationID int64) (ir.Statement, error) {
	var st ir.Statement
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cancellationKey(cancellationID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return cancellationNotFound(cancellationID)
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("cancellation index %d: %w", cancellationID, err)
		}
		st, err = badgerGet(txn, id)
		return err
	})
	return st, wrapBadger("retrieve by cancellation id", err)
}

// Find scans the subject index when a subject is given, else every record.
func (s *BadgerStore) Find(ctx context.Context, q Query) ([]ir.Statement, error) {
	out := []ir.Statement{}
	err := s.db.View(func(txn *badger.Txn) error {
		if q.Subject != nil {
			return s.findBySubject(txn, q, &out)
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(statementPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var st ir.Statement
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &st)
			}); err != nil {
				return err
			}
			if matches(q, st) {
				out = append(out, st)
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapBadger("find statements", err)
	}
	return out, nil
}

func (s *BadgerStore) findBySubject(txn *badger.Txn, q Query, out *[]ir.Statement) error {
	prefix := []byte(subjectPrefix + padID(*q.Subject) + "/")
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		id, err := strconv.ParseInt(string(bytes.TrimPrefix(it.Item().Key(), prefix)), 10, 64)
		if err != nil {
			return fmt.Errorf("subject index: %w", err)
		}
		st, err := badgerGet(txn, id)
		if err != nil {
			return err
		}
		if matches(q, st) {
			*out = append(*out, st)
		}
	}
	return nil
}

// ApplyBatch runs every command in one badger transaction.
func (s *BadgerStore) ApplyBatch(ctx context.Context, cmds []Command) error {
	b, err := s.PrepareBatch(ctx, cmds)
	if err != nil {
		return err
	}
	return b.Commit()
}

// PrepareBatch applies cmds to an open read-write transaction.
func (s *BadgerStore) PrepareBatch(ctx context.Context, cmds []Command) (Batch, error) {
	txn := s.db.NewTransaction(true)
	for i, c := range cmds {
		if err := badgerApply(txn, c); err != nil {
			txn.Discard()
			return nil, &BatchError{Index: i, Err: wrapBadger("batch", err)}
		}
	}
	return &badgerBatch{txn: txn}, nil
}

type badgerBatch struct {
	txn *badger.Txn
}

func (b *badgerBatch) Commit() error {
	defer b.txn.Discard()
	if err := b.txn.Commit(); err != nil {
		return backendError("commit batch", err)
	}
	return nil
}

func (b *badgerBatch) Rollback() error {
	b.txn.Discard()
	return nil
}

func badgerApply(txn *badger.Txn, c Command) error {
	if err := validateCommand(c); err != nil {
		return err
	}

	key := statementKey(c.ID)
	switch c.Kind {
	case CommandStore:
		if _, err := txn.Get(key); err == nil {
			return duplicateID(c.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		st := ir.Statement{
			ID:                c.ID,
			Subject:           c.Subject,
			Predicate:         c.Predicate,
			Object:            c.Object,
			StatementMetadata: clonePairs(c.Metadata),
		}
		if err := badgerPut(txn, st); err != nil {
			return err
		}
		return txn.Set([]byte(subjectPrefix+padID(c.Subject)+"/"+padID(c.ID)), []byte{})

	case CommandCancel:
		st, err := badgerGet(txn, c.ID)
		if err != nil {
			return err
		}
		if st.IsCancelled() {
			return alreadyCancelled(c.ID)
		}
		ckey := cancellationKey(c.CancellationID)
		if _, err := txn.Get(ckey); err == nil {
			return invalidArgument(c.ID, "cancellation id %d already used", c.CancellationID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		st.CancellationID = c.CancellationID
		st.CancellationMetadata = clonePairs(c.Metadata)
		if err := badgerPut(txn, st); err != nil {
			return err
		}
		return txn.Set(ckey, []byte(strconv.FormatInt(c.ID, 10)))
	}
	return nil
}

func badgerGet(txn *badger.Txn, id int64) (ir.Statement, error) {
	item, err := txn.Get(statementKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ir.Statement{}, notFound(id)
	}
	if err != nil {
		return ir.Statement{}, err
	}
	var st ir.Statement
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &st)
	})
	return st, err
}

func badgerPut(txn *badger.Txn, st ir.Statement) error {
	data, err := ir.MarshalCanonical(st)
	if err != nil {
		return invalidArgument(st.ID, "%v", err)
	}
	return txn.Set(statementKey(st.ID), data)
}

func statementKey(id int64) []byte {
	return []byte(statementPrefix + padID(id))
}

func cancellationKey(id int64) []byte {
	return []byte(cancellationPrefix + padID(id))
}

func padID(id int64) string {
	return fmt.Sprintf("%020d", id)
}

// wrapBadger passes *Error through and wraps anything else as BACKEND.
func wrapBadger(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return backendError(op, err)
}
