package entity

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/registry"
	"github.com/roach88/entsys/internal/schema"
	"github.com/roach88/entsys/internal/store"
)

// NewStatement is a statement to make.
type NewStatement struct {
	Subject int64

	// Predicate is an EntityRef, or a Literal name such as "name" or
	// "Relation:mergedInto".
	Predicate ir.Value

	// Object is the payload. Attributes store it as a literal. For
	// relations a Literal is read as a "Type:Name" identifier.
	Object ir.Value

	// EditedBy defaults to the system.
	EditedBy      int64
	EditorialNote string

	// Metadata is extra statement metadata. Pairs whose predicate is not
	// on the allow-list are dropped.
	Metadata []ir.MetadataPair

	// Qualifications are attribute or relation pairs that qualify the
	// statement, stored with its metadata.
	Qualifications []ir.MetadataPair

	// Group is the statement group. Zero starts a new one.
	Group int64

	// Timestamp defaults to now.
	Timestamp time.Time
}

// StatementRef identifies a stored statement and its group.
type StatementRef struct {
	ID    int64
	Group int64
}

// MakeStatement validates and stores one statement.
//
// The predicate must be an attribute or a relation and the subject must
// exist. Relation objects must exist; they are never created implicitly.
// The statement goes to the storage of the subject's type.
func (s *System) MakeStatement(ctx context.Context, ns NewStatement) (StatementRef, error) {
	if ns.Subject <= 0 {
		return StatementRef{}, invalidArgument("invalid subject %d", ns.Subject)
	}
	if ns.EditedBy < 0 || ns.Group < 0 {
		return StatementRef{}, invalidArgument("negative editor or statement group")
	}

	predicate, predicateType, err := s.resolvePredicate(ctx, ns.Predicate)
	if err != nil {
		return StatementRef{}, err
	}
	subjCfg, err := s.entityTypeConfig(ctx, ns.Subject)
	if err != nil {
		if IsNotFound(err) {
			return StatementRef{}, invalidArgument("subject entity %d does not exist", ns.Subject)
		}
		return StatementRef{}, err
	}
	object, err := s.resolveObject(ctx, predicateType, ns.Object)
	if err != nil {
		return StatementRef{}, err
	}
	if predicate == schema.AttributeName {
		if object, err = s.checkName(ctx, subjCfg, ns.Subject, object); err != nil {
			return StatementRef{}, err
		}
	}

	editor := ns.EditedBy
	if editor == 0 {
		editor = schema.System
	}
	ts := s.timestamp(ns.Timestamp)
	group := ns.Group
	if group == 0 {
		if group, err = s.newTID(); err != nil {
			return StatementRef{}, err
		}
	}

	md := s.statementMetadata(editor, ts, group, ns.EditorialNote)
	for _, m := range ns.Metadata {
		if !slices.Contains(s.allowed, m.Predicate) {
			s.logger.Debug("dropping statement metadata", "predicate", m.Predicate)
			continue
		}
		if m.Value == nil {
			return StatementRef{}, invalidArgument("metadata predicate %d has no value", m.Predicate)
		}
		md = append(md, m)
	}
	quals, err := s.checkQualifications(ctx, ns.Qualifications)
	if err != nil {
		return StatementRef{}, err
	}
	md = append(md, quals...)

	id, err := s.newTID()
	if err != nil {
		return StatementRef{}, err
	}
	if err := subjCfg.Storage.Store(ctx, id, ns.Subject, predicate, object, md); err != nil {
		return StatementRef{}, fmt.Errorf("make statement: %w", err)
	}
	s.invalidateAfterWrite(ctx, ns.Subject, predicate, object, subjCfg)
	return StatementRef{ID: id, Group: group}, nil
}

// resolvePredicate returns the predicate TID and its type, Attribute or
// Relation.
func (s *System) resolvePredicate(ctx context.Context, v ir.Value) (int64, int64, error) {
	var predicate int64
	switch p := v.(type) {
	case ir.EntityRef:
		predicate = int64(p)
	case ir.Literal:
		tid, err := s.predicateByName(ctx, string(p))
		if err != nil {
			return 0, 0, err
		}
		predicate = tid
	default:
		return 0, 0, invalidArgument("no predicate given")
	}
	if predicate <= 0 {
		return 0, 0, invalidArgument("invalid predicate %d", predicate)
	}

	t, err := s.GetEntityType(ctx, predicate)
	if err != nil {
		if IsNotFound(err) {
			return 0, 0, invalidArgument("predicate %d is not defined", predicate)
		}
		return 0, 0, err
	}
	if t != schema.TypeAttribute && t != schema.TypeRelation {
		return 0, 0, invalidArgument("predicate %d is not an attribute or a relation", predicate)
	}
	return predicate, t, nil
}

func (s *System) predicateByName(ctx context.Context, name string) (int64, error) {
	if strings.Contains(name, ":") {
		tid, err := s.GetTidByTypeAndName(ctx, ir.TypeName(name), "")
		if err != nil {
			return 0, invalidArgument("predicate %q is not defined", name)
		}
		return tid, nil
	}
	for _, t := range []int64{schema.TypeAttribute, schema.TypeRelation} {
		tid, err := s.GetTidByTypeAndName(ctx, ir.TypeID(t), name)
		if err == nil {
			return tid, nil
		}
		if !IsNotFound(err) {
			return 0, err
		}
	}
	return 0, invalidArgument("predicate %q is not defined", name)
}

func (s *System) resolveObject(ctx context.Context, predicateType int64, v ir.Value) (ir.Value, error) {
	if v == nil {
		return nil, invalidArgument("statement has no object or value")
	}
	if predicateType == schema.TypeAttribute {
		switch o := v.(type) {
		case ir.EntityRef:
			return ir.Literal(strconv.FormatInt(int64(o), 10)), nil
		default:
			return o, nil
		}
	}

	var object int64
	switch o := v.(type) {
	case ir.EntityRef:
		object = int64(o)
	case ir.Literal:
		tid, err := s.GetTidByTypeAndName(ctx, ir.TypeName(string(o)), "")
		if err != nil {
			return nil, invalidArgument("object %q does not exist", string(o))
		}
		object = tid
	}
	if _, err := s.GetEntityType(ctx, object); err != nil {
		if IsNotFound(err) || IsArgumentError(err) {
			return nil, invalidArgument("object entity %d does not exist", object)
		}
		return nil, err
	}
	return ir.EntityRef(object), nil
}

// checkName normalises a new name and enforces uniqueness within the
// subject's type.
func (s *System) checkName(ctx context.Context, subjCfg registry.TypeConfig, subject int64, v ir.Value) (ir.Value, error) {
	name := NormalizeName(v.String())
	if subjCfg.TID == schema.TypeEntityType {
		return nil, invalidArgument("entity types cannot be renamed")
	}
	if !subjCfg.UniqueNames {
		return ir.Literal(name), nil
	}
	if name == "" {
		return nil, invalidName("name cannot be empty for entities of type %s", subjCfg.Name)
	}
	owner, exists, err := s.nameExists(ctx, subjCfg, name)
	if err != nil {
		return nil, err
	}
	if exists && owner != subject {
		return nil, invalidName("%s %q already exists", subjCfg.Name, name)
	}
	return ir.Literal(name), nil
}

func (s *System) checkQualifications(ctx context.Context, quals []ir.MetadataPair) ([]ir.MetadataPair, error) {
	out := make([]ir.MetadataPair, 0, len(quals))
	for _, q := range quals {
		if schema.IsMetadataPredicate(q.Predicate) {
			return nil, invalidArgument("predicate %d is reserved statement metadata", q.Predicate)
		}
		if q.Predicate <= 0 {
			return nil, invalidArgument("invalid qualification predicate %d", q.Predicate)
		}
		t, err := s.GetEntityType(ctx, q.Predicate)
		if err != nil {
			if IsNotFound(err) {
				return nil, invalidArgument("qualification predicate %d is not defined", q.Predicate)
			}
			return nil, err
		}
		switch t {
		case schema.TypeAttribute:
			if _, ok := ir.AsLiteral(q.Value); !ok {
				return nil, invalidArgument("attribute qualification %d needs a literal value", q.Predicate)
			}
		case schema.TypeRelation:
			obj, ok := ir.AsEntity(q.Value)
			if !ok {
				return nil, invalidArgument("relation qualification %d needs an entity", q.Predicate)
			}
			if _, err := s.GetEntityType(ctx, obj); err != nil {
				return nil, invalidArgument("qualification object %d does not exist", obj)
			}
		default:
			return nil, invalidArgument("qualification predicate %d is not an attribute or a relation", q.Predicate)
		}
		out = append(out, q)
	}
	return out, nil
}

// CancelStatement cancels a statement and returns the cancellation TID.
//
// A non-zero subjectType restricts the search to that type's storage.
// Otherwise every distinct storage is searched in turn.
func (s *System) CancelStatement(ctx context.Context, statementID, cancelledBy int64, note string, subjectType ir.TypeRef, ts time.Time) (int64, error) {
	if statementID <= 0 {
		return 0, invalidArgument("invalid statement id %d", statementID)
	}
	storages := s.registry.Storages()
	if !subjectType.IsZero() {
		cfg, err := s.registry.Resolve(subjectType)
		if err != nil {
			return 0, invalidArgument("subject type %s is not valid", subjectType)
		}
		storages = []store.StatementStorage{cfg.Storage}
	}

	st, storage, err := s.locateStatement(ctx, statementID, storages)
	if err != nil {
		return 0, err
	}
	subjCfg, subjErr := s.entityTypeConfig(ctx, st.Subject)

	if cancelledBy == 0 {
		cancelledBy = schema.System
	}
	cid, err := s.newTID()
	if err != nil {
		return 0, err
	}
	md := cancellationMetadata(cancelledBy, s.timestamp(ts), note)
	if err := storage.Cancel(ctx, statementID, cid, md); err != nil {
		return 0, fmt.Errorf("cancel statement: %w", err)
	}

	if subjErr != nil {
		s.logger.Warn("cancelled statement with untyped subject", "statement", statementID, "subject", st.Subject, "error", subjErr)
		s.forgetEntityType(st.Subject)
		return cid, nil
	}
	s.invalidateAfterWrite(ctx, st.Subject, st.Predicate, st.Object, subjCfg)
	return cid, nil
}

// locateStatement finds the one storage that holds statement id.
func (s *System) locateStatement(ctx context.Context, id int64, storages []store.StatementStorage) (ir.Statement, store.StatementStorage, error) {
	var (
		found   ir.Statement
		holder  store.StatementStorage
		lastErr error
	)
	for _, st := range storages {
		stmt, err := st.Retrieve(ctx, id)
		if err != nil {
			if store.IsNotFound(err) {
				lastErr = err
				continue
			}
			return ir.Statement{}, nil, fmt.Errorf("look up statement %d: %w", id, err)
		}
		if holder != nil {
			s.logger.Error("statement stored more than once", "statement", id)
			return ir.Statement{}, nil, consistency(id, "statement found in more than one storage")
		}
		found, holder = stmt, st
	}
	if holder == nil {
		if lastErr == nil {
			lastErr = &store.Error{Code: store.ErrCodeStatementNotFound, Message: "statement not found", StatementID: id}
		}
		return ir.Statement{}, nil, lastErr
	}
	return found, holder, nil
}
