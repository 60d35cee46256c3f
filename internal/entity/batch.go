package entity

import (
	"context"
	"fmt"

	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/registry"
	"github.com/roach88/entsys/internal/store"
)

// BatchCommand is a MakeCommand or a CancelCommand.
type BatchCommand interface {
	isBatchCommand()
}

// MakeCommand stores a statement with exactly the given metadata.
type MakeCommand struct {
	Subject   int64
	Predicate int64
	Object    ir.Value
	Metadata  []ir.MetadataPair
}

// CancelCommand cancels a statement with exactly the given cancellation
// metadata.
type CancelCommand struct {
	StatementID int64
	Metadata    []ir.MetadataPair
}

func (MakeCommand) isBatchCommand()   {}
func (CancelCommand) isBatchCommand() {}

type pendingBatch struct {
	storage store.StatementStorage
	cmds    []store.Command
}

// batchPlan groups commands by storage, in order of first use.
type batchPlan struct {
	groups []*pendingBatch
}

func (p *batchPlan) add(st store.StatementStorage, c store.Command) {
	for _, g := range p.groups {
		if g.storage == st {
			g.cmds = append(g.cmds, c)
			return
		}
	}
	p.groups = append(p.groups, &pendingBatch{storage: st, cmds: []store.Command{c}})
}

type touchedStatement struct {
	subject   int64
	predicate int64
	object    ir.Value
	cfg       registry.TypeConfig
	typed     bool
}

// MakeMultipleStatementAndCancellations applies a mixed list of commands
// and returns, per command, the new statement ID or the cancellation ID.
//
// Commands are grouped by the storage they resolve to. Every group is
// prepared before any is committed, and a failed prepare rolls back all
// staged groups. Storages that are not transactional are written after
// all prepares succeed and may be left partially applied. A commit failure
// after another storage committed leaves that storage's commands in place.
// Caches are invalidated once every group has been written.
func (s *System) MakeMultipleStatementAndCancellations(ctx context.Context, cmds []BatchCommand) ([]int64, error) {
	var (
		plan    batchPlan
		touched []touchedStatement
	)
	ids := make([]int64, 0, len(cmds))

	for i, c := range cmds {
		switch c := c.(type) {
		case MakeCommand:
			cfg, err := s.entityTypeConfig(ctx, c.Subject)
			if err != nil {
				if IsNotFound(err) || IsArgumentError(err) {
					return nil, invalidArgument("command %d: subject entity %d does not exist", i, c.Subject)
				}
				return nil, fmt.Errorf("command %d: %w", i, err)
			}
			id, err := s.newTID()
			if err != nil {
				return nil, err
			}
			plan.add(cfg.Storage, store.StoreCommand(id, c.Subject, c.Predicate, c.Object, c.Metadata))
			touched = append(touched, touchedStatement{c.Subject, c.Predicate, c.Object, cfg, true})
			ids = append(ids, id)

		case CancelCommand:
			st, storage, err := s.locateStatement(ctx, c.StatementID, s.registry.Storages())
			if err != nil {
				return nil, fmt.Errorf("command %d: %w", i, err)
			}
			cfg, err := s.entityTypeConfig(ctx, st.Subject)
			typed := err == nil
			cid, err := s.newTID()
			if err != nil {
				return nil, err
			}
			plan.add(storage, store.CancelCommand(c.StatementID, cid, c.Metadata))
			touched = append(touched, touchedStatement{st.Subject, st.Predicate, st.Object, cfg, typed})
			ids = append(ids, cid)

		default:
			return nil, invalidArgument("command %d: unsupported command %T", i, c)
		}
	}

	err := s.applyPlan(ctx, &plan)
	for _, t := range touched {
		if t.typed {
			s.invalidateAfterWrite(ctx, t.subject, t.predicate, t.object, t.cfg)
		} else {
			s.forgetEntityType(t.subject)
		}
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// applyPlan prepares every transactional group, applies the others, then
// commits.
func (s *System) applyPlan(ctx context.Context, plan *batchPlan) error {
	var (
		staged []store.Batch
		direct []*pendingBatch
	)
	rollback := func() {
		for i := len(staged) - 1; i >= 0; i-- {
			if err := staged[i].Rollback(); err != nil {
				s.logger.Error("batch rollback failed", "error", err)
			}
		}
	}

	for _, g := range plan.groups {
		if !g.storage.Transactional() {
			direct = append(direct, g)
			continue
		}
		b, err := g.storage.PrepareBatch(ctx, g.cmds)
		if err != nil {
			rollback()
			return fmt.Errorf("prepare batch: %w", err)
		}
		staged = append(staged, b)
	}

	for _, g := range direct {
		if err := g.storage.ApplyBatch(ctx, g.cmds); err != nil {
			rollback()
			return fmt.Errorf("apply batch on non-transactional storage: %w", err)
		}
	}

	for i, b := range staged {
		if err := b.Commit(); err != nil {
			for _, rest := range staged[i+1:] {
				if rbErr := rest.Rollback(); rbErr != nil {
					s.logger.Error("batch rollback failed", "error", rbErr)
				}
			}
			if i > 0 || len(direct) > 0 {
				s.logger.Error("batch partially committed", "committed_storages", i+len(direct), "error", err)
			}
			return fmt.Errorf("commit batch: %w", err)
		}
	}
	return nil
}
