package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/entsys/internal/config"
	"github.com/roach88/entsys/internal/entity"
	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/schema"
	"github.com/roach88/entsys/internal/seed"
	"github.com/roach88/entsys/internal/tid"
)

// StatementOptions holds flags for the statement subcommands.
type StatementOptions struct {
	*RootOptions
	Note        string
	By          string
	Group       string
	SubjectType string
}

// StatementView is a statement in command output. Entities are shown by
// name when they have one.
type StatementView struct {
	TID       int64  `json:"tid"`
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	EditedBy  string `json:"edited_by,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Group     string `json:"group,omitempty"`
	Note      string `json:"note,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// WriteText implements textRenderer.
func (v StatementView) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "%s  %s %s %s\n", v.ID, v.Subject, v.Predicate, v.Object)
	if v.EditedBy != "" {
		fmt.Fprintf(w, "  edited by %s at %s\n", v.EditedBy, v.Timestamp)
	}
	if v.Group != "" {
		fmt.Fprintf(w, "  group %s\n", v.Group)
	}
	if v.Note != "" {
		fmt.Fprintf(w, "  note %q\n", v.Note)
	}
	if v.Cancelled {
		fmt.Fprintln(w, "  cancelled")
	}
	return nil
}

// MadeStatement is the result of statement make.
type MadeStatement struct {
	TID   int64  `json:"tid"`
	ID    string `json:"id"`
	Group string `json:"group"`
}

// WriteText implements textRenderer.
func (m MadeStatement) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Made statement %s in group %s\n", m.ID, m.Group)
	return err
}

// CancelledStatement is the result of statement cancel.
type CancelledStatement struct {
	TID          int64  `json:"tid"`
	ID           string `json:"id"`
	Cancellation string `json:"cancellation"`
}

// WriteText implements textRenderer.
func (c CancelledStatement) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Cancelled statement %s (cancellation %s)\n", c.ID, c.Cancellation)
	return err
}

// NewStatementCommand creates the statement command and its subcommands.
func NewStatementCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatementOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "statement",
		Short: "Make, cancel and show statements",
	}

	makeCmd := &cobra.Command{
		Use:   "make <subject> <predicate> <object>",
		Short: "Make a statement",
		Long: `Make a statement about an entity.

The predicate is an attribute or relation name. Attribute objects are
stored as literal text; relation objects name an existing entity by
TID or Type:Name.

Examples:
  entsys statement make Book:Republic alias Politeia --note "Greek title"
  entsys statement make M5HA-K5G3 authorOf Book:Republic`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime, out *OutputFormatter) error {
				return makeStatement(ctx, rt.System, out, opts, args[0], args[1], args[2])
			})
		},
	}
	makeCmd.Flags().StringVar(&opts.Note, "note", "", "editorial note")
	makeCmd.Flags().StringVar(&opts.By, "by", "", "editor (default the system)")
	makeCmd.Flags().StringVar(&opts.Group, "group", "", "statement group TID (default a new group)")

	cancel := &cobra.Command{
		Use:   "cancel <statement-id>",
		Short: "Cancel a statement",
		Long: `Cancel an active statement. The statement stays stored with the
cancellation's editor, timestamp and note.

Examples:
  entsys statement cancel M5HA-K5G4 --note "wrong author"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime, out *OutputFormatter) error {
				return cancelStatement(ctx, rt.System, out, opts, args[0])
			})
		},
	}
	cancel.Flags().StringVar(&opts.Note, "note", "", "cancellation note")
	cancel.Flags().StringVar(&opts.By, "by", "", "cancelling entity (default the system)")
	cancel.Flags().StringVar(&opts.SubjectType, "type", "", "type of the statement's subject, to search one storage only")

	show := &cobra.Command{
		Use:           "show <statement-id>",
		Short:         "Show a statement",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime, out *OutputFormatter) error {
				id, err := tid.FromString(args[0])
				if err != nil {
					return out.Fail("invalid statement id", err)
				}
				st, err := rt.System.GetStatementByID(ctx, id)
				if err != nil {
					return out.Fail("failed to read statement", err)
				}
				return out.Success(newLabeler(rt.System).statement(ctx, st))
			})
		},
	}

	cmd.AddCommand(makeCmd, cancel, show)
	return cmd
}

func makeStatement(ctx context.Context, sys *entity.System, out *OutputFormatter, opts *StatementOptions, subjectRef, predicate, objectArg string) error {
	subject, err := seed.ResolveRef(ctx, sys, subjectRef, nil)
	if err != nil {
		return out.Fail("failed to resolve subject", err)
	}

	relation, err := isRelation(ctx, sys, predicate)
	if err != nil {
		return out.Fail("failed to resolve predicate", err)
	}
	var object ir.Value = ir.Literal(objectArg)
	if relation {
		ref, err := seed.ResolveRef(ctx, sys, objectArg, nil)
		if err != nil {
			return out.Fail("failed to resolve object", err)
		}
		object = ir.EntityRef(ref)
	}

	ns := entity.NewStatement{
		Subject:       subject,
		Predicate:     ir.Literal(predicate),
		Object:        object,
		EditorialNote: opts.Note,
	}
	if opts.By != "" {
		if ns.EditedBy, err = seed.ResolveRef(ctx, sys, opts.By, nil); err != nil {
			return out.Fail("failed to resolve --by", err)
		}
	}
	if opts.Group != "" {
		if ns.Group, err = tid.FromString(opts.Group); err != nil {
			return out.Fail("invalid --group", err)
		}
	}

	ref, err := sys.MakeStatement(ctx, ns)
	if err != nil {
		return out.Fail("failed to make statement", err)
	}
	return out.Success(MadeStatement{
		TID:   ref.ID,
		ID:    tid.ToBase36String(ref.ID),
		Group: tid.ToBase36String(ref.Group),
	})
}

// isRelation reports whether a predicate name refers to a relation.
func isRelation(ctx context.Context, sys *entity.System, predicate string) (bool, error) {
	if typeName, _, ok := entity.SplitTypeAndName(predicate); ok {
		return typeName == schema.TypeNameRelation, nil
	}
	names, err := sys.GetValidRelationNames(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(names, entity.NormalizeName(predicate)), nil
}

func cancelStatement(ctx context.Context, sys *entity.System, out *OutputFormatter, opts *StatementOptions, idArg string) error {
	id, err := tid.FromString(idArg)
	if err != nil {
		return out.Fail("invalid statement id", err)
	}
	var by int64
	if opts.By != "" {
		if by, err = seed.ResolveRef(ctx, sys, opts.By, nil); err != nil {
			return out.Fail("failed to resolve --by", err)
		}
	}
	var hint ir.TypeRef
	if opts.SubjectType != "" {
		hint = ir.TypeName(opts.SubjectType)
	}

	cid, err := sys.CancelStatement(ctx, id, by, opts.Note, hint, time.Time{})
	if err != nil {
		return out.Fail("failed to cancel statement", err)
	}
	return out.Success(CancelledStatement{
		TID:          id,
		ID:           tid.ToBase36String(id),
		Cancellation: tid.ToBase36String(cid),
	})
}
