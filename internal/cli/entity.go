package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/entsys/internal/config"
	"github.com/roach88/entsys/internal/entity"
	"github.com/roach88/entsys/internal/ir"
	"github.com/roach88/entsys/internal/schema"
	"github.com/roach88/entsys/internal/seed"
	"github.com/roach88/entsys/internal/tid"
)

// EntityOptions holds flags for the entity subcommands.
type EntityOptions struct {
	*RootOptions
	Description string
	CreatedBy   string
}

// EntitySummary names an entity in command output.
type EntitySummary struct {
	TID  int64  `json:"tid"`
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
}

// WriteText implements textRenderer.
func (r EntitySummary) WriteText(w io.Writer) error {
	_, err := fmt.Fprintln(w, r.label())
	return err
}

func (r EntitySummary) label() string {
	switch {
	case r.Type != "" && r.Name != "":
		return fmt.Sprintf("%s %s:%s", r.ID, r.Type, r.Name)
	case r.Type != "":
		return fmt.Sprintf("%s (%s)", r.ID, r.Type)
	}
	return r.ID
}

// EntityView is the result of entity show.
type EntityView struct {
	EntitySummary
	MergedInto   string          `json:"merged_into,omitempty"`
	Statements   []StatementView `json:"statements"`
	ReferencedBy []StatementView `json:"referenced_by"`
}

// WriteText implements textRenderer.
func (v EntityView) WriteText(w io.Writer) error {
	fmt.Fprintln(w, v.label())
	if v.MergedInto != "" {
		fmt.Fprintf(w, "merged into %s\n", v.MergedInto)
	}
	fmt.Fprintln(w, "statements:")
	for _, s := range v.Statements {
		fmt.Fprintf(w, "  %s  %s = %s\n", s.ID, s.Predicate, s.Object)
	}
	if len(v.ReferencedBy) > 0 {
		fmt.Fprintln(w, "referenced by:")
		for _, s := range v.ReferencedBy {
			fmt.Fprintf(w, "  %s  %s %s\n", s.ID, s.Subject, s.Predicate)
		}
	}
	return nil
}

// EntityList is the result of entity list.
type EntityList []EntitySummary

// WriteText implements textRenderer.
func (l EntityList) WriteText(w io.Writer) error {
	for _, r := range l {
		if _, err := fmt.Fprintln(w, r.label()); err != nil {
			return err
		}
	}
	return nil
}

// NewEntityCommand creates the entity command and its subcommands.
func NewEntityCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EntityOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Create and inspect entities",
	}

	create := &cobra.Command{
		Use:   "create <type> <name>",
		Short: "Create an entity",
		Long: `Create an entity of a type with a name and an optional description.
Types with unique names reject a name that is already in use.

Examples:
  entsys entity create Person Plato
  entsys entity create Book Republic --description "A Socratic dialogue"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime, out *OutputFormatter) error {
				return createEntity(ctx, rt.System, out, opts, args[0], args[1])
			})
		},
	}
	create.Flags().StringVarP(&opts.Description, "description", "d", "", "entity description")
	create.Flags().StringVar(&opts.CreatedBy, "by", "", "creating entity (default the system)")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an entity and its statements",
		Long: `Show an entity with its active statements and the statements that
refer to it. The id is a TID or a Type:Name identifier.

Examples:
  entsys entity show M5HA-K5G3
  entsys entity show Book:Republic --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime, out *OutputFormatter) error {
				return showEntity(ctx, rt.System, out, args[0])
			})
		},
	}

	list := &cobra.Command{
		Use:   "list <type>",
		Short: "List the entities of a type",
		Args:  cobra.ExactArgs(1),
		Long: `List the entities that are currently of a type.

Examples:
  entsys entity list Person`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime, out *OutputFormatter) error {
				return listEntities(ctx, rt.System, out, args[0])
			})
		},
	}

	cmd.AddCommand(create, show, list)
	return cmd
}

func createEntity(ctx context.Context, sys *entity.System, out *OutputFormatter, opts *EntityOptions, typeName, name string) error {
	var by int64
	if opts.CreatedBy != "" {
		var err error
		if by, err = seed.ResolveRef(ctx, sys, opts.CreatedBy, nil); err != nil {
			return out.Fail("failed to resolve --by", err)
		}
	}
	id, err := sys.CreateEntity(ctx, ir.TypeName(typeName), name, opts.Description, by, time.Time{})
	if err != nil {
		return out.Fail("failed to create entity", err)
	}
	return out.Success(EntitySummary{
		TID:  id,
		ID:   tid.ToBase36String(id),
		Type: typeName,
		Name: entity.NormalizeName(name),
	})
}

func showEntity(ctx context.Context, sys *entity.System, out *OutputFormatter, ref string) error {
	id, err := seed.ResolveRef(ctx, sys, ref, nil)
	if err != nil {
		return out.Fail("failed to resolve entity", err)
	}
	data, err := sys.GetEntityData(ctx, id)
	if err != nil {
		return out.Fail("failed to read entity", err)
	}

	l := newLabeler(sys)
	view := EntityView{
		EntitySummary: EntitySummary{
			TID:  data.ID,
			ID:   tid.ToBase36String(data.ID),
			Type: l.typeName(data.Type),
			Name: data.Name,
		},
		Statements:   make([]StatementView, 0, len(data.Statements)),
		ReferencedBy: make([]StatementView, 0, len(data.StatementsAsObject)),
	}
	if data.IsMerged() {
		view.MergedInto = l.entity(ctx, data.MergedInto)
	}
	for _, s := range data.Statements {
		view.Statements = append(view.Statements, l.statement(ctx, s))
	}
	for _, s := range data.StatementsAsObject {
		view.ReferencedBy = append(view.ReferencedBy, l.statement(ctx, s))
	}
	return out.Success(view)
}

func listEntities(ctx context.Context, sys *entity.System, out *OutputFormatter, typeName string) error {
	ids, err := sys.GetEntitiesOfType(ctx, ir.TypeName(typeName))
	if err != nil {
		return out.Fail("failed to list entities", err)
	}
	cfg, err := sys.TypeConfig(ir.TypeName(typeName))
	if err != nil {
		return out.Fail("failed to list entities", err)
	}
	list := make(EntityList, 0, len(ids))
	for _, id := range ids {
		name, err := sys.GetEntityName(ctx, id, ir.TypeID(cfg.TID))
		if err != nil && !entity.IsNotFound(err) {
			return out.Fail("failed to read entity name", err)
		}
		list = append(list, EntitySummary{TID: id, ID: tid.ToBase36String(id), Type: cfg.Name, Name: name})
	}
	return out.Success(list)
}

// labeler renders entity references for humans, remembering names it has
// already looked up.
type labeler struct {
	sys    *entity.System
	labels map[int64]string
}

func newLabeler(sys *entity.System) *labeler {
	return &labeler{sys: sys, labels: map[int64]string{}}
}

// entity returns the entity's name, or its TID when it has none.
func (l *labeler) entity(ctx context.Context, id int64) string {
	if label, ok := l.labels[id]; ok {
		return label
	}
	label := tid.ToBase36String(id)
	if name, err := l.sys.GetEntityName(ctx, id, ir.TypeRef{}); err == nil && name != "" {
		label = name
	}
	l.labels[id] = label
	return label
}

func (l *labeler) typeName(typeTID int64) string {
	cfg, err := l.sys.TypeConfig(ir.TypeID(typeTID))
	if err != nil {
		return strconv.FormatInt(typeTID, 10)
	}
	return cfg.Name
}

func (l *labeler) value(ctx context.Context, v ir.Value) string {
	if id, ok := ir.AsEntity(v); ok {
		return l.entity(ctx, id)
	}
	s, _ := ir.AsLiteral(v)
	return strconv.Quote(s)
}

func (l *labeler) statement(ctx context.Context, s ir.Statement) StatementView {
	view := StatementView{
		TID:       s.ID,
		ID:        tid.ToBase36String(s.ID),
		Subject:   l.entity(ctx, s.Subject),
		Predicate: l.entity(ctx, s.Predicate),
		Object:    l.value(ctx, s.Object),
		Cancelled: s.IsCancelled(),
	}
	if v, ok := s.MetadataValue(schema.RelationStatementEditor); ok {
		view.EditedBy = l.value(ctx, v)
	}
	if v, ok := s.MetadataValue(schema.AttributeEditTimestamp); ok {
		view.Timestamp, _ = ir.AsLiteral(v)
	}
	if v, ok := s.MetadataValue(schema.RelationStatementGroup); ok {
		if g, ok := ir.AsEntity(v); ok {
			view.Group = tid.ToBase36String(g)
		}
	}
	if v, ok := s.MetadataValue(schema.AttributeEditorialNote); ok {
		view.Note, _ = ir.AsLiteral(v)
	}
	return view
}
