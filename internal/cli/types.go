package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/entsys/internal/config"
	"github.com/roach88/entsys/internal/entity"
	"github.com/roach88/entsys/internal/tid"
)

// TypeView is one entity type as listed by the types command.
type TypeView struct {
	Name        string `json:"name"`
	TID         int64  `json:"tid"`
	UniqueNames bool   `json:"unique_names"`
	CacheTTL    string `json:"cache_ttl"`
}

// TypeList is the result of the types command.
type TypeList []TypeView

// WriteText implements textRenderer.
func (l TypeList) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%-16s %-7s %s\n", "NAME", "UNIQUE", "CACHE TTL"); err != nil {
		return err
	}
	for _, t := range l {
		unique := "no"
		if t.UniqueNames {
			unique = "yes"
		}
		if _, err := fmt.Fprintf(w, "%-16s %-7s %s\n", t.Name, unique, t.CacheTTL); err != nil {
			return err
		}
	}
	return nil
}

// CreatedType is the result of types create.
type CreatedType struct {
	Name        string `json:"name"`
	TID         int64  `json:"tid"`
	UniqueNames bool   `json:"unique_names"`
}

// WriteText implements textRenderer.
func (c CreatedType) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Created type %s (%s)\n", c.Name, tid.ToBase36String(c.TID))
	return err
}

// NewTypesCommand creates the types command and its create subcommand.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		description string
		unique      bool
	)

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the defined entity types",
		Long: `List every entity type with its unique-names flag and the TTL of its
entity data in the cache. Types are listed in the order they were
registered: the standard types first.

Examples:
  entsys types
  entsys types --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime, out *OutputFormatter) error {
				types := rt.System.Types()
				list := make(TypeList, 0, len(types))
				for _, t := range types {
					list = append(list, TypeView{
						Name:        t.Name,
						TID:         t.TID,
						UniqueNames: t.UniqueNames,
						CacheTTL:    formatTTL(t.CacheTTL),
					})
				}
				return out.Success(list)
			})
		},
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Define a new entity type",
		Long: `Define a new entity type. With --unique, no two active entities of
the type may share a name and they can be addressed as Type:Name.

Examples:
  entsys types create Book --unique --description "A published book"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime, out *OutputFormatter) error {
				id, err := rt.System.CreateEntityType(ctx, args[0], description, unique, 0, time.Time{})
				if err != nil {
					return out.Fail("failed to create type", err)
				}
				return out.Success(CreatedType{Name: entity.NormalizeName(args[0]), TID: id, UniqueNames: unique})
			})
		},
	}
	create.Flags().StringVarP(&description, "description", "d", "", "type description")
	create.Flags().BoolVar(&unique, "unique", false, "entities of the type have unique names")

	cmd.AddCommand(create)
	return cmd
}

func formatTTL(d time.Duration) string {
	if d <= 0 {
		return "forever"
	}
	return d.String()
}
