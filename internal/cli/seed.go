package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/entsys/internal/config"
	"github.com/roach88/entsys/internal/seed"
)

// SeedResult summarizes an applied seed file.
type SeedResult struct {
	Name       string           `json:"name,omitempty"`
	Types      map[string]int64 `json:"types"`
	Entities   map[string]int64 `json:"entities"`
	Statements int              `json:"statements"`
}

// WriteText implements textRenderer.
func (r SeedResult) WriteText(w io.Writer) error {
	name := r.Name
	if name == "" {
		name = "seed"
	}
	_, err := fmt.Fprintf(w, "Applied %s: %d types, %d keyed entities, %d statements\n",
		name, len(r.Types), len(r.Entities), r.Statements)
	return err
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var by string

	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Load types, entities and statements from a YAML file",
		Long: `Load types, entities and statements from a YAML seed file.

Existing types and existing entities of types with unique names are
reused, so a seed can be applied to a store that already holds part of
it. Statements are always made, in one statement group.

Examples:
  entsys seed ./library.yaml
  entsys seed ./library.yaml --by M5HA-K5G3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.Load(args[0])
			if err != nil {
				return rootOpts.formatter(cmd).Fail("failed to load seed", err)
			}
			return rootOpts.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime, out *OutputFormatter) error {
				var editor int64
				if by != "" {
					if editor, err = seed.ResolveRef(ctx, rt.System, by, nil); err != nil {
						return out.Fail("failed to resolve --by", err)
					}
				}
				res, err := f.Apply(ctx, rt.System, editor)
				if err != nil {
					return out.Fail("failed to apply seed", err)
				}
				return out.Success(SeedResult{
					Name:       f.Name,
					Types:      res.Types,
					Entities:   res.Entities,
					Statements: len(res.Statements),
				})
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "editor of the seeded statements (default the system)")
	return cmd
}
