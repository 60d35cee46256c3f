package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/entsys/internal/config"
)

// InitResult describes an opened entity system.
type InitResult struct {
	DataDir string `json:"data_dir"`
	Storage string `json:"storage"`
	Cache   string `json:"cache"`
	Types   int    `json:"types"`
}

// WriteText implements textRenderer.
func (r InitResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Initialized entity system in %s (%s storage, %s cache, %d types)\n",
		r.DataDir, r.Storage, r.Cache, r.Types)
	return err
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the data dir and bootstrap the schema",
		Long: `Create the configured data dir and storages and write the schema
statements (standard types, attributes and relations) into an empty
store. Running init again on a bootstrapped store changes nothing.

Examples:
  entsys init
  entsys init --config ./entsys.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withRuntime(cmd, func(ctx context.Context, rt *config.Runtime, out *OutputFormatter) error {
				return out.Success(InitResult{
					DataDir: rt.Config.DataDir,
					Storage: rt.Config.Storage.Backend,
					Cache:   rt.Config.Cache.Backend,
					Types:   len(rt.System.Types()),
				})
			})
		},
	}
}
