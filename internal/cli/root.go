package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/entsys/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config  string
	Verbose bool
	Format  string // "json" | "text"

	// runtimeOpts are applied to every runtime a command opens.
	runtimeOpts []config.Option
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the entsys CLI. The options
// are applied to every entity system the commands open.
func NewRootCommand(runtimeOpts ...config.Option) *cobra.Command {
	opts := &RootOptions{runtimeOpts: runtimeOpts}

	cmd := &cobra.Command{
		Use:   "entsys",
		Short: "entsys - entity statement store",
		Long: `Store entities as typed statements and query them.

Every fact is a statement (subject, predicate, object) with its own
editor, timestamp and statement group. Statements are never changed,
only cancelled. Entities are named by TID (base-36 like M5HA-K5G3, or
base-10) or, for types with unique names, as Type:Name.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "config file (default ./entsys.yaml or ~/.entsys/entsys.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewTypesCommand(opts))
	cmd.AddCommand(NewEntityCommand(opts))
	cmd.AddCommand(NewStatementCommand(opts))
	cmd.AddCommand(NewTIDCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout(), Verbose: o.Verbose}
}

// loadConfig reads the config named by --config.
func (o *RootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.Config)
	if err != nil {
		return nil, o.formatter(cmd).Fail("failed to load config", err)
	}
	return cfg, nil
}

// withRuntime opens the configured entity system, runs fn and closes the
// system again. Errors from fn are reported through the formatter.
func (o *RootOptions) withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *config.Runtime, out *OutputFormatter) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := o.formatter(cmd)

	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := cfg.Logging.NewLogger(cmd.ErrOrStderr(), o.Verbose)
	rt, err := config.Open(ctx, cfg, logger, o.runtimeOpts...)
	if err != nil {
		return out.Fail("failed to open entity system", err)
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			logger.Error("closing entity system", "error", cerr)
		}
	}()
	return fn(ctx, rt, out)
}
