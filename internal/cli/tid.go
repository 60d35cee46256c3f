package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/entsys/internal/tid"
)

// createdLayout formats the creation time of a TID.
const createdLayout = "2006-01-02T15:04:05.000Z07:00"

// TIDView shows one TID in all its forms.
type TIDView struct {
	TID     int64  `json:"tid"`
	Base36  string `json:"base36"`
	Hex     string `json:"hex"`
	UUID    string `json:"uuid"`
	Created string `json:"created"`
}

// WriteText implements textRenderer.
func (v TIDView) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "tid:     %d\nbase36:  %s\nhex:     %s\nuuid:    %s\ncreated: %s\n",
		v.TID, v.Base36, v.Hex, v.UUID, v.Created)
	return err
}

func newTIDView(t int64) (TIDView, error) {
	u, err := tid.ToUUID(t)
	if err != nil {
		return TIDView{}, err
	}
	return TIDView{
		TID:     t,
		Base36:  tid.ToBase36String(t),
		Hex:     tid.ToHex(t),
		UUID:    u.String(),
		Created: tid.ToTime(t).UTC().Format(createdLayout),
	}, nil
}

// TIDList is the result of tid generate.
type TIDList []TIDView

// WriteText implements textRenderer.
func (l TIDList) WriteText(w io.Writer) error {
	for _, v := range l {
		if _, err := fmt.Fprintf(w, "%s  %d\n", v.Base36, v.TID); err != nil {
			return err
		}
	}
	return nil
}

// NewTIDCommand creates the tid command and its subcommands.
func NewTIDCommand(rootOpts *RootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "tid",
		Short: "Generate and convert TIDs",
		Long: `Generate TIDs and convert them between their forms.

A TID is the number of milliseconds since the Unix epoch at which it was
generated, bumped past the last issued TID. It is written in base-36
(M5HA-K5G3), base-10 (1735941183123) or as a version-1 UUID.`,
	}

	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate new TIDs",
		Long: `Generate new TIDs from the configured TID file. TIDs never repeat,
across processes sharing the file.

Examples:
  entsys tid generate
  entsys tid generate -n 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			if count < 1 {
				return out.Fail("invalid count", fmt.Errorf("-n must be at least 1, got %d", count))
			}
			cfg, err := rootOpts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(cfg.TIDFile), 0o755); err != nil {
				return out.Fail("failed to create tid file dir", err)
			}
			gen := tid.NewGenerator(cfg.TIDFile)
			list := make(TIDList, 0, count)
			for range count {
				t, err := gen.Generate()
				if err != nil {
					return out.Fail("failed to generate tid", err)
				}
				v, err := newTIDView(t)
				if err != nil {
					return out.Fail("failed to generate tid", err)
				}
				list = append(list, v)
			}
			return out.Success(list)
		},
	}
	generate.Flags().IntVarP(&count, "count", "n", 1, "number of TIDs")

	encode := &cobra.Command{
		Use:   "encode <decimal>",
		Short: "Show a base-10 TID in all forms",
		Long: `Show a base-10 TID in all forms.

Examples:
  entsys tid encode 1735941183123`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			t, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || !tid.Valid(t) {
				return out.Fail("invalid tid", fmt.Errorf("%w: %q", tid.ErrInvalidString, args[0]))
			}
			v, err := newTIDView(t)
			if err != nil {
				return out.Fail("invalid tid", err)
			}
			return out.Success(v)
		},
	}

	decode := &cobra.Command{
		Use:   "decode <tid>",
		Short: "Decode a base-36, base-10 or UUID TID",
		Long: `Decode a TID from its base-36 or base-10 form, or from its UUID
equivalent, and show it in all forms.

Examples:
  entsys tid decode M5HA-K5G3
  entsys tid decode 2e285693-0194-1000-8000-000af792a0df`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			t, err := decodeTID(args[0])
			if err != nil {
				return out.Fail("invalid tid", err)
			}
			v, err := newTIDView(t)
			if err != nil {
				return out.Fail("invalid tid", err)
			}
			return out.Success(v)
		},
	}

	cmd.AddCommand(generate, encode, decode)
	return cmd
}

func decodeTID(s string) (int64, error) {
	if len(s) == 36 {
		if u, err := uuid.Parse(s); err == nil {
			return tid.FromUUID(u)
		}
	}
	return tid.FromString(s)
}
