package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/loom/internal/store"
)

// PackOptions holds flags for the pack command.
type PackOptions struct {
	*RootOptions
	Output string
}

// NewPackCommand creates the pack command.
func NewPackCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PackOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pack <dir>",
		Short: "Pack a fragment directory into a single-file bundle",
		Long: `Pack copies every fragment under a directory into a SQLite bundle
that compose and validate can read with --bundle. Bundles are
self-contained and safe to distribute; packing again replaces the
previous contents atomically.

Examples:
  loom pack ./fragments -o set.loom
  loom compose '#main' --bundle set.loom`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPack(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "bundle file to write (required)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runPack(opts *PackOptions, dir string, cmd *cobra.Command) error {
	src, err := store.OpenDir(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open fragment directory", err)
	}

	count, err := store.Pack(src, opts.Output)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to write bundle", err)
	}

	if opts.Format == "json" {
		f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
		return f.Success(map[string]any{
			"bundle":    opts.Output,
			"fragments": count,
		})
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "packed %d fragment(s) into %s\n", count, opts.Output)
	return err
}
