package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/loom"
	"github.com/roach88/loom/internal/diag"
	"github.com/roach88/loom/internal/store"
)

// ComposeOptions holds flags for the compose command.
type ComposeOptions struct {
	*RootOptions
	Root     string
	Bundle   string
	Output   string
	VarsFile string
	Vars     []string
	Watch    bool
}

// NewComposeCommand creates the compose command.
func NewComposeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ComposeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compose <selector>",
		Short: "Compose a fragment tree into a single document",
		Long: `Compose resolves a selector, expands its reference graph to a fixed
point, substitutes variables, and prints the flattened document.

The selector is a relative path (guides/style), a root path (@guides/style),
or an id (#main). Only a syntactically invalid selector fails the command;
missing targets, cycles, and duplicate ids degrade with warnings on stderr.

Examples:
  loom compose '#main' --root ./fragments
  loom compose '@prompts/main' --root ./fragments --var audience=reviewers
  loom compose '#main' --bundle ./set.loom -o out.md
  loom compose '#main' --root ./fragments -o out.md --watch`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Root, "root", ".", "fragment root directory")
	cmd.Flags().StringVar(&opts.Bundle, "bundle", "", "read fragments from a packed bundle instead of a directory")
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "write the document to a file instead of stdout")
	cmd.Flags().StringVar(&opts.VarsFile, "vars-file", "", "YAML file with vars and overrides")
	cmd.Flags().StringArrayVar(&opts.Vars, "var", nil, "variable as name=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "recompose when fragments change (requires --out, directory roots only)")

	return cmd
}

// openFragmentStore opens either the bundle or the directory root. The
// returned closer is a no-op for directories.
func openFragmentStore(rootDir, bundlePath string) (store.Store, func() error, error) {
	if bundlePath != "" {
		b, err := store.OpenBundle(bundlePath)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	}
	fs, err := store.OpenDir(rootDir)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() error { return nil }, nil
}

// composeSession builds a session from command flags, applying the vars
// file first and --var flags second so the command line wins.
func composeSession(opts *ComposeOptions, st store.Store, sink diag.Sink) (*loom.Session, error) {
	sess := loom.NewWithStore(st, loom.WithSink(sink))

	if opts.VarsFile != "" {
		vf, err := LoadVarsFile(opts.VarsFile)
		if err != nil {
			return nil, err
		}
		if err := sess.SetVariables(vf.Vars); err != nil {
			return nil, err
		}
		if err := sess.SetOverrides(vf.Overrides); err != nil {
			return nil, err
		}
	}

	flagVars, err := parseVarFlags(opts.Vars)
	if err != nil {
		return nil, err
	}
	if flagVars != nil {
		if err := sess.SetVariables(flagVars); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

func runCompose(opts *ComposeOptions, selector string, cmd *cobra.Command) error {
	if opts.Watch && opts.Output == "" {
		return NewExitError(ExitCommandError, "--watch requires --out")
	}
	if opts.Watch && opts.Bundle != "" {
		return NewExitError(ExitCommandError, "--watch works on directory roots, not bundles")
	}

	st, closeStore, err := openFragmentStore(opts.Root, opts.Bundle)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open fragments", err)
	}
	defer closeStore()

	collector := diag.NewCollector()
	sess, err := composeSession(opts, st, diag.Tee{collector, diag.SlogSink{}})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure session", err)
	}

	composeOnce := func() error {
		collector.Reset()
		doc, err := sess.Compose(selector)
		if err != nil {
			return WrapExitError(ExitCommandError, "compose failed", err)
		}
		return emitDocument(opts, cmd.OutOrStdout(), doc, collector.All())
	}

	if err := composeOnce(); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}
	return watchAndRecompose(cmd.Context(), opts.Root, composeOnce)
}

// emitDocument writes the composed artifact to --out or stdout. JSON
// mode wraps the document together with the run's diagnostics; with
// --out, the document goes to the file and the JSON envelope on stdout
// carries the file path and the diagnostics instead.
func emitDocument(opts *ComposeOptions, stdout io.Writer, doc string, diagnostics []diag.Diagnostic) error {
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(doc), 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		if opts.Format == "json" {
			f := &OutputFormatter{Format: opts.Format, Writer: stdout, Verbose: opts.Verbose}
			return f.Success(map[string]any{
				"out":         opts.Output,
				"diagnostics": diagnostics,
			})
		}
		return nil
	}

	if opts.Format == "json" {
		f := &OutputFormatter{Format: opts.Format, Writer: stdout, Verbose: opts.Verbose}
		return f.Success(map[string]any{
			"document":    doc,
			"diagnostics": diagnostics,
		})
	}
	_, err := fmt.Fprint(stdout, doc)
	return err
}
