package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/loom/internal/analysis"
	"github.com/roach88/loom/internal/fragment"
	"github.com/roach88/loom/internal/metaschema"
	"github.com/roach88/loom/internal/store"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Root   string
	Bundle string
}

// Finding is one validation problem attributable to a fragment.
type Finding struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"` // "frontmatter", "metadata", "selector", "missing-target", "duplicate-id"
	Message string `json:"message"`
}

// ValidationReport is the full result of validating a fragment set.
type ValidationReport struct {
	Fragments int                     `json:"fragments"`
	Findings  []Finding               `json:"findings,omitempty"`
	Cycles    []analysis.CycleWarning `json:"cycles,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Statically check a fragment set",
		Long: `Validate walks every fragment and reports frontmatter schema
violations, invalid selectors, unresolvable references, and duplicate
ids. Reference cycles are reported as warnings: compose is guaranteed to
terminate on them, but they usually indicate an authoring mistake.

Exit codes: 0 clean (warnings allowed), 1 findings, 2 command error.

Examples:
  loom validate --root ./fragments
  loom validate --bundle ./set.loom --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Root, "root", ".", "fragment root directory")
	cmd.Flags().StringVar(&opts.Bundle, "bundle", "", "validate a packed bundle instead of a directory")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	st, closeStore, err := openFragmentStore(opts.Root, opts.Bundle)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open fragments", err)
	}
	defer closeStore()

	report := validateStore(st)

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		if err := f.Success(report); err != nil {
			return err
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), report.Text())
	}

	if len(report.Findings) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d finding(s)", len(report.Findings)))
	}
	return nil
}

// validateStore runs every static check against one store.
func validateStore(st store.Store) ValidationReport {
	report := ValidationReport{}
	idOwners := make(map[string][]string)

	paths := st.Paths()
	report.Fragments = len(paths)

	for _, p := range paths {
		content := st.Get(p)
		if !content.Found {
			continue
		}
		meta, _ := fragment.Parse(content.Raw)

		// A fence that opens but does not parse degrades to body text at
		// compose time; here it is almost certainly an authoring mistake.
		if meta == nil && opensFrontmatterFence(content.Raw) {
			report.Findings = append(report.Findings, Finding{
				Path: p, Kind: "frontmatter",
				Message: "frontmatter fence opens but does not parse as YAML metadata",
			})
		}

		for _, issue := range metaschema.Validate(p, meta) {
			report.Findings = append(report.Findings, Finding{
				Path: p, Kind: "metadata", Message: issue.Message,
			})
		}
		if id, ok := meta["id"].(string); ok && id != "" {
			idOwners[id] = append(idOwners[id], p)
		}

		_, ext := fragment.New(p, content.Raw, st)
		for _, lit := range ext.Invalid {
			report.Findings = append(report.Findings, Finding{
				Path: p, Kind: "selector", Message: fmt.Sprintf("invalid selector %q", lit),
			})
		}
		for _, ref := range ext.References {
			if !st.Get(ref).Found {
				report.Findings = append(report.Findings, Finding{
					Path: p, Kind: "missing-target", Message: fmt.Sprintf("reference %q has no target", ref),
				})
			}
		}
	}

	for id, owners := range idOwners {
		if len(owners) > 1 {
			report.Findings = append(report.Findings, Finding{
				Path: owners[0], Kind: "duplicate-id",
				Message: fmt.Sprintf("id %q declared by %s", id, strings.Join(owners, ", ")),
			})
		}
	}
	sortFindings(report.Findings)

	report.Cycles = analysis.AnalyzeCycles(st)
	return report
}

func opensFrontmatterFence(raw string) bool {
	return strings.HasPrefix(raw, "---\n") || strings.HasPrefix(raw, "---\r\n")
}

// sortFindings orders findings by path then kind so output is stable
// across map iteration order.
func sortFindings(findings []Finding) {
	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Message < b.Message
	})
}

// Text renders the report for terminals.
func (r ValidationReport) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d fragment(s) checked\n", r.Fragments)
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "FAIL %s [%s]: %s\n", f.Path, f.Kind, f.Message)
	}
	for _, c := range r.Cycles {
		fmt.Fprintf(&b, "WARN cycle: %s\n", strings.Join(c.Path, " -> "))
	}
	if len(r.Findings) == 0 {
		b.WriteString("OK\n")
	}
	return b.String()
}
