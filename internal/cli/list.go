package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/loom/internal/fragment"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Root   string
	Bundle string
}

// FragmentInfo is one row of list output.
type FragmentInfo struct {
	Path       string   `json:"path"`
	ID         string   `json:"id,omitempty"`
	Variables  []string `json:"variables,omitempty"`
	References []string `json:"references,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List fragments with their ids, variables, and references",
		Long: `List enumerates every fragment in stable path order and shows what
each one declares: its id, the variable names its body consumes, and
the canonical targets it references.

Examples:
  loom list --root ./fragments
  loom list --bundle ./set.loom --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Root, "root", ".", "fragment root directory")
	cmd.Flags().StringVar(&opts.Bundle, "bundle", "", "list a packed bundle instead of a directory")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	st, closeStore, err := openFragmentStore(opts.Root, opts.Bundle)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open fragments", err)
	}
	defer closeStore()

	var infos []FragmentInfo
	for _, p := range st.Paths() {
		content := st.Get(p)
		if !content.Found {
			continue
		}
		frag, _ := fragment.New(p, content.Raw, st)
		infos = append(infos, FragmentInfo{
			Path:       p,
			ID:         frag.ID(),
			Variables:  frag.Variables,
			References: frag.References,
		})
	}

	if opts.Format == "json" {
		f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
		return f.Success(infos)
	}

	out := cmd.OutOrStdout()
	for _, info := range infos {
		fmt.Fprintf(out, "%s\n", info.Path)
		if info.ID != "" {
			fmt.Fprintf(out, "  id: %s\n", info.ID)
		}
		if len(info.Variables) > 0 {
			fmt.Fprintf(out, "  vars: %s\n", strings.Join(info.Variables, ", "))
		}
		if len(info.References) > 0 {
			fmt.Fprintf(out, "  refs: %s\n", strings.Join(info.References, ", "))
		}
	}
	return nil
}
