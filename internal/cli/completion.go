package cli

import (
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// completionCommand prints a completion script for one of the shells cobra
// supports. Subcommands, flags and --format values all complete.
func (c *CLI) completionCommand() *cobra.Command {
	generators := map[string]func(root *cobra.Command, w io.Writer) error{
		"bash": func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
		"zsh":  func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
		"fish": func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
		"powershell": func(root *cobra.Command, w io.Writer) error {
			return root.GenPowerShellCompletionWithDesc(w)
		},
	}
	shells := make([]string, 0, len(generators))
	for name := range generators {
		shells = append(shells, name)
	}
	slices.Sort(shells)

	return &cobra.Command{
		Use:   "completion [" + strings.Join(shells, "|") + "]",
		Short: "Print a shell completion script",
		Long: `Print a completion script for onnxgraph to stdout.

Load it into the current shell:
  bash        source <(onnxgraph completion bash)
  zsh         source <(onnxgraph completion zsh)
  fish        onnxgraph completion fish | source
  powershell  onnxgraph completion powershell | Out-String | Invoke-Expression

To keep completions across sessions, write the script to your shell's
completion directory instead, e.g.
  onnxgraph completion fish > ~/.config/fish/completions/onnxgraph.fish`,
		DisableFlagsInUseLine: true,
		ValidArgs:             shells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return generators[args[0]](cmd.Root(), stdout)
		},
	}
}
