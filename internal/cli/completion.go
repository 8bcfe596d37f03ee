package cli

import (
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sceneguard/pkg/render"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

// completionGenerators maps each supported shell to its script generator.
var completionGenerators = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
}

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	shells := make([]string, 0, len(completionGenerators))
	for s := range completionGenerators {
		shells = append(shells, s)
	}
	slices.Sort(shells)

	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for the given shell and write it to stdout.

Scene arguments complete to .json, .yaml, .yml and .toml files and plot
--format completes to the supported image formats. For example:

  $ source <(sceneguard completion bash)
  $ sceneguard completion fish | source`,
		DisableFlagsInUseLine: true,
		ValidArgs:             shells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionGenerators[args[0]](cmd.Root(), stdout)
		},
	}
}

// sceneFileArgs completes the single scene file argument.
func sceneFileArgs(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{scene.FormatJSON, scene.FormatYAML, "yml", scene.FormatTOML}, cobra.ShellCompDirectiveFilterFileExt
}

// plotFormats completes plot --format.
func plotFormats(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return []string{render.FormatPNG, render.FormatSVG}, cobra.ShellCompDirectiveNoFileComp
}
