package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/relnet/pkg/document"
	"github.com/matzehuels/relnet/pkg/image"
	"github.com/matzehuels/relnet/pkg/pipeline"
	"github.com/matzehuels/relnet/pkg/render/nodelink"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for relnet.

Completions cover subcommands, document arguments (.yaml, .yml, .toml) and
the values of --format, --layout and --image-provider.

  $ source <(relnet completion bash)
  $ relnet completion zsh > "${fpath[1]}/_relnet"
  $ relnet completion fish > ~/.config/fish/completions/relnet.fish
  PS> relnet completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return fmt.Errorf("unsupported shell %q", args[0])
		},
	}

	return cmd
}

// completeDocument completes the single input argument with document files.
func completeDocument(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return document.Extensions, cobra.ShellCompDirectiveFilterFileExt
}

// completeFlagValues registers fixed value lists for the named flags that
// cmd defines.
func completeFlagValues(cmd *cobra.Command, values map[string][]string) {
	for name, vals := range values {
		if cmd.Flags().Lookup(name) == nil {
			continue
		}
		_ = cmd.RegisterFlagCompletionFunc(name, cobra.FixedCompletions(vals, cobra.ShellCompDirectiveNoFileComp))
	}
}

// renderFlagValues lists the accepted --format and --layout values.
func renderFlagValues() map[string][]string {
	layouts := make([]string, len(nodelink.Layouts))
	for i, l := range nodelink.Layouts {
		layouts[i] = string(l)
	}
	return map[string][]string{
		"format": pipeline.ValidFormats,
		"layout": layouts,
	}
}

// imageFlagValues lists the accepted --image-provider values.
func imageFlagValues() map[string][]string {
	return map[string][]string{"image-provider": {image.ProviderFile, image.ProviderWiki}}
}
