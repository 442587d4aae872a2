package commands

import "github.com/spf13/cobra"

// Completion returns the completion command for shell autocompletion.
func Completion() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for kubedash.

To load completions:

Bash:
  $ source <(kubedash completion bash)
  # To load completions for each session, execute once:
  # Linux:
  $ kubedash completion bash > /etc/bash_completion.d/kubedash
  # macOS:
  $ kubedash completion bash > $(brew --prefix)/etc/bash_completion.d/kubedash

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  # To load completions for each session, execute once:
  $ kubedash completion zsh > "${fpath[1]}/_kubedash"
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ kubedash completion fish | source
  # To load completions for each session, execute once:
  $ kubedash completion fish > ~/.config/fish/completions/kubedash.fish

PowerShell:
  PS> kubedash completion powershell | Out-String | Invoke-Expression
  # To load completions for every new session, run:
  PS> kubedash completion powershell > kubedash.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
