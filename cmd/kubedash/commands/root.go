// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers
// package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/kubedash/cmd/kubedash/handlers"
)

// Root returns the root command for the kubedash CLI.
func Root() *cobra.Command {
	opts := &handlers.Options{}

	cmd := &cobra.Command{
		Use:           "kubedash",
		Short:         "Manage Kubernetes API credentials and workload rollouts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file")
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVarP(&opts.Output, "output", "o", handlers.OutputText, "Output format: text, json or yaml")

	// Core commands
	cmd.AddCommand(Serve(opts))
	cmd.AddCommand(Provision(opts))
	cmd.AddCommand(Credential(opts))
	cmd.AddCommand(Clusters(opts))
	cmd.AddCommand(Rollout(opts))
	cmd.AddCommand(Status(opts))

	// Utility commands
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
