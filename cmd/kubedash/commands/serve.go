package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/kubedash/cmd/kubedash/handlers"
)

// Serve returns the command that runs the REST API.
func Serve(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API",
		Long: `Run the kubedash REST API.

The listener, credential store backend and timeouts come from the
configuration file and KUBEDASH_* environment variables. K8S_API and
K8S_TOKEN seed the "default" cluster when it is not stored yet.

Examples:
  # Serve on the default address (127.0.0.1:8000)
  kubedash serve

  # Serve on all interfaces with a SQLite store
  KUBEDASH_HOST=0.0.0.0 KUBEDASH_STORE=sqlite kubedash serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Serve(cmd.Context(), *opts, version)
		},
	}
}
