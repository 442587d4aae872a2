package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/kubedash/cmd/kubedash/handlers"
)

// Clusters returns the clusters command group.
func Clusters(opts *handlers.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "clusters",
		Aliases: []string{"cluster"},
		Short:   "List, inspect, test and delete stored clusters",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored clusters; the last one listed is the default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.ListClusters(cmd.Context(), cmd.OutOrStdout(), *opts)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get CLUSTER_ID",
		Short: "Show a stored cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.GetCluster(cmd.Context(), cmd.OutOrStdout(), *opts, args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete CLUSTER_ID",
		Short: "Forget a stored cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.DeleteCluster(cmd.Context(), cmd.OutOrStdout(), *opts, args[0])
		},
	})

	cmd.AddCommand(clustersTest(opts))

	return cmd
}

func clustersTest(opts *handlers.Options) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "test [CLUSTER_ID]",
		Short: "Check that stored credentials are still accepted",
		Long: `Check a stored credential against its API server. With --all every
stored cluster is checked in parallel and the command fails if any of them
rejects its credential.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				return handlers.TestAllClusters(cmd.Context(), cmd.OutOrStdout(), *opts)
			}
			return handlers.TestCluster(cmd.Context(), cmd.OutOrStdout(), *opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Check every stored cluster")
	return cmd
}
