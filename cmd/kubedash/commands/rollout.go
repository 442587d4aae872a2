package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/kubedash/cmd/kubedash/handlers"
)

func addWorkloadFlags(cmd *cobra.Command, wl *handlers.WorkloadOptions) {
	cmd.Flags().StringVar(&wl.ClusterID, "cluster", "", "Cluster id (default: the most recently stored cluster)")
	cmd.Flags().StringVarP(&wl.Namespace, "namespace", "n", "default", "Workload namespace")
}

// Rollout returns the command that restarts a workload and waits for it.
//
// Optional flags:
//
//	--cluster: Stored cluster id (default: most recently stored)
//	--namespace, -n: Workload namespace (default: default)
//	--timeout: How long to wait for convergence (default: configured deadline)
//	--no-wait: Restart without waiting
func Rollout(opts *handlers.Options) *cobra.Command {
	wl := handlers.WorkloadOptions{}
	var noWait bool

	cmd := &cobra.Command{
		Use:   "rollout KIND NAME",
		Short: "Restart a deployment, daemonset or statefulset and wait for it",
		Long: `Restart a workload by touching its pod template and wait until every
desired replica is ready and available.

The command exits non-zero when the restart is rejected or the workload
does not converge before the timeout.

Examples:
  kubedash rollout deployment web -n default
  kubedash rollout sts db -n data --cluster prod --timeout 2m
  kubedash rollout ds agent -n kube-system --no-wait`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wl.Kind, wl.Name = args[0], args[1]
			return handlers.Rollout(cmd.Context(), cmd.OutOrStdout(), *opts, wl, noWait)
		},
	}

	addWorkloadFlags(cmd, &wl)
	cmd.Flags().DurationVar(&wl.Timeout, "timeout", 0, "How long to wait for the rollout (default: configured deadline)")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Restart without waiting for convergence")

	return cmd
}

// Status returns the command that shows a workload's replica status.
func Status(opts *handlers.Options) *cobra.Command {
	wl := handlers.WorkloadOptions{}

	cmd := &cobra.Command{
		Use:   "status KIND NAME",
		Short: "Show the replica status of a workload",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wl.Kind, wl.Name = args[0], args[1]
			return handlers.Status(cmd.Context(), cmd.OutOrStdout(), *opts, wl)
		},
	}

	addWorkloadFlags(cmd, &wl)
	return cmd
}
