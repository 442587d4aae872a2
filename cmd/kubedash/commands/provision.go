package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/imamik/kubedash/cmd/kubedash/handlers"
	"github.com/imamik/kubedash/internal/credential"
)

// Provision returns the command that bootstraps a credential over SSH.
//
// Required flags:
//
//	--ssh-host: Host running kubectl with admin access
//	--ssh-user: SSH login user
//
// The SSH password is read from --ssh-password, KUBEDASH_SSH_PASSWORD or an
// interactive prompt. --ssh-key selects key authentication instead.
func Provision(opts *handlers.Options) *cobra.Command {
	p := handlers.ProvisionOptions{}

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create a service account token on a cluster over SSH",
		Long: `Connect to a cluster node over SSH, ensure a service account and a
cluster role binding exist, mint a token for the service account, check it
against the API server and store it under the given cluster id.

Examples:
  # Provision the default cluster, prompting for the SSH password
  kubedash provision --ssh-host 203.0.113.7 --ssh-user root

  # Provision a named cluster with key authentication and print the token
  kubedash provision --cluster prod --ssh-host 203.0.113.7 --ssh-user ubuntu \
    --ssh-key ~/.ssh/id_ed25519 --show-token`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if p.SSHPassword == "" {
				p.SSHPassword = os.Getenv("KUBEDASH_SSH_PASSWORD")
			}
			return handlers.Provision(cmd.Context(), cmd.OutOrStdout(), *opts, p)
		},
	}

	cmd.Flags().StringVar(&p.ClusterID, "cluster", "", `Cluster id to store the credential under (default "default")`)
	cmd.Flags().StringVar(&p.SSHHost, "ssh-host", "", "SSH host")
	cmd.Flags().IntVar(&p.SSHPort, "ssh-port", credential.DefaultSSHPort, "SSH port")
	cmd.Flags().StringVar(&p.SSHUser, "ssh-user", "", "SSH user")
	cmd.Flags().StringVar(&p.SSHPassword, "ssh-password", "", "SSH password")
	cmd.Flags().StringVar(&p.SSHKeyFile, "ssh-key", "", "Path to an SSH private key")
	cmd.Flags().StringVar(&p.Host, "api-host", "", "API server host (default: the SSH host)")
	cmd.Flags().IntVar(&p.Port, "api-port", 0, "API server port (default 6443)")
	cmd.Flags().BoolVar(&p.VerifySSL, "verify-ssl", false, "Verify the API server certificate")
	cmd.Flags().StringVar(&p.ServiceAccount, "service-account", "", `Service account name (default "dashboard-admin")`)
	cmd.Flags().StringVarP(&p.Namespace, "namespace", "n", "", `Service account namespace (default "default")`)
	cmd.Flags().BoolVar(&p.ShowToken, "show-token", false, "Print the minted token")

	_ = cmd.MarkFlagRequired("ssh-host")
	_ = cmd.MarkFlagRequired("ssh-user")

	return cmd
}
