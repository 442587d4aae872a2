package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/imamik/kubedash/cmd/kubedash/handlers"
)

// Credential returns the credential command group.
func Credential(opts *handlers.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage stored credentials",
	}
	cmd.AddCommand(credentialSet(opts))
	return cmd
}

func credentialSet(opts *handlers.Options) *cobra.Command {
	c := handlers.CredentialOptions{}

	cmd := &cobra.Command{
		Use:   "set CLUSTER_ID",
		Short: "Store an existing bearer token after checking it",
		Long: `Check a bearer token against the API server and store it under
CLUSTER_ID, replacing any previous credential. A rejected token is not
stored.

The token is read from --token, --token-file, KUBEDASH_TOKEN or an
interactive prompt.

Examples:
  kubedash credential set prod --api-url https://10.0.0.5:6443 --token-file token.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.ClusterID = args[0]
			if c.Token == "" && c.TokenFile == "" {
				c.Token = os.Getenv("KUBEDASH_TOKEN")
			}
			return handlers.SetCredential(cmd.Context(), cmd.OutOrStdout(), *opts, c)
		},
	}

	cmd.Flags().StringVar(&c.APIURL, "api-url", "", "API server URL or host:port")
	cmd.Flags().StringVar(&c.Token, "token", "", "Bearer token")
	cmd.Flags().StringVar(&c.TokenFile, "token-file", "", "File containing the bearer token")
	cmd.Flags().BoolVar(&c.VerifySSL, "verify-ssl", false, "Verify the API server certificate")
	_ = cmd.MarkFlagRequired("api-url")

	return cmd
}
