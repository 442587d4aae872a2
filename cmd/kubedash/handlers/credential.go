package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/imamik/kubedash/internal/cluster"
	"github.com/imamik/kubedash/internal/credential"
)

// ProvisionOptions are the inputs of the provision command.
type ProvisionOptions struct {
	ClusterID string

	SSHHost     string
	SSHPort     int
	SSHUser     string
	SSHPassword string
	SSHKeyFile  string

	Host      string
	Port      int
	VerifySSL bool

	ServiceAccount string
	Namespace      string

	ShowToken bool
}

// provisionResult is the structured output of the provision command.
type provisionResult struct {
	Cluster cluster.Summary `json:"cluster"`
	Token   string          `json:"token,omitempty"`
}

// Provision bootstraps a credential on a cluster node over SSH and stores it.
func Provision(ctx context.Context, w io.Writer, opts Options, p ProvisionOptions) error {
	if err := validateOutput(opts.Output); err != nil {
		return err
	}

	ctx, app, err := loadApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	req, err := buildProvisionRequest(ctx, app, p)
	if err != nil {
		return err
	}

	token, err := app.Credentials.Provision(ctx, req)
	if err != nil {
		return err
	}
	summary, err := app.Credentials.GetCluster(req.Normalize().ClusterID)
	if err != nil {
		return err
	}

	result := provisionResult{Cluster: summary}
	if p.ShowToken {
		result.Token = token
	}
	if done, err := printStructured(w, opts.Output, result); done {
		return err
	}

	fmt.Fprintf(w, "%s provisioned cluster %s at %s\n", okStyle.Render(checkMark), summary.ID, summary.APIURL)
	if p.ShowToken {
		fmt.Fprintln(w, token)
	}
	return nil
}

func buildProvisionRequest(ctx context.Context, app *App, p ProvisionOptions) (credential.ProvisionRequest, error) {
	req := credential.ProvisionRequest{
		SSH: credential.SSHAccess{
			Host:     p.SSHHost,
			Port:     p.SSHPort,
			User:     p.SSHUser,
			Password: p.SSHPassword,
		},
		Host:           p.Host,
		Port:           p.Port,
		ServiceAccount: p.ServiceAccount,
		Namespace:      p.Namespace,
		ClusterID:      p.ClusterID,
		TLSPolicy:      cluster.TLSPolicyFromVerify(p.VerifySSL || app.Config.Kubernetes.VerifySSL),
	}
	if req.ServiceAccount == "" {
		req.ServiceAccount = app.Config.Provisioning.ServiceAccount
	}
	if req.Namespace == "" {
		req.Namespace = app.Config.Provisioning.Namespace
	}

	if p.SSHKeyFile != "" {
		key, err := os.ReadFile(p.SSHKeyFile)
		if err != nil {
			return req, fmt.Errorf("failed to read ssh key %s: %w", p.SSHKeyFile, err)
		}
		req.SSH.PrivateKey = key
		return req, nil
	}

	password, err := secretOrPrompt(ctx, p.SSHPassword,
		"SSH Password",
		fmt.Sprintf("Password for %s@%s", p.SSHUser, p.SSHHost),
		"an ssh password or key file is required (--ssh-password, --ssh-key or KUBEDASH_SSH_PASSWORD)")
	if err != nil {
		return req, err
	}
	req.SSH.Password = password
	return req, nil
}

// CredentialOptions are the inputs of the credential set command.
type CredentialOptions struct {
	ClusterID string
	APIURL    string
	Token     string
	TokenFile string
	VerifySSL bool
}

// SetCredential validates a caller-supplied token and stores it.
func SetCredential(ctx context.Context, w io.Writer, opts Options, c CredentialOptions) error {
	if err := validateOutput(opts.Output); err != nil {
		return err
	}

	host, port, err := cluster.SplitEndpoint(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}

	ctx, app, err := loadApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	token := c.Token
	if c.TokenFile != "" {
		data, err := os.ReadFile(c.TokenFile)
		if err != nil {
			return fmt.Errorf("failed to read token file %s: %w", c.TokenFile, err)
		}
		token = strings.TrimSpace(string(data))
	}
	token, err = secretOrPrompt(ctx, token,
		"Bearer Token",
		"Service account token for "+c.APIURL,
		"a token is required (--token, --token-file or KUBEDASH_TOKEN)")
	if err != nil {
		return err
	}

	d := cluster.Descriptor{
		ID:        c.ClusterID,
		Host:      host,
		Port:      port,
		Token:     token,
		TLSPolicy: cluster.TLSPolicyFromVerify(c.VerifySSL || app.Config.Kubernetes.VerifySSL),
	}
	if err := app.Credentials.SetCredential(ctx, d); err != nil {
		return err
	}

	summary, err := app.Credentials.GetCluster(d.ID)
	if err != nil {
		return err
	}
	if done, err := printStructured(w, opts.Output, summary); done {
		return err
	}
	fmt.Fprintf(w, "%s stored credential for cluster %s at %s\n", okStyle.Render(checkMark), summary.ID, summary.APIURL)
	return nil
}
