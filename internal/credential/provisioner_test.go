package credential

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/kubedash/internal/cluster"
	"github.com/imamik/kubedash/internal/platform/ssh"
)

const (
	getSA         = "kubectl get serviceaccount dashboard-admin -n default --no-headers"
	createSA      = "kubectl create serviceaccount dashboard-admin -n default"
	getBinding    = "kubectl get clusterrolebinding dashboard-admin --no-headers"
	createBinding = "kubectl create clusterrolebinding dashboard-admin --clusterrole=cluster-admin --serviceaccount=default:dashboard-admin"
	createToken   = "kubectl create token dashboard-admin -n default"
)

var notFound = ssh.Result{ExitStatus: 1, Stderr: `Error from server (NotFound): not found`}

func baseRequest() ProvisionRequest {
	return ProvisionRequest{
		SSH:       SSHAccess{Host: "10.0.0.5", User: "root", Password: "hunter2"},
		ClusterID: "prod",
	}
}

func TestProvision_FreshCluster(t *testing.T) {
	t.Parallel()

	shell := newFakeShell().
		on(getSA, notFound).
		on(getBinding, notFound).
		on(createToken, ssh.Result{Stdout: "eyJhbGciOi.token\n"})
	dialer := &fakeDialer{shell: shell}
	validator := &fakeValidator{valid: true}

	token, err := NewProvisioner(dialer, validator).Provision(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, "eyJhbGciOi.token", token)

	assert.Equal(t, []string{getSA, createSA, getBinding, createBinding, createToken}, shell.commands)
	assert.Equal(t, 1, shell.closed)

	require.Len(t, dialer.dials, 1)
	assert.Equal(t, 22, dialer.dials[0].Port)

	require.Len(t, validator.probed, 1)
	probed := validator.probed[0]
	assert.Equal(t, "https://10.0.0.5:6443", probed.APIURL())
	assert.Equal(t, "eyJhbGciOi.token", probed.Token)
	assert.Equal(t, cluster.TLSInsecure, probed.TLSPolicy)
}

func TestProvision_ExistingObjectsAreReused(t *testing.T) {
	t.Parallel()

	shell := newFakeShell().
		on(getSA, ssh.Result{Stdout: "dashboard-admin   0   3d\n"}).
		on(getBinding, ssh.Result{Stdout: "dashboard-admin   ClusterRole/cluster-admin   3d\n"}).
		on(createToken, ssh.Result{Stdout: "second-token"})

	token, err := NewProvisioner(&fakeDialer{shell: shell}, &fakeValidator{valid: true}).
		Provision(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, "second-token", token)
	assert.Equal(t, []string{getSA, getBinding, createToken}, shell.commands)
	assert.Equal(t, 1, shell.closed)
}

func TestProvision_ConcurrentCreateIsTolerated(t *testing.T) {
	t.Parallel()

	exists := ssh.Result{ExitStatus: 1, Stderr: `error: failed to create: "dashboard-admin" already exists`}
	shell := newFakeShell().
		on(getSA, notFound).
		on(createSA, exists).
		on(getBinding, notFound).
		on(createBinding, exists).
		on(createToken, ssh.Result{Stdout: "tok"})

	token, err := NewProvisioner(&fakeDialer{shell: shell}, &fakeValidator{valid: true}).
		Provision(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
}

func TestProvision_StageFailures(t *testing.T) {
	t.Parallel()

	transport := fmt.Errorf("%w: run on 10.0.0.5: connection reset", ssh.ErrTransport)

	tests := []struct {
		name       string
		shell      *fakeShell
		valid      bool
		wantStage  Stage
		wantIs     error
		wantSubstr string
	}{
		{
			name:       "service account create forbidden",
			shell:      newFakeShell().on(getSA, notFound).on(createSA, ssh.Result{ExitStatus: 1, Stderr: "Error from server (Forbidden): forbidden\n"}),
			wantStage:  StageIdentity,
			wantSubstr: "Forbidden",
		},
		{
			name:      "transport lost while checking service account",
			shell:     newFakeShell().fail(getSA, transport),
			wantStage: StageIdentity,
			wantIs:    ssh.ErrTransport,
		},
		{
			name: "binding create fails",
			shell: newFakeShell().on(getBinding, notFound).
				on(createBinding, ssh.Result{ExitStatus: 1, Stderr: `clusterroles.rbac.authorization.k8s.io "cluster-admin" not found`}),
			wantStage:  StageAuthorization,
			wantSubstr: "cluster-admin",
		},
		{
			name:       "token command fails",
			shell:      newFakeShell().on(createToken, ssh.Result{ExitStatus: 1, Stderr: "error: unknown command \"token\""}),
			wantStage:  StageMint,
			wantSubstr: "unknown command",
		},
		{
			name:       "token output empty",
			shell:      newFakeShell().on(createToken, ssh.Result{Stdout: "  \n"}),
			wantStage:  StageMint,
			wantSubstr: "token output was empty",
		},
		{
			name:      "token rejected by api server",
			shell:     newFakeShell().on(createToken, ssh.Result{Stdout: "tok"}),
			valid:     false,
			wantStage: StageValidate,
			wantIs:    cluster.ErrValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			token, err := NewProvisioner(&fakeDialer{shell: tt.shell}, &fakeValidator{valid: tt.valid}).
				Provision(context.Background(), baseRequest())
			require.Error(t, err)
			assert.Empty(t, token)

			var perr *ProvisioningError
			require.True(t, errors.As(err, &perr), "got %T: %v", err, err)
			assert.Equal(t, tt.wantStage, perr.Stage)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantSubstr != "" {
				assert.Contains(t, err.Error(), tt.wantSubstr)
			}
			assert.Equal(t, 1, tt.shell.closed, "session is closed on every path")
		})
	}
}

func TestProvision_AuthenticationFailure(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{err: fmt.Errorf("%w: root@10.0.0.5:22: unable to authenticate", ssh.ErrAuthentication)}
	validator := &fakeValidator{valid: true}

	_, err := NewProvisioner(dialer, validator).Provision(context.Background(), baseRequest())
	require.Error(t, err)

	var perr *ProvisioningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StageConnect, perr.Stage)
	assert.Equal(t, "ssh authentication rejected", perr.Detail)
	assert.ErrorIs(t, err, ssh.ErrAuthentication)
	assert.Len(t, dialer.dials, 1)
	assert.Empty(t, validator.probed)
}

func TestProvision_InvalidRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*ProvisionRequest)
		want   string
	}{
		{"bad service account", func(r *ProvisionRequest) { r.ServiceAccount = "Dashboard_Admin" }, "service account"},
		{"injection in namespace", func(r *ProvisionRequest) { r.Namespace = "default; rm -rf /" }, "namespace"},
		{"no credentials", func(r *ProvisionRequest) { r.SSH.Password = "" }, "password or private key"},
		{"no ssh host", func(r *ProvisionRequest) { r.SSH.Host = "" }, "ssh host is required"},
		{"bad tls policy", func(r *ProvisionRequest) { r.TLSPolicy = "sometimes" }, "invalid tls policy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := baseRequest()
			tt.mutate(&req)

			dialer := &fakeDialer{shell: newFakeShell()}
			_, err := NewProvisioner(dialer, &fakeValidator{valid: true}).Provision(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, cluster.ErrInvalidArgument)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, dialer.dials, "nothing is dialed for invalid requests")
		})
	}
}

func TestProvision_Options(t *testing.T) {
	t.Parallel()

	req := baseRequest()
	req.ServiceAccount = "kubedash"
	req.Namespace = "kube-system"
	req.Host = "api.internal"
	req.Port = 443

	mintCmd := "kubectl create token kubedash -n kube-system --duration=1h0m0s"
	shell := newFakeShell().on(mintCmd, ssh.Result{Stdout: "tok"})
	validator := &fakeValidator{valid: true}

	p := NewProvisioner(&fakeDialer{shell: shell}, validator,
		WithBindingName("kubedash-view"),
		WithClusterRole("view"),
		WithTokenDuration(time.Hour),
	)
	_, err := p.Provision(context.Background(), req)
	require.NoError(t, err)

	assert.Contains(t, shell.commands, "kubectl get clusterrolebinding kubedash-view --no-headers")
	assert.Contains(t, shell.commands, mintCmd)
	require.Len(t, validator.probed, 1)
	assert.Equal(t, "https://api.internal:443", validator.probed[0].APIURL())
}

func TestShellQuote(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "dashboard-admin", shellQuote("dashboard-admin"))
	assert.Equal(t, "--serviceaccount=default:sa", shellQuote("--serviceaccount=default:sa"))
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, "'a b'", shellQuote("a b"))
	assert.Equal(t, `'it'"'"'s'`, shellQuote("it's"))
	assert.Equal(t, "'x;y'", shellQuote("x;y"))
}

func TestProvisionRequest_Normalize(t *testing.T) {
	t.Parallel()

	req := ProvisionRequest{SSH: SSHAccess{Host: " 10.0.0.5 ", User: "root", Password: "x"}}.Normalize()
	assert.Equal(t, "10.0.0.5", req.Host)
	assert.Equal(t, cluster.DefaultAPIPort, req.Port)
	assert.Equal(t, DefaultSSHPort, req.SSH.Port)
	assert.Equal(t, DefaultServiceAccount, req.ServiceAccount)
	assert.Equal(t, DefaultNamespace, req.Namespace)
	assert.Equal(t, cluster.DefaultID, req.ClusterID)
	assert.Equal(t, cluster.TLSInsecure, req.TLSPolicy)
	assert.NoError(t, req.Validate())
}

func TestProvisionRequest_NormalizeTLSPolicyAliases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   cluster.TLSPolicy
		want cluster.TLSPolicy
	}{
		{"", cluster.TLSInsecure},
		{"false", cluster.TLSInsecure},
		{"skip", cluster.TLSInsecure},
		{"true", cluster.TLSVerify},
		{" Verify ", cluster.TLSVerify},
		{"sometimes", "sometimes"},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			t.Parallel()
			req := baseRequest()
			req.TLSPolicy = tt.in
			assert.Equal(t, tt.want, req.Normalize().TLSPolicy)
		})
	}

	req := baseRequest()
	req.TLSPolicy = "sometimes"
	assert.ErrorIs(t, req.Normalize().Validate(), cluster.ErrInvalidArgument)
}

func TestProvision_TLSPolicyAliasReachesValidator(t *testing.T) {
	t.Parallel()

	shell := newFakeShell().on(createToken, ssh.Result{Stdout: "tok\n"})
	validator := &fakeValidator{valid: true}

	req := baseRequest()
	req.TLSPolicy = "true"
	token, err := NewProvisioner(&fakeDialer{shell: shell}, validator).Provision(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	require.Len(t, validator.probed, 1)
	assert.Equal(t, cluster.TLSVerify, validator.probed[0].TLSPolicy)
	assert.True(t, validator.probed[0].TLSPolicy.Verify())
}
