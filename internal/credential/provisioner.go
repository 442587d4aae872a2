package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kubedash/internal/cluster"
	"github.com/imamik/kubedash/internal/metrics"
	"github.com/imamik/kubedash/internal/platform/ssh"
)

// Authorization defaults.
const (
	DefaultBindingName = "dashboard-admin"
	DefaultClusterRole = "cluster-admin"
)

const alreadyExists = "already exists"

// Provisioner runs the SSH bootstrap protocol.
type Provisioner struct {
	dialer        Dialer
	validator     TokenValidator
	bindingName   string
	clusterRole   string
	tokenDuration time.Duration
}

// ProvisionerOption configures a Provisioner.
type ProvisionerOption func(*Provisioner)

// WithBindingName overrides the cluster role binding name.
func WithBindingName(name string) ProvisionerOption {
	return func(p *Provisioner) {
		if name != "" {
			p.bindingName = name
		}
	}
}

// WithClusterRole overrides the cluster role bound to the service account.
func WithClusterRole(role string) ProvisionerOption {
	return func(p *Provisioner) {
		if role != "" {
			p.clusterRole = role
		}
	}
}

// WithTokenDuration requests tokens with the given lifetime. Zero leaves the
// lifetime to the API server.
func WithTokenDuration(d time.Duration) ProvisionerOption {
	return func(p *Provisioner) {
		p.tokenDuration = d
	}
}

// NewProvisioner returns a Provisioner.
func NewProvisioner(dialer Dialer, validator TokenValidator, opts ...ProvisionerOption) *Provisioner {
	p := &Provisioner{
		dialer:      dialer,
		validator:   validator,
		bindingName: DefaultBindingName,
		clusterRole: DefaultClusterRole,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision bootstraps a service account on the cluster behind req.SSH and
// returns a validated bearer token. The SSH session is closed before return.
func (p *Provisioner) Provision(ctx context.Context, req ProvisionRequest) (string, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return "", err
	}

	logger := log.FromContext(ctx).WithValues("cluster", req.ClusterID, "sshHost", req.SSH.Address())
	ctx = log.IntoContext(ctx, logger)

	var shell Shell
	err := p.stage(ctx, StageConnect, func(ctx context.Context) error {
		s, err := p.dialer.Dial(ctx, req.SSH)
		if err != nil {
			detail := "could not open ssh session"
			if errors.Is(err, ssh.ErrAuthentication) {
				detail = "ssh authentication rejected"
			}
			return &ProvisioningError{Stage: StageConnect, Detail: detail, Err: err}
		}
		shell = s
		return nil
	})
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := shell.Close(); cerr != nil {
			logger.V(1).Info("closing ssh session failed", "error", cerr.Error())
		}
	}()

	err = p.stage(ctx, StageIdentity, func(ctx context.Context) error {
		return ensure(ctx, shell, StageIdentity, "service account "+req.Namespace+"/"+req.ServiceAccount,
			command("kubectl", "get", "serviceaccount", req.ServiceAccount, "-n", req.Namespace, "--no-headers"),
			command("kubectl", "create", "serviceaccount", req.ServiceAccount, "-n", req.Namespace),
		)
	})
	if err != nil {
		return "", err
	}

	err = p.stage(ctx, StageAuthorization, func(ctx context.Context) error {
		return ensure(ctx, shell, StageAuthorization, "cluster role binding "+p.bindingName,
			command("kubectl", "get", "clusterrolebinding", p.bindingName, "--no-headers"),
			command("kubectl", "create", "clusterrolebinding", p.bindingName,
				"--clusterrole="+p.clusterRole,
				"--serviceaccount="+req.Namespace+":"+req.ServiceAccount),
		)
	})
	if err != nil {
		return "", err
	}

	var token string
	err = p.stage(ctx, StageMint, func(ctx context.Context) error {
		var mintErr error
		token, mintErr = p.mint(ctx, shell, req)
		return mintErr
	})
	if err != nil {
		return "", err
	}

	err = p.stage(ctx, StageValidate, func(ctx context.Context) error {
		d := cluster.Descriptor{
			ID:        req.ClusterID,
			Host:      req.Host,
			Port:      req.Port,
			Token:     token,
			TLSPolicy: req.TLSPolicy,
		}
		if !p.validator.Validate(ctx, d) {
			return &ProvisioningError{
				Stage:  StageValidate,
				Detail: "minted token was not accepted by " + d.APIURL(),
				Err:    cluster.ErrValidationFailed,
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return token, nil
}

func (p *Provisioner) mint(ctx context.Context, shell Shell, req ProvisionRequest) (string, error) {
	args := []string{"kubectl", "create", "token", req.ServiceAccount, "-n", req.Namespace}
	if p.tokenDuration > 0 {
		args = append(args, "--duration="+p.tokenDuration.String())
	}

	res, err := shell.Exec(ctx, command(args...))
	if err != nil {
		return "", &ProvisioningError{Stage: StageMint, Detail: "creating token", Err: err}
	}
	if !res.Succeeded() {
		return "", &ProvisioningError{Stage: StageMint, Detail: "creating token", Err: commandError(res)}
	}

	token := strings.TrimSpace(res.Stdout)
	if token == "" {
		return "", &ProvisioningError{Stage: StageMint, Detail: "token output was empty"}
	}
	return token, nil
}

// stage runs fn, logging and timing it.
func (p *Provisioner) stage(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	logger := log.FromContext(ctx).WithValues("stage", string(stage))
	logger.V(1).Info("provisioning stage started")

	start := time.Now()
	err := fn(log.IntoContext(ctx, logger))
	metrics.RecordProvisionStage(string(stage), err, time.Since(start))

	if err != nil {
		logger.Info("provisioning stage failed", "error", err.Error())
		return err
	}
	logger.Info("provisioning stage completed", "duration", time.Since(start).Round(time.Millisecond).String())
	return nil
}

// ensure creates an object unless the get command finds it. A create that
// fails because the object appeared in between is treated as success.
func ensure(ctx context.Context, shell Shell, stage Stage, what, getCmd, createCmd string) error {
	logger := log.FromContext(ctx)

	res, err := shell.Exec(ctx, getCmd)
	if err != nil {
		return &ProvisioningError{Stage: stage, Detail: "checking " + what, Err: err}
	}
	if res.Succeeded() {
		logger.V(1).Info("already present", "object", what)
		return nil
	}

	res, err = shell.Exec(ctx, createCmd)
	if err != nil {
		return &ProvisioningError{Stage: stage, Detail: "creating " + what, Err: err}
	}
	if res.Succeeded() {
		logger.Info("created", "object", what)
		return nil
	}
	if strings.Contains(res.Stderr, alreadyExists) {
		logger.V(1).Info("already present", "object", what)
		return nil
	}
	return &ProvisioningError{Stage: stage, Detail: "creating " + what, Err: commandError(res)}
}

func commandError(res ssh.Result) error {
	msg := strings.TrimSpace(res.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(res.Stdout)
	}
	if msg == "" {
		return fmt.Errorf("exit status %d", res.ExitStatus)
	}
	return fmt.Errorf("exit status %d: %s", res.ExitStatus, msg)
}
