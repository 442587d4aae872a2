package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kubedash/internal/cluster"
	"github.com/imamik/kubedash/internal/config"
	"github.com/imamik/kubedash/internal/credential"
	"github.com/imamik/kubedash/internal/platform/s3"
	"github.com/imamik/kubedash/internal/rollout"
	"github.com/imamik/kubedash/internal/store"
)

// Options are the global flags shared by every command.
type Options struct {
	ConfigPath string
	Debug      bool
	Output     string
}

// App holds the wired components for one command invocation.
type App struct {
	Config      *config.Config
	Logger      logr.Logger
	Store       *store.Store
	Credentials *credential.Service
	Rollouts    *rollout.Controller

	closers []func() error
}

// loadApp loads configuration, installs the logger and wires the components.
// The returned context carries the logger.
func loadApp(ctx context.Context, opts Options) (context.Context, *App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return ctx, nil, err
	}
	if opts.Debug {
		cfg.Log.Debug = true
	}

	logger := setupLogging(cfg.Log)
	ctx = log.IntoContext(ctx, logger)

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return ctx, nil, err
	}
	app.Logger = logger
	return ctx, app, nil
}

// NewApp wires the store, credential service and rollout controller for cfg.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg, Logger: log.FromContext(ctx)}

	backend, err := app.openBackend(ctx)
	if err != nil {
		return nil, err
	}

	st, err := store.New(ctx, backend)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Store = st

	validator := credential.NewValidator(cfg.Kubernetes.ValidationTimeout)
	dialer := credential.SSHDialer{
		DialTimeout: cfg.SSH.DialTimeout,
		MaxRetries:  cfg.SSH.MaxRetries,
		RetryDelay:  cfg.SSH.RetryDelay,
	}
	provisioner := credential.NewProvisioner(dialer, validator,
		credential.WithBindingName(cfg.Provisioning.BindingName),
		credential.WithClusterRole(cfg.Provisioning.ClusterRole),
		credential.WithTokenDuration(cfg.Provisioning.TokenDuration),
	)
	app.Credentials = credential.NewService(st, provisioner, validator)

	app.Rollouts = rollout.NewController(st,
		rollout.WithRequestTimeout(cfg.Kubernetes.RequestTimeout),
		rollout.WithInterval(cfg.Rollout.PollInterval),
		rollout.WithDefaultDeadline(cfg.Rollout.DefaultDeadline),
	)

	if err := app.seed(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) openBackend(ctx context.Context) (store.Backend, error) {
	cfg := a.Config.Store
	switch cfg.Backend {
	case config.StoreFile:
		return store.NewFileBackend(cfg.Path), nil

	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", cfg.SQLitePath, err)
		}
		backend, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, backend.Close)
		return backend, nil

	case config.StoreS3:
		client, err := s3.NewClient(s3.Options{
			Endpoint:     cfg.S3.Endpoint,
			Region:       cfg.S3.Region,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return store.NewS3Backend(client, cfg.S3.Bucket, cfg.S3.Key), nil

	case config.StoreMemory:
		log.FromContext(ctx).Info("using in-memory credential store, clusters are lost on exit")
		return store.NewMemoryBackend(), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// seed stores the cluster described by the seed configuration under the
// default id unless that id is already taken.
func (a *App) seed(ctx context.Context) error {
	seed := a.Config.Seed
	if seed.APIURL == "" || seed.Token == "" {
		return nil
	}
	if _, err := a.Store.Get(cluster.DefaultID); err == nil {
		return nil
	} else if !errors.Is(err, cluster.ErrNotFound) {
		return err
	}

	host, port, err := cluster.SplitEndpoint(seed.APIURL)
	if err != nil {
		return fmt.Errorf("invalid seed api url: %w", err)
	}
	d := cluster.Descriptor{
		ID:        cluster.DefaultID,
		Host:      host,
		Port:      port,
		Token:     seed.Token,
		TLSPolicy: cluster.TLSPolicyFromVerify(a.Config.Kubernetes.VerifySSL),
	}
	if err := a.Store.Put(ctx, d); err != nil {
		return fmt.Errorf("failed to seed default cluster: %w", err)
	}
	log.FromContext(ctx).Info("seeded default cluster from environment", "endpoint", d.Endpoint())
	return nil
}

// Close releases backend resources.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
