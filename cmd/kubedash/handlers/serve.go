package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kubedash/internal/api/rest"
	"github.com/imamik/kubedash/internal/cluster"
)

// Serve runs the REST API until ctx is cancelled or the process receives
// SIGINT or SIGTERM, then drains in-flight requests.
func Serve(ctx context.Context, opts Options, version string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, app, err := loadApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	cfg := app.Config
	handler := rest.NewHandler(app.Credentials, app.Rollouts,
		rest.WithVersion("kubedash", version),
		rest.WithDefaultTLSPolicy(cluster.TLSPolicyFromVerify(cfg.Kubernetes.VerifySSL)),
		rest.WithProvisionDefaults(cfg.Provisioning.ServiceAccount, cfg.Provisioning.Namespace),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           rest.NewRouter(handler, app.Logger.WithName("http"), cfg.Server.CORSOrigins),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	return serve(ctx, srv, cfg.Server.ShutdownTimeout, app.Store.Len())
}

func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, clusters int) error {
	logger := log.FromContext(ctx)

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving", "address", ln.Addr().String(), "clusters", clusters)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	})
	return g.Wait()
}
