package rollout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kubedash/internal/cluster"
	"github.com/imamik/kubedash/internal/k8s"
	"github.com/imamik/kubedash/internal/metrics"
)

// Clusters resolves cluster ids to descriptors.
type Clusters interface {
	Get(id string) (cluster.Descriptor, error)
	ResolveClusterID(id string) string
}

// Workloads is the Kubernetes surface a rollout needs.
type Workloads interface {
	RestartWorkload(ctx context.Context, kind k8s.Kind, namespace, name string, at time.Time) error
	GetWorkloadStatus(ctx context.Context, kind k8s.Kind, namespace, name string) (*k8s.WorkloadStatus, error)
}

// ClientFactory builds a Workloads client for a descriptor.
type ClientFactory func(d cluster.Descriptor) (Workloads, error)

// Controller runs rollouts. It holds no per-rollout state, so one Controller
// serves any number of concurrent rollouts.
type Controller struct {
	clusters  Clusters
	newClient ClientFactory
	interval  time.Duration
	deadline  time.Duration
	now       func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithDefaultDeadline sets the deadline for targets that carry none.
func WithDefaultDeadline(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 && d <= MaxDeadline {
			c.deadline = d
		}
	}
}

// WithClientFactory replaces the Kubernetes client constructor.
func WithClientFactory(f ClientFactory) Option {
	return func(c *Controller) {
		c.newClient = f
	}
}

// WithRequestTimeout bounds each Kubernetes request made by the default
// client factory.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.newClient = defaultClientFactory(d)
	}
}

func defaultClientFactory(timeout time.Duration) ClientFactory {
	return func(d cluster.Descriptor) (Workloads, error) {
		return k8s.NewClient(d, timeout)
	}
}

// NewController returns a Controller.
func NewController(clusters Clusters, opts ...Option) *Controller {
	c := &Controller{
		clusters:  clusters,
		newClient: defaultClientFactory(k8s.DefaultTimeout),
		interval:  DefaultInterval,
		deadline:  DefaultDeadline,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type state int

const (
	stateRequesting state = iota
	statePolling
	stateDone
)

func (s state) String() string {
	switch s {
	case stateRequesting:
		return "requesting"
	case statePolling:
		return "polling"
	default:
		return "done"
	}
}

// run is the state of one rollout.
type run struct {
	c        *Controller
	target   Target
	client   Workloads
	logger   logr.Logger
	state    state
	accepted time.Time
	outcome  *Outcome
}

// Rollout restarts the target and polls it until it converges or the
// deadline passes. Success, timeout and rejection are all reported through
// the Outcome; the error is reserved for invalid targets, unknown clusters,
// client construction failures and cancellation of ctx.
func (c *Controller) Rollout(ctx context.Context, target Target) (*Outcome, error) {
	target, client, err := c.prepare(target)
	if err != nil {
		return nil, err
	}

	r := &run{
		c:      c,
		target: target,
		client: client,
		logger: log.FromContext(ctx).WithValues("cluster", target.ClusterID, "workload", target.String()),
		state:  stateRequesting,
	}
	for r.state != stateDone {
		if err := r.step(ctx); err != nil {
			r.logger.Info("rollout cancelled", "state", r.state.String(), "error", err.Error())
			return nil, err
		}
	}

	o := r.outcome
	metrics.RecordRollout(string(target.Kind), string(o.Phase), o.Elapsed)
	r.logger.Info("rollout finished", "phase", string(o.Phase), "elapsed", o.Elapsed.String(),
		"ready", o.Replicas.Ready, "available", o.Replicas.Available, "desired", o.Replicas.Spec)
	return o, nil
}

func (r *run) step(ctx context.Context) error {
	switch r.state {
	case stateRequesting:
		return r.request(ctx)
	case statePolling:
		return r.poll(ctx)
	default:
		return nil
	}
}

func (r *run) request(ctx context.Context) error {
	at := r.c.now()
	if err := r.client.RestartWorkload(ctx, r.target.Kind, r.target.Namespace, r.target.Name, at); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.outcome = &Outcome{Target: r.target, Phase: PhaseFailed, Reason: ReasonRequestRejected, Cause: err}
		r.state = stateDone
		return nil
	}

	r.logger.V(1).Info("restart accepted")
	r.accepted = at
	r.state = statePolling
	return nil
}

func (r *run) poll(ctx context.Context) error {
	// The deadline runs from the instant the restart was accepted and also
	// bounds each in-flight status read.
	pollCtx, cancel := context.WithDeadline(ctx, r.accepted.Add(r.target.Deadline))
	defer cancel()
	ticker := time.NewTicker(r.c.interval)
	defer ticker.Stop()

	var last k8s.Replicas
	for {
		status, err := r.client.GetWorkloadStatus(pollCtx, r.target.Kind, r.target.Namespace, r.target.Name)
		if err != nil {
			r.logger.V(1).Info("status read failed, retrying", "error", err.Error())
		} else {
			last = status.Replicas
			if elapsed := r.c.now().Sub(r.accepted); last.Converged() && elapsed < r.target.Deadline {
				r.outcome = &Outcome{
					Target:   r.target,
					Phase:    PhaseSuccess,
					Replicas: last,
					Elapsed:  elapsed,
				}
				r.state = stateDone
				return nil
			}
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if pollCtx.Err() != nil {
			r.timeout(last)
			return nil
		}

		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.timeout(last)
			return nil
		case <-ticker.C:
		}
	}
}

func (r *run) timeout(last k8s.Replicas) {
	r.outcome = &Outcome{
		Target:   r.target,
		Phase:    PhaseTimeout,
		Replicas: last,
		Elapsed:  r.target.Deadline,
	}
	r.state = stateDone
}

// Restart patches the restart annotation without waiting for convergence.
// It returns the restart timestamp. Rejection wraps cluster.ErrRolloutRejected.
func (c *Controller) Restart(ctx context.Context, target Target) (time.Time, error) {
	target, client, err := c.prepare(target)
	if err != nil {
		return time.Time{}, err
	}

	at := c.now()
	if err := client.RestartWorkload(ctx, target.Kind, target.Namespace, target.Name, at); err != nil {
		if ctx.Err() != nil {
			return time.Time{}, ctx.Err()
		}
		return time.Time{}, fmt.Errorf("%w: %s %s: %w", cluster.ErrRolloutRejected, target, ReasonRequestRejected, err)
	}

	log.FromContext(ctx).Info("workload restarted", "cluster", target.ClusterID, "workload", target.String())
	return at, nil
}

// Status returns the workload's current status projection.
func (c *Controller) Status(ctx context.Context, target Target) (*k8s.WorkloadStatus, error) {
	target, client, err := c.prepare(target)
	if err != nil {
		return nil, err
	}
	return client.GetWorkloadStatus(ctx, target.Kind, target.Namespace, target.Name)
}

// prepare normalizes the target, resolves its cluster and builds a client.
func (c *Controller) prepare(target Target) (Target, Workloads, error) {
	if err := target.Validate(); err != nil {
		return target, nil, err
	}
	kind, _ := k8s.ParseKind(string(target.Kind))
	target.Kind = kind
	if target.Deadline == 0 {
		target.Deadline = c.deadline
	}

	target.ClusterID = c.clusters.ResolveClusterID(target.ClusterID)
	d, err := c.clusters.Get(target.ClusterID)
	if err != nil {
		return target, nil, err
	}

	client, err := c.newClient(d)
	if err != nil {
		return target, nil, fmt.Errorf("failed to create client for cluster %q: %w", d.ID, err)
	}
	return target, client, nil
}
