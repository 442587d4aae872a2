package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/imamik/kubedash/internal/k8s"
	"github.com/imamik/kubedash/internal/rollout"
)

// WorkloadOptions name a workload on a stored cluster.
type WorkloadOptions struct {
	ClusterID string
	Kind      string
	Namespace string
	Name      string
	Timeout   time.Duration
}

func (o WorkloadOptions) target() (rollout.Target, error) {
	kind, err := k8s.ParseKind(o.Kind)
	if err != nil {
		return rollout.Target{}, err
	}
	return rollout.Target{
		ClusterID: o.ClusterID,
		Kind:      kind,
		Namespace: o.Namespace,
		Name:      o.Name,
		Deadline:  o.Timeout,
	}, nil
}

// rolloutResult is the structured output of the rollout command.
type rolloutResult struct {
	Status    string        `json:"status"`
	Message   string        `json:"message"`
	ClusterID string        `json:"cluster_id"`
	Workload  string        `json:"workload"`
	Replicas  *k8s.Replicas `json:"replicas,omitempty"`
	Duration  float64       `json:"duration"`
}

// Rollout restarts a workload and, unless noWait is set, waits for it to
// converge. Timeout and rejection are returned as errors.
func Rollout(ctx context.Context, w io.Writer, opts Options, wl WorkloadOptions, noWait bool) error {
	if err := validateOutput(opts.Output); err != nil {
		return err
	}
	target, err := wl.target()
	if err != nil {
		return err
	}

	ctx, app, err := loadApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	if noWait {
		at, err := app.Rollouts.Restart(ctx, target)
		if err != nil {
			return err
		}
		result := map[string]string{"status": "restarted", "workload": target.String(), "restarted_at": at.UTC().Format(time.RFC3339)}
		if done, err := printStructured(w, opts.Output, result); done {
			return err
		}
		_, err = fmt.Fprintf(w, "%s restarted %s\n", okStyle.Render(checkMark), target)
		return err
	}

	outcome, err := app.Rollouts.Rollout(ctx, target)
	if err != nil {
		return err
	}
	return reportOutcome(w, opts.Output, outcome)
}

func reportOutcome(w io.Writer, format string, o *rollout.Outcome) error {
	result := rolloutResult{
		Status:    string(o.Phase),
		Message:   o.Message(),
		ClusterID: o.Target.ClusterID,
		Workload:  o.Target.String(),
		Duration:  o.Elapsed.Seconds(),
	}
	if o.Phase != rollout.PhaseFailed {
		replicas := o.Replicas
		result.Replicas = &replicas
	}

	done, err := printStructured(w, format, result)
	if err != nil {
		return err
	}
	if !done {
		if _, err := io.WriteString(w, renderOutcome(o)); err != nil {
			return err
		}
	}

	switch o.Phase {
	case rollout.PhaseSuccess:
		return nil
	case rollout.PhaseTimeout:
		return errors.New(o.Message())
	default:
		return o.Err()
	}
}

// Status prints the status projection of a workload.
func Status(ctx context.Context, w io.Writer, opts Options, wl WorkloadOptions) error {
	if err := validateOutput(opts.Output); err != nil {
		return err
	}
	target, err := wl.target()
	if err != nil {
		return err
	}

	ctx, app, err := loadApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	status, err := app.Rollouts.Status(ctx, target)
	if err != nil {
		return err
	}
	if done, err := printStructured(w, opts.Output, status); done {
		return err
	}
	_, err = io.WriteString(w, renderStatus(status))
	return err
}
