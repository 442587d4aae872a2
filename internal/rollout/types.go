package rollout

import (
	"fmt"
	"strings"
	"time"

	"github.com/imamik/kubedash/internal/cluster"
	"github.com/imamik/kubedash/internal/k8s"
)

// Defaults for polling.
const (
	DefaultDeadline = 30 * time.Second
	DefaultInterval = time.Second
	MaxDeadline     = 30 * time.Minute
)

// Phase is the terminal state of a rollout.
type Phase string

const (
	PhaseSuccess Phase = "success"
	PhaseTimeout Phase = "timeout"
	PhaseFailed  Phase = "failed"
)

// ReasonRequestRejected is the failure reason when the restart patch is refused.
const ReasonRequestRejected = "request rejected"

// Target names the workload to roll out.
type Target struct {
	ClusterID string
	Kind      k8s.Kind
	Namespace string
	Name      string

	// Deadline bounds polling. Zero uses DefaultDeadline.
	Deadline time.Duration
}

// String returns kind/namespace/name.
func (t Target) String() string {
	return fmt.Sprintf("%s/%s/%s", t.Kind, t.Namespace, t.Name)
}

// Validate checks the target. Errors wrap cluster.ErrInvalidArgument.
func (t Target) Validate() error {
	var problems []string
	if _, err := k8s.ParseKind(string(t.Kind)); err != nil {
		problems = append(problems, err.Error())
	}
	if strings.TrimSpace(t.Namespace) == "" {
		problems = append(problems, "namespace is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		problems = append(problems, "name is required")
	}
	if t.Deadline < 0 || t.Deadline > MaxDeadline {
		problems = append(problems, fmt.Sprintf("deadline must be between 0 and %s", MaxDeadline))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", cluster.ErrInvalidArgument, strings.Join(problems, "; "))
	}
	return nil
}

// Outcome is the result of a rollout that reached the polling stage or was
// rejected.
type Outcome struct {
	Target   Target
	Phase    Phase
	Replicas k8s.Replicas
	Elapsed  time.Duration
	Reason   string

	// Cause is the error behind a failed outcome.
	Cause error
}

// Err returns nil for success and timeout, and an error wrapping
// cluster.ErrRolloutRejected for failed outcomes.
func (o *Outcome) Err() error {
	if o.Phase != PhaseFailed {
		return nil
	}
	if o.Cause != nil {
		return fmt.Errorf("%w: %s %s: %w", cluster.ErrRolloutRejected, o.Target, o.Reason, o.Cause)
	}
	return fmt.Errorf("%w: %s %s", cluster.ErrRolloutRejected, o.Target, o.Reason)
}

// Message returns a human readable summary.
func (o *Outcome) Message() string {
	switch o.Phase {
	case PhaseSuccess:
		return fmt.Sprintf("rollout of %s completed", o.Target)
	case PhaseTimeout:
		return fmt.Sprintf("rollout of %s did not complete within %s", o.Target, o.Elapsed)
	default:
		return fmt.Sprintf("rollout of %s failed: %s", o.Target, o.Reason)
	}
}
