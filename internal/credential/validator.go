package credential

import (
	"context"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kubedash/internal/cluster"
	"github.com/imamik/kubedash/internal/k8s"
	"github.com/imamik/kubedash/internal/metrics"
)

// DefaultValidationTimeout bounds one validation probe.
const DefaultValidationTimeout = 10 * time.Second

// TokenValidator decides whether a descriptor's credential is accepted.
type TokenValidator interface {
	Validate(ctx context.Context, d cluster.Descriptor) bool
}

// Validator proves a credential with one read-only request against the
// namespace collection.
type Validator struct {
	newClient k8s.ClientFactory
	timeout   time.Duration
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithClientFactory replaces the Kubernetes client constructor.
func WithClientFactory(f k8s.ClientFactory) ValidatorOption {
	return func(v *Validator) {
		v.newClient = f
	}
}

// NewValidator returns a Validator bounded by timeout. A non-positive
// timeout uses DefaultValidationTimeout.
func NewValidator(timeout time.Duration, opts ...ValidatorOption) *Validator {
	if timeout <= 0 {
		timeout = DefaultValidationTimeout
	}
	v := &Validator{newClient: k8s.NewClient, timeout: timeout}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate reports whether the control plane accepts d.Token. Every failure,
// including network errors and timeouts, yields false.
func (v *Validator) Validate(ctx context.Context, d cluster.Descriptor) bool {
	logger := log.FromContext(ctx).WithValues("cluster", d.ID, "endpoint", d.Endpoint())

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	valid := v.probe(ctx, d, logger.V(1).Info)
	metrics.RecordValidation(valid)
	return valid
}

func (v *Validator) probe(ctx context.Context, d cluster.Descriptor, debug func(string, ...any)) bool {
	if d.Token == "" {
		debug("credential rejected", "reason", "empty token")
		return false
	}

	client, err := v.newClient(d, v.timeout)
	if err != nil {
		debug("credential rejected", "reason", err.Error())
		return false
	}
	if err := client.ProbeNamespaces(ctx); err != nil {
		debug("credential rejected", "reason", err.Error())
		return false
	}
	return true
}
