package credential

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kubedash/internal/cluster"
)

// Store is the persistence the Service writes through.
type Store interface {
	Put(ctx context.Context, d cluster.Descriptor) error
	Get(id string) (cluster.Descriptor, error)
	List() []cluster.Summary
	Delete(ctx context.Context, id string) error
}

// Service is the credential management facade used by the API and CLI.
type Service struct {
	store       Store
	provisioner *Provisioner
	validator   TokenValidator
	now         func() time.Time
}

// NewService returns a Service.
func NewService(store Store, provisioner *Provisioner, validator TokenValidator) *Service {
	return &Service{
		store:       store,
		provisioner: provisioner,
		validator:   validator,
		now:         time.Now,
	}
}

// Provision runs the bootstrap protocol and stores the resulting descriptor
// under req.ClusterID, replacing any previous entry. It returns the token.
func (s *Service) Provision(ctx context.Context, req ProvisionRequest) (string, error) {
	req = req.Normalize()

	token, err := s.provisioner.Provision(ctx, req)
	if err != nil {
		return "", err
	}

	d := cluster.Descriptor{
		ID:        req.ClusterID,
		Host:      req.Host,
		Port:      req.Port,
		Token:     token,
		TLSPolicy: req.TLSPolicy,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Put(ctx, d); err != nil {
		return "", err
	}

	log.FromContext(ctx).Info("cluster provisioned", "cluster", d.ID, "endpoint", d.Endpoint())
	return token, nil
}

// SetCredential stores a caller-supplied credential after validating it.
// A rejected credential returns cluster.ErrValidationFailed and leaves the
// store untouched.
func (s *Service) SetCredential(ctx context.Context, d cluster.Descriptor) error {
	d.ID = strings.TrimSpace(d.ID)
	d.Host = strings.TrimSpace(d.Host)
	if d.Port == 0 {
		d.Port = cluster.DefaultAPIPort
	}
	if d.TLSPolicy == "" {
		d.TLSPolicy = cluster.TLSInsecure
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now().UTC()
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %w", cluster.ErrInvalidArgument, err)
	}

	if !s.validator.Validate(ctx, d) {
		return fmt.Errorf("%w: %s rejected the credential for cluster %q", cluster.ErrValidationFailed, d.APIURL(), d.ID)
	}

	if err := s.store.Put(ctx, d); err != nil {
		return err
	}
	log.FromContext(ctx).Info("cluster credential stored", "cluster", d.ID, "endpoint", d.Endpoint())
	return nil
}

// ListClusters returns all stored clusters in insertion order.
func (s *Service) ListClusters() []cluster.Summary {
	return s.store.List()
}

// GetCluster returns one cluster's summary.
func (s *Service) GetCluster(id string) (cluster.Summary, error) {
	d, err := s.store.Get(id)
	if err != nil {
		return cluster.Summary{}, err
	}
	return d.Summary(), nil
}

// DeleteCluster forgets a cluster.
func (s *Service) DeleteCluster(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	log.FromContext(ctx).Info("cluster deleted", "cluster", id)
	return nil
}

// TestConnection re-validates the stored credential of a cluster.
func (s *Service) TestConnection(ctx context.Context, id string) (bool, error) {
	d, err := s.store.Get(id)
	if err != nil {
		return false, err
	}
	return s.validator.Validate(ctx, d), nil
}
