// Package store keeps the cluster descriptors kubedash knows about.
//
// The Store is an ordered map from cluster id to descriptor. Every mutation
// writes the complete snapshot through a Backend before the in-memory state
// changes, so a failed write leaves both the backend and memory as they were.
// The most recently written descriptor is the default cluster.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kubedash/internal/cluster"
	"github.com/imamik/kubedash/internal/metrics"
)

// Backend persists store snapshots. Save receives descriptors in insertion
// order and must replace whatever was stored before.
type Backend interface {
	Load(ctx context.Context) ([]cluster.Descriptor, error)
	Save(ctx context.Context, descriptors []cluster.Descriptor) error
}

// Store is safe for concurrent use. A single lock serialises every
// read-modify-persist sequence.
type Store struct {
	backend Backend

	mu      sync.RWMutex
	order   []string
	entries map[string]cluster.Descriptor
}

// New loads the backend's snapshot and returns a Store over it.
// Duplicate ids in the snapshot keep the last occurrence.
func New(ctx context.Context, backend Backend) (*Store, error) {
	descriptors, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %w", cluster.ErrPersistence, err)
	}

	s := &Store{
		backend: backend,
		entries: make(map[string]cluster.Descriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		s.order = moveToEnd(s.order, d.ID)
		s.entries[d.ID] = d
	}
	metrics.SetStoredClusters(len(s.order))
	return s, nil
}

// Put inserts or wholly replaces the descriptor under d.ID. A replaced id
// moves to the end of the insertion order and becomes the default.
func (s *Store) Put(ctx context.Context, d cluster.Descriptor) error {
	if d.TLSPolicy == "" {
		d.TLSPolicy = cluster.TLSInsecure
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %w", cluster.ErrInvalidArgument, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order := moveToEnd(slices.Clone(s.order), d.ID)
	entries := make(map[string]cluster.Descriptor, len(order))
	for id, e := range s.entries {
		entries[id] = e
	}
	entries[d.ID] = d

	if err := s.commit(ctx, order, entries); err != nil {
		return err
	}
	log.FromContext(ctx).V(1).Info("stored cluster descriptor", "cluster", d.ID, "endpoint", d.Endpoint())
	return nil
}

// Delete removes the descriptor under id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("%w: %q", cluster.ErrNotFound, id)
	}

	order := slices.DeleteFunc(slices.Clone(s.order), func(v string) bool { return v == id })
	entries := make(map[string]cluster.Descriptor, len(order))
	for _, k := range order {
		entries[k] = s.entries[k]
	}

	if err := s.commit(ctx, order, entries); err != nil {
		return err
	}
	log.FromContext(ctx).V(1).Info("deleted cluster descriptor", "cluster", id)
	return nil
}

// commit persists the candidate state and swaps it in. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, order []string, entries map[string]cluster.Descriptor) error {
	snapshot := make([]cluster.Descriptor, 0, len(order))
	for _, id := range order {
		snapshot = append(snapshot, entries[id])
	}

	if err := s.backend.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("%w: %w", cluster.ErrPersistence, err)
	}

	s.order = order
	s.entries = entries
	metrics.SetStoredClusters(len(order))
	return nil
}

// Get returns the full descriptor, including its credential.
func (s *Store) Get(id string) (cluster.Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.entries[id]
	if !ok {
		return cluster.Descriptor{}, fmt.Errorf("%w: %q", cluster.ErrNotFound, id)
	}
	return d, nil
}

// List returns summaries in insertion order.
func (s *Store) List() []cluster.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]cluster.Summary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id].Summary())
	}
	return out
}

// Len returns the number of stored descriptors.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// DefaultClusterID returns the id of the most recently written descriptor.
func (s *Store) DefaultClusterID() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 {
		return "", fmt.Errorf("%w: store is empty", cluster.ErrNotFound)
	}
	return s.order[len(s.order)-1], nil
}

// ResolveClusterID returns id when set, otherwise the default cluster, and
// cluster.DefaultID when the store is empty.
func (s *Store) ResolveClusterID(id string) string {
	if id != "" {
		return id
	}
	if def, err := s.DefaultClusterID(); err == nil {
		return def
	}
	return cluster.DefaultID
}

func moveToEnd(order []string, id string) []string {
	order = slices.DeleteFunc(order, func(v string) bool { return v == id })
	return append(order, id)
}
