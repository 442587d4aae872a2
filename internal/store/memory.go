package store

import (
	"context"
	"slices"
	"sync"

	"github.com/imamik/kubedash/internal/cluster"
)

// MemoryBackend keeps the snapshot in process memory. Nothing survives a restart.
type MemoryBackend struct {
	mu       sync.Mutex
	snapshot []cluster.Descriptor
}

// NewMemoryBackend returns a backend seeded with descriptors.
func NewMemoryBackend(descriptors ...cluster.Descriptor) *MemoryBackend {
	return &MemoryBackend{snapshot: slices.Clone(descriptors)}
}

func (b *MemoryBackend) Load(_ context.Context) ([]cluster.Descriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.snapshot), nil
}

func (b *MemoryBackend) Save(_ context.Context, descriptors []cluster.Descriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshot = slices.Clone(descriptors)
	return nil
}
