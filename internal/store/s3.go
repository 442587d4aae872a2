package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/kubedash/internal/cluster"
	"github.com/imamik/kubedash/internal/platform/s3"
)

// DefaultObjectKey is the object the S3 backend reads and writes.
const DefaultObjectKey = "kubedash/clusters.yaml"

// ObjectStore is the subset of the S3 client the backend needs.
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key string, data []byte) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

var _ ObjectStore = (*s3.Client)(nil)

// S3Backend keeps the snapshot as one YAML object in a bucket.
type S3Backend struct {
	client ObjectStore
	bucket string
	key    string

	// bucketReady is only touched from Save, which the Store serialises.
	bucketReady bool
}

// NewS3Backend returns a backend writing bucket/key. An empty key uses
// DefaultObjectKey.
func NewS3Backend(client ObjectStore, bucket, key string) *S3Backend {
	if key == "" {
		key = DefaultObjectKey
	}
	return &S3Backend{client: client, bucket: bucket, key: key}
}

// Load reads the snapshot. A missing object or bucket is an empty store.
func (b *S3Backend) Load(ctx context.Context) ([]cluster.Descriptor, error) {
	data, err := b.client.GetObject(ctx, b.bucket, b.key)
	if err != nil {
		if errors.Is(err, s3.ErrObjectNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return decodeDocument(data)
}

// Save uploads the snapshot, creating the bucket on first use.
func (b *S3Backend) Save(ctx context.Context, descriptors []cluster.Descriptor) error {
	data, err := encodeDocument(descriptors)
	if err != nil {
		return err
	}

	if !b.bucketReady {
		if err := b.client.EnsureBucket(ctx, b.bucket); err != nil {
			return fmt.Errorf("failed to prepare bucket %s: %w", b.bucket, err)
		}
		b.bucketReady = true
	}

	return b.client.PutObject(ctx, b.bucket, b.key, data)
}
