// Package filestore defines the unified interface for object storage backends.
//
// All providers (AWS S3, Storj, MinIO, …) implement the Store interface.
// Callers depend only on this package — never on a specific provider package.
//
// Usage:
//
//	cfg := filestore.AWSConfig("AKIA…", "secret", "eu-west-1")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	objects, err := store.ListObjects(ctx, "media", filestore.ListOptions{Prefix: "photos/"})
package filestore

import (
	"context"
	"io"
	"time"
)

// DeleteBatchLimit is the maximum number of keys a single RemoveObjects
// call may carry. S3-compatible backends reject larger batches.
const DeleteBatchLimit = 1000

// Store is the single interface all object storage providers must implement.
type Store interface {
	// Ping verifies the storage backend is reachable with the configured
	// credentials. It doubles as credential validation at login.
	Ping(ctx context.Context) error

	// Close releases any held resources (connections, goroutines, etc.).
	Close() error

	// ListBuckets returns all buckets accessible with the configured credentials.
	ListBuckets(ctx context.Context) ([]BucketInfo, error)

	// ListObjects returns all object keys in bucket that match opts.
	ListObjects(ctx context.Context, bucket string, opts ListOptions) ([]ObjectInfo, error)

	// StatObject returns metadata for the object at key inside bucket
	// without downloading its content.
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// PutObject writes size bytes from r to the object at key inside bucket.
	// A size of 0 with an empty reader creates a zero-length object, which
	// is how folder marker keys are made.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error

	// RemoveObjects deletes the given keys from bucket in one bulk call.
	// len(keys) must not exceed DeleteBatchLimit; callers chunk larger sets.
	RemoveObjects(ctx context.Context, bucket string, keys []string) error

	// PresignGet returns a time-limited URL that allows anyone to download
	// the object at key inside bucket without credentials.
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)

	// PresignPut returns a time-limited URL that accepts an HTTP PUT of the
	// object's content without credentials.
	PresignPut(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}
