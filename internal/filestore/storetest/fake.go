// Package storetest provides a scriptable in-memory filestore.Store for
// tests in the listing and mutate packages.
package storetest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/koustreak/s3hub/internal/filestore"
)

// Fake implements filestore.Store. Behavior is overridden per test via
// the *Func fields; unset fields succeed with zero values. Every call
// is counted, and delete batches are recorded in order.
type Fake struct {
	mu sync.Mutex

	ListBucketsFunc func(ctx context.Context) ([]filestore.BucketInfo, error)
	ListFunc        func(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error)
	StatFunc        func(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error)
	PutFunc         func(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
	RemoveFunc      func(ctx context.Context, bucket string, keys []string) error
	PresignGetFunc  func(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	PresignPutFunc  func(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)

	ListCalls       int
	PutCalls        int
	RemoveCalls     int
	PresignGetCalls int
	PresignPutCalls int

	// RemovedBatches records the keys of every RemoveObjects call in
	// invocation order.
	RemovedBatches [][]string

	// PutKeys records the keys of every PutObject call in order.
	PutKeys []string
}

var _ filestore.Store = (*Fake)(nil)

func (f *Fake) Ping(ctx context.Context) error { return nil }

func (f *Fake) Close() error { return nil }

func (f *Fake) ListBuckets(ctx context.Context) ([]filestore.BucketInfo, error) {
	if f.ListBucketsFunc != nil {
		return f.ListBucketsFunc(ctx)
	}
	return nil, nil
}

func (f *Fake) ListObjects(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	f.mu.Lock()
	f.ListCalls++
	f.mu.Unlock()

	if f.ListFunc != nil {
		return f.ListFunc(ctx, bucket, opts)
	}
	return nil, nil
}

func (f *Fake) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	if f.StatFunc != nil {
		return f.StatFunc(ctx, bucket, key)
	}
	return &filestore.ObjectInfo{Key: key}, nil
}

func (f *Fake) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	f.mu.Lock()
	f.PutCalls++
	f.PutKeys = append(f.PutKeys, key)
	f.mu.Unlock()

	if f.PutFunc != nil {
		return f.PutFunc(ctx, bucket, key, r, size, contentType)
	}
	return nil
}

func (f *Fake) RemoveObjects(ctx context.Context, bucket string, keys []string) error {
	f.mu.Lock()
	f.RemoveCalls++
	f.RemovedBatches = append(f.RemovedBatches, append([]string(nil), keys...))
	f.mu.Unlock()

	if f.RemoveFunc != nil {
		return f.RemoveFunc(ctx, bucket, keys)
	}
	return nil
}

func (f *Fake) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	f.PresignGetCalls++
	f.mu.Unlock()

	if f.PresignGetFunc != nil {
		return f.PresignGetFunc(ctx, bucket, key, ttl)
	}
	return fmt.Sprintf("https://signed.example/%s/%s", bucket, key), nil
}

func (f *Fake) PresignPut(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	f.PresignPutCalls++
	f.mu.Unlock()

	if f.PresignPutFunc != nil {
		return f.PresignPutFunc(ctx, bucket, key, ttl)
	}
	return fmt.Sprintf("https://signed.example/put/%s/%s", bucket, key), nil
}
