// Package minio provides a minio-go implementation of filestore.Store.
// It speaks to any S3-compatible backend: AWS S3, Storj's gateway, or a
// local MinIO server in tests.
//
// Usage:
//
//	cfg := filestore.StorjConfig("access", "secret")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
package minio

import (
	"context"
	"io"
	"time"

	"github.com/koustreak/s3hub/internal/errs"
	"github.com/koustreak/s3hub/internal/filestore"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Driver is a minio-go implementation of filestore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
}

// New connects to the backend described by cfg and returns a Driver.
// It calls Ping to validate the credentials before returning, so a
// successful New doubles as a login check.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	lookup := miniogo.BucketLookupDNS
	if cfg.PathStyle() {
		lookup = miniogo.BucketLookupPath
	}

	client, err := miniogo.New(cfg.Host(), &miniogo.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create s3 client", err)
	}

	d := &Driver{client: client}

	if err := d.Ping(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

// --- filestore.Store implementation ---

// Ping verifies the backend is reachable by listing buckets.
func (d *Driver) Ping(ctx context.Context) error {
	_, err := d.client.ListBuckets(ctx)
	if err != nil {
		return mapError(err, errs.ErrKindConnectionFailed, "ping failed")
	}
	return nil
}

// Close is a no-op — the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

// ListBuckets returns all buckets accessible with the configured credentials.
func (d *Driver) ListBuckets(ctx context.Context) ([]filestore.BucketInfo, error) {
	raw, err := d.client.ListBuckets(ctx)
	if err != nil {
		return nil, mapError(err, errs.ErrKindListingFailed, "failed to list buckets")
	}

	buckets := make([]filestore.BucketInfo, len(raw))
	for i, b := range raw {
		buckets[i] = filestore.BucketInfo{
			Name:      b.Name,
			CreatedAt: b.CreationDate,
		}
	}
	return buckets, nil
}

// ListObjects returns all objects in bucket that match opts.
func (d *Driver) ListObjects(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	listOpts := miniogo.ListObjectsOptions{
		Prefix:    opts.Prefix,
		Recursive: true,
	}

	var results []filestore.ObjectInfo
	count := 0

	for obj := range d.client.ListObjects(ctx, bucket, listOpts) {
		if obj.Err != nil {
			return nil, mapError(obj.Err, errs.ErrKindListingFailed, "failed to list objects")
		}

		results = append(results, filestore.ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ContentType:  obj.ContentType,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})

		count++
		if opts.Limit > 0 && count >= opts.Limit {
			break
		}
	}

	return results, nil
}

// StatObject returns metadata for the object at key inside bucket
// without downloading its content.
func (d *Driver) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	stat, err := d.client.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, errs.ErrKindBackendFailed, "failed to stat object")
	}

	return &filestore.ObjectInfo{
		Key:          stat.Key,
		Size:         stat.Size,
		ContentType:  stat.ContentType,
		ETag:         stat.ETag,
		LastModified: stat.LastModified,
	}, nil
}

// PutObject writes size bytes from r to the object at key inside bucket.
func (d *Driver) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	_, err := d.client.PutObject(ctx, bucket, key, r, size, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return mapError(err, errs.ErrKindBackendFailed, "failed to put object")
	}
	return nil
}

// RemoveObjects deletes the given keys from bucket in one bulk call.
func (d *Driver) RemoveObjects(ctx context.Context, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if len(keys) > filestore.DeleteBatchLimit {
		return errs.New(errs.ErrKindInvalidInput, "delete batch exceeds backend limit")
	}

	objectsCh := make(chan miniogo.ObjectInfo, len(keys))
	for _, key := range keys {
		objectsCh <- miniogo.ObjectInfo{Key: key}
	}
	close(objectsCh)

	for rmErr := range d.client.RemoveObjects(ctx, bucket, objectsCh, miniogo.RemoveObjectsOptions{}) {
		if rmErr.Err != nil {
			return mapError(rmErr.Err, errs.ErrKindBackendFailed, "failed to remove objects")
		}
	}
	return nil
}

// PresignGet returns a time-limited public download URL for the object.
func (d *Driver) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := d.client.PresignedGetObject(ctx, bucket, key, ttl, nil)
	if err != nil {
		return "", mapError(err, errs.ErrKindBackendFailed, "failed to presign get")
	}
	return u.String(), nil
}

// PresignPut returns a time-limited URL that accepts an HTTP PUT of the
// object's content.
func (d *Driver) PresignPut(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := d.client.PresignedPutObject(ctx, bucket, key, ttl)
	if err != nil {
		return "", mapError(err, errs.ErrKindBackendFailed, "failed to presign put")
	}
	return u.String(), nil
}
