package mutate

import (
	"context"

	"github.com/koustreak/s3hub/internal/errs"
	"github.com/koustreak/s3hub/internal/filestore"
	"github.com/koustreak/s3hub/internal/listing"
)

// DeleteEntries removes the given entries from the backend. A folder
// entry is expanded to every key under its prefix and deleted in
// batches of at most filestore.DeleteBatchLimit keys; a file entry
// deletes its single key.
//
// Progress is reported after each entry. The batch is not atomic: a
// failure leaves already-deleted entries deleted and aborts the rest
// with an *errs.BatchError. Every affected prefix's cache entry is
// invalidated rather than patched, so the next listing reflects
// backend truth instead of what we believe was deleted.
func (c *Coordinator) DeleteEntries(ctx context.Context, conn listing.Connection, bucket string, entries []listing.Entry, progress ProgressFunc) error {
	total := len(entries)
	if total == 0 {
		return nil
	}

	affected := make(map[listing.CacheKey]struct{})
	completed := 0

	invalidateAffected := func() {
		for key := range affected {
			c.listings.Invalidate(key)
		}
	}

	for _, entry := range entries {
		affected[listing.CacheKey{
			ConnectionID: conn.ID,
			Bucket:       bucket,
			Prefix:       parentPrefix(entry.Key, entry.IsFolder),
		}] = struct{}{}

		if entry.IsFolder {
			// The folder's own listing is gone too.
			affected[listing.CacheKey{ConnectionID: conn.ID, Bucket: bucket, Prefix: entry.Key}] = struct{}{}

			if err := c.deleteFolder(ctx, conn, bucket, entry.Key); err != nil {
				invalidateAffected()
				return &errs.BatchError{Completed: completed, Total: total, Cause: err}
			}
		} else {
			if err := conn.Store.RemoveObjects(ctx, bucket, []string{entry.Key}); err != nil {
				invalidateAffected()
				return &errs.BatchError{Completed: completed, Total: total, Cause: err}
			}
		}

		completed++
		c.report(progress, completed, total)
	}

	invalidateAffected()
	return nil
}

// deleteFolder lists everything under prefix and removes it in chunks
// of at most DeleteBatchLimit keys, a hard backend limit.
func (c *Coordinator) deleteFolder(ctx context.Context, conn listing.Connection, bucket, prefix string) error {
	objects, err := conn.Store.ListObjects(ctx, bucket, filestore.ListOptions{Prefix: prefix})
	if err != nil {
		return err
	}

	keys := make([]string, len(objects))
	for i, obj := range objects {
		keys[i] = obj.Key
	}

	for start := 0; start < len(keys); start += filestore.DeleteBatchLimit {
		end := start + filestore.DeleteBatchLimit
		if end > len(keys) {
			end = len(keys)
		}
		if err := conn.Store.RemoveObjects(ctx, bucket, keys[start:end]); err != nil {
			return err
		}
	}
	return nil
}
