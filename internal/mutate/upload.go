package mutate

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/koustreak/s3hub/internal/errs"
	"github.com/koustreak/s3hub/internal/listing"
)

// File is one file to upload.
type File struct {
	// Name is the file name; the object key becomes prefix+Name, with a
	// timestamp suffix on collision with the current cached listing.
	Name string

	// ContentType is the MIME type sent with the upload.
	ContentType string

	// Size is the content length in bytes.
	Size int64

	// Content streams the file bytes.
	Content io.Reader
}

// UploadFiles streams each file to a presigned write URL. Progress is
// reported after each file; a failure aborts the remaining uploads
// with an *errs.BatchError while files already uploaded stay on the
// backend.
//
// Afterwards the destination prefix's cache entry is invalidated and a
// fresh listing is fetched and returned — sizes and signed URLs of the
// new objects are only known to the backend, so an incremental patch
// would be guesswork.
func (c *Coordinator) UploadFiles(ctx context.Context, conn listing.Connection, bucket, prefix string, files []File, progress ProgressFunc) ([]listing.Entry, error) {
	total := len(files)
	key := listing.CacheKey{ConnectionID: conn.ID, Bucket: bucket, Prefix: prefix}

	taken := make(map[string]struct{})
	if cached, ok := c.listings.Cached(key); ok {
		for _, e := range cached {
			taken[e.Key] = struct{}{}
		}
	}

	completed := 0
	for _, f := range files {
		objKey := prefix + f.Name
		if _, exists := taken[objKey]; exists {
			objKey = fmt.Sprintf("%s%s_%d", prefix, f.Name, c.now().UnixMilli())
		}

		if err := c.putPresigned(ctx, conn, bucket, objKey, f); err != nil {
			if completed > 0 {
				c.listings.Invalidate(key)
			}
			return nil, &errs.BatchError{Completed: completed, Total: total, Cause: err}
		}

		taken[objKey] = struct{}{}
		completed++
		c.report(progress, completed, total)
	}

	c.listings.Invalidate(key)
	return c.listings.GetListing(ctx, conn, bucket, prefix)
}

// putPresigned obtains a write URL and streams the file bytes to it.
// No retry: retry policy belongs to the caller.
func (c *Coordinator) putPresigned(ctx context.Context, conn listing.Connection, bucket, objKey string, f File) error {
	url, err := conn.Store.PresignPut(ctx, bucket, objKey, c.sign)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, f.Content)
	if err != nil {
		return errs.Wrap(errs.ErrKindBackendFailed, "failed to build upload request", err)
	}
	req.ContentLength = f.Size
	if f.ContentType != "" {
		req.Header.Set("Content-Type", f.ContentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errs.Wrap(errs.ErrKindBackendFailed, "upload stream failed", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		return errs.New(errs.ErrKindBackendFailed,
			fmt.Sprintf("upload rejected with status %d", resp.StatusCode))
	}
	return nil
}
