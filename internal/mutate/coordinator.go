// Package mutate applies create / delete / upload operations against
// the storage backend and reconciles the listing cache afterwards:
// incremental patch where the shape of the change is known locally,
// invalidate-then-refetch where it is not.
package mutate

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/koustreak/s3hub/internal/errs"
	"github.com/koustreak/s3hub/internal/listing"
	"github.com/koustreak/s3hub/internal/logger"
)

// Progress reports how far a batch has come. Completed/Total is
// monotonically non-decreasing and reaches Total exactly when every
// item processed successfully.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// ProgressFunc receives a Progress after each unit of work. May be nil.
type ProgressFunc func(Progress)

// Options configures a Coordinator.
type Options struct {
	SignTTL    time.Duration // write URL validity, listing.DefaultSignTTL when zero
	HTTPClient *http.Client  // client for presigned PUT streams
	Logger     *logger.Logger
}

// Coordinator executes mutations and keeps the listing cache
// consistent. Batches are not atomic: a failure partway leaves earlier
// items applied and aborts the rest, surfacing an *errs.BatchError
// with the completed count.
type Coordinator struct {
	listings *listing.Service
	sign     time.Duration
	client   *http.Client
	log      *logger.Logger

	now func() time.Time // stubbed in tests
}

// NewCoordinator returns a Coordinator reconciling against listings.
func NewCoordinator(listings *listing.Service, opts Options) *Coordinator {
	if opts.SignTTL <= 0 {
		opts.SignTTL = listing.DefaultSignTTL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = logger.New(nil)
	}
	return &Coordinator{
		listings: listings,
		sign:     opts.SignTTL,
		client:   opts.HTTPClient,
		log:      opts.Logger,
		now:      time.Now,
	}
}

// CreateFolder writes a zero-length marker object at prefix+name+"/"
// and patches the cached listing incrementally — the shape of the
// change is fully known, so no refetch is needed. The name must be
// non-empty after trimming.
func (c *Coordinator) CreateFolder(ctx context.Context, conn listing.Connection, bucket, prefix, name string) (listing.Entry, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return listing.Entry{}, errs.New(errs.ErrKindInvalidInput, "folder name must not be empty")
	}

	folderKey := prefix + trimmed + "/"
	if err := conn.Store.PutObject(ctx, bucket, folderKey, strings.NewReader(""), 0, ""); err != nil {
		return listing.Entry{}, err
	}

	entry := listing.NewFolder(prefix, trimmed)
	key := listing.CacheKey{ConnectionID: conn.ID, Bucket: bucket, Prefix: prefix}
	if err := c.listings.AppendIncremental(key, entry); err != nil {
		// The folder exists on the backend; a cache patch failure only
		// costs a refetch later.
		c.log.ErrorWith("incremental cache update failed", err, map[string]interface{}{
			"prefix": prefix,
		})
	}

	return entry, nil
}

// parentPrefix returns the prefix containing key: "a/b/c.jpg" → "a/b/",
// folder "a/b/" → "a/".
func parentPrefix(key string, isFolder bool) string {
	if isFolder {
		key = strings.TrimSuffix(key, "/")
	}
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return ""
	}
	return key[:i+1]
}

func (c *Coordinator) report(fn ProgressFunc, completed, total int) {
	if fn != nil {
		fn(Progress{Completed: completed, Total: total})
	}
}
