package listing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/koustreak/s3hub/internal/errs"
	"github.com/koustreak/s3hub/internal/filestore"
	"github.com/koustreak/s3hub/internal/logger"
)

// DefaultTTL is how long a cached listing stays fresh.
const DefaultTTL = 7 * 24 * time.Hour

// DefaultSignTTL is the validity window of signed retrieval URLs.
const DefaultSignTTL = time.Hour

// Connection pairs a profile id with its storage backend. Core
// operations take it explicitly; there is no ambient "current
// connection" state.
type Connection struct {
	ID    string
	Store filestore.Store
}

// Options configures a Service.
type Options struct {
	Filter  Filter        // which leaf objects to surface
	TTL     time.Duration // cache freshness window, DefaultTTL when zero
	SignTTL time.Duration // signed URL validity, DefaultSignTTL when zero
	Logger  *logger.Logger
}

// Service produces sorted, de-duplicated, cached directory views over
// flat object listings.
//
// Concurrent GetListing calls for the same CacheKey are not
// serialised: both fetch, and the last write to the cache wins. The
// cache is a freshness optimisation, not a linearizable register.
type Service struct {
	cache  CacheStore
	filter Filter
	ttl    time.Duration
	sign   time.Duration
	log    *logger.Logger

	now func() time.Time // stubbed in tests
}

// NewService returns a Service over the given cache store.
func NewService(cache CacheStore, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.SignTTL <= 0 {
		opts.SignTTL = DefaultSignTTL
	}
	if opts.Logger == nil {
		opts.Logger = logger.New(nil)
	}
	return &Service{
		cache:  cache,
		filter: opts.Filter,
		ttl:    opts.TTL,
		sign:   opts.SignTTL,
		log:    opts.Logger,
		now:    time.Now,
	}
}

// GetListing returns the sorted directory view under prefix. A fresh
// cache entry is returned as-is with no backend call; otherwise the
// backend is listed, folder entries are synthesized from key prefixes,
// leaf entries are classified and signed, and the result replaces the
// cache entry.
//
// prefix must be empty or end in "/". On a backend listing failure the
// cache entry for the key, if any, is left untouched and the error is
// returned without retry.
func (s *Service) GetListing(ctx context.Context, conn Connection, bucket, prefix string) ([]Entry, error) {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		return nil, errs.New(errs.ErrKindInvalidInput, "prefix must be empty or end in '/'")
	}

	key := CacheKey{ConnectionID: conn.ID, Bucket: bucket, Prefix: prefix}

	if cached, ok, err := s.cache.Get(key); err != nil {
		s.log.ErrorWith("cache read failed", err, map[string]interface{}{"prefix": prefix})
	} else if ok && s.now().Sub(cached.Timestamp) < s.ttl {
		return cached.Items, nil
	}

	objects, err := conn.Store.ListObjects(ctx, bucket, filestore.ListOptions{Prefix: prefix})
	if err != nil {
		return nil, err
	}

	folders := make(map[string]struct{})
	var files []Entry

	for _, obj := range objects {
		rel := strings.TrimPrefix(obj.Key, prefix)
		if rel == "" {
			// The prefix marker object itself.
			continue
		}
		if i := strings.Index(rel, "/"); i >= 0 {
			folders[rel[:i]] = struct{}{}
			continue
		}
		if !s.filter.Keep(obj.Key) {
			continue
		}
		files = append(files, NewFile(obj.Key, rel, obj.Size, IsVideo(obj.Key)))
	}

	s.signAll(ctx, conn, bucket, files)

	// The consuming context may have gone away while we were waiting on
	// the backend; discard the result rather than apply it.
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "listing abandoned", err)
	}

	items := make([]Entry, 0, len(folders)+len(files))
	items = append(items, files...)
	for name := range folders {
		items = append(items, NewFolder(prefix, name))
	}

	items = dedupe(items, s.now())
	sortEntries(items)

	if err := s.cache.Put(key, items, s.now()); err != nil {
		s.log.ErrorWith("cache write failed", err, map[string]interface{}{"prefix": prefix})
	}

	return items, nil
}

// signAll resolves signed retrieval URLs for every file concurrently.
// Resolution is best effort: a failed or slow entry logs and leaves
// its SignedURL empty without aborting the others.
func (s *Service) signAll(ctx context.Context, conn Connection, bucket string, files []Entry) {
	var wg sync.WaitGroup
	for i := range files {
		wg.Add(1)
		go func(e *Entry) {
			defer wg.Done()
			url, err := conn.Store.PresignGet(ctx, bucket, e.Key, s.sign)
			if err != nil {
				s.log.ErrorWith("failed to sign retrieval url", err, map[string]interface{}{
					"key": e.Key,
				})
				return
			}
			e.SignedURL = url
		}(&files[i])
	}
	wg.Wait()
}

// Invalidate removes the cache entry for key outright; the next
// GetListing for it performs a full backend fetch. Called after any
// mutation that changed backend state under the prefix.
func (s *Service) Invalidate(key CacheKey) {
	if err := s.cache.Delete(key); err != nil {
		s.log.ErrorWith("cache invalidation failed", err, map[string]interface{}{
			"prefix": key.Prefix,
		})
	}
}

// AppendIncremental inserts entry into the cached listing for key,
// preserving the sort and uniqueness invariants, and refreshes the
// entry's timestamp. A key with nothing cached is left alone: there is
// no stale view to patch.
func (s *Service) AppendIncremental(key CacheKey, entry Entry) error {
	cached, ok, err := s.cache.Get(key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	items := dedupe(append(cached.Items, entry), s.now())
	sortEntries(items)

	return s.cache.Put(key, items, s.now())
}

// Cached returns the cached items for key regardless of freshness.
// Mutations use it to check name collisions against what the client is
// currently looking at.
func (s *Service) Cached(key CacheKey) ([]Entry, bool) {
	cached, ok, err := s.cache.Get(key)
	if err != nil || !ok {
		return nil, false
	}
	return cached.Items, true
}

// Clear drops every cache entry. Wired to shutdown / session teardown.
func (s *Service) Clear() error {
	return s.cache.Clear()
}

// PurgeExpired sweeps entries past the freshness window.
func (s *Service) PurgeExpired() (int, error) {
	return s.cache.PurgeExpired(s.ttl, s.now())
}
