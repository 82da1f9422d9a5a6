package listing

import (
	"sync"
	"time"
)

// CacheKey addresses one cached listing. Unrelated prefixes never
// share a key, so they never contend.
type CacheKey struct {
	ConnectionID string
	Bucket       string
	Prefix       string
}

// CacheEntry is the unit of cached listing state.
type CacheEntry struct {
	Key CacheKey

	// Timestamp is the wall-clock time of the fetch or the last
	// incremental update. The entry is fresh while now-Timestamp < TTL.
	Timestamp time.Time

	// Items is the full sorted listing; pagination slices it.
	Items []Entry
}

// CacheStore holds CacheEntry records keyed by CacheKey. Implementations
// must be safe for concurrent use. Two are provided: an in-memory map
// (NewMemoryCache) and a SQLite-backed store (NewSQLiteCache) that
// survives restarts.
type CacheStore interface {
	// Get returns the entry for key, or ok=false when none is stored.
	// Freshness is the caller's concern; Get returns stale entries too.
	Get(key CacheKey) (*CacheEntry, bool, error)

	// Put stores items for key, replacing any previous entry.
	Put(key CacheKey, items []Entry, at time.Time) error

	// Delete removes the entry for key outright.
	Delete(key CacheKey) error

	// Clear drops every entry. Called on the app teardown signal.
	Clear() error

	// PurgeExpired removes entries older than ttl and reports how many
	// were dropped.
	PurgeExpired(ttl time.Duration, now time.Time) (int, error)

	// Close releases any held resources.
	Close() error
}

// memoryCache is the default CacheStore: a mutex-guarded map.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[CacheKey]CacheEntry
}

// NewMemoryCache returns an in-memory CacheStore.
func NewMemoryCache() CacheStore {
	return &memoryCache{entries: make(map[CacheKey]CacheEntry)}
}

func (c *memoryCache) Get(key CacheKey) (*CacheEntry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}

	// Copy items so callers can't mutate the cached slice in place.
	out := entry
	out.Items = append([]Entry(nil), entry.Items...)
	return &out, true, nil
}

func (c *memoryCache) Put(key CacheKey, items []Entry, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = CacheEntry{
		Key:       key,
		Timestamp: at,
		Items:     append([]Entry(nil), items...),
	}
	return nil
}

func (c *memoryCache) Delete(key CacheKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

func (c *memoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[CacheKey]CacheEntry)
	return nil
}

func (c *memoryCache) PurgeExpired(ttl time.Duration, now time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	purged := 0
	for key, entry := range c.entries {
		if now.Sub(entry.Timestamp) >= ttl {
			delete(c.entries, key)
			purged++
		}
	}
	return purged, nil
}

func (c *memoryCache) Close() error {
	return nil
}
