// Package listing is the object directory cache: it turns flat bucket
// listings into sorted folder/file views, caches them per
// (connection, bucket, prefix), and paginates them for the client.
package listing

import (
	"fmt"
	"time"
)

// Entry is a single listed item under a prefix: either a synthesized
// folder derived from a key prefix, or a leaf object. Folder entries
// never carry a size or signed URL; use NewFolder / NewFile so that
// stays true.
type Entry struct {
	// ID uniquely identifies the entry within one listing. Normally the
	// object key; re-keyed with a timestamp suffix on collision.
	ID string `json:"id"`

	// Key is the full object key ("photos/cat.jpg", folders end in "/").
	Key string `json:"key"`

	// Name is the display name relative to the listed prefix.
	Name string `json:"name"`

	// Size is the object size in bytes. Always 0 for folders.
	Size int64 `json:"size,omitempty"`

	IsFolder bool `json:"isFolder"`
	IsVideo  bool `json:"isVideo"`

	// SignedURL is a time-limited retrieval URL. Empty for folders, and
	// empty for files whose URL resolution failed (best effort).
	SignedURL string `json:"signedUrl,omitempty"`
}

// NewFolder returns a folder entry for the synthesized directory name
// under prefix.
func NewFolder(prefix, name string) Entry {
	key := prefix + name + "/"
	return Entry{
		ID:       key,
		Key:      key,
		Name:     name,
		IsFolder: true,
	}
}

// NewFile returns a leaf entry for the object at key. name is the key
// relative to the listed prefix.
func NewFile(key, name string, size int64, isVideo bool) Entry {
	return Entry{
		ID:      key,
		Key:     key,
		Name:    name,
		Size:    size,
		IsVideo: isVideo,
	}
}

// rekey returns a copy of e with a disambiguated ID. Used when two
// entries in one listing would otherwise compare equal.
func rekey(e Entry, at time.Time) Entry {
	e.ID = fmt.Sprintf("%s_%d", e.ID, at.UnixMilli())
	return e
}

// dedupe removes entries with duplicate IDs, keeping the first
// occurrence and re-keying later ones so no two survivors share an ID.
func dedupe(entries []Entry, at time.Time) []Entry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]Entry, 0, len(entries))

	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			e = rekey(e, at)
			// A second collision on the suffixed ID is still possible in
			// theory; extend until unique.
			for _, dup := seen[e.ID]; dup; _, dup = seen[e.ID] {
				e.ID += "_"
			}
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}
