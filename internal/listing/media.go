package listing

import (
	"path"
	"strings"
)

// Filter decides which leaf objects appear in a listing. A media
// browser only surfaces recognised image and video files; a
// general-purpose browser wants everything. The policy is fixed per
// Service instance.
type Filter int

const (
	// FilterMedia keeps only keys with a recognised image or video
	// extension. This is the default.
	FilterMedia Filter = iota

	// FilterAll keeps every object regardless of extension.
	FilterAll
)

// ParseFilter maps a config string to a Filter. Unknown values fall
// back to FilterMedia.
func ParseFilter(s string) Filter {
	if strings.EqualFold(s, "all") {
		return FilterAll
	}
	return FilterMedia
}

var videoExts = map[string]bool{
	".mp4": true,
	".mov": true,
	".avi": true,
	".mkv": true,
}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// IsVideo reports whether key has a recognised video extension,
// case-insensitively.
func IsVideo(key string) bool {
	return videoExts[strings.ToLower(path.Ext(key))]
}

// Keep reports whether a leaf object at key passes the filter.
func (f Filter) Keep(key string) bool {
	if f == FilterAll {
		return true
	}
	ext := strings.ToLower(path.Ext(key))
	return imageExts[ext] || videoExts[ext]
}
