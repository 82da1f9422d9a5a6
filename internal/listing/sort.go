package listing

import "sort"

// less defines the listing's total order: folders before files, folders
// lexicographic by name, non-video files before videos, and
// lexicographic by name within the same media class.
func less(a, b Entry) bool {
	if a.IsFolder != b.IsFolder {
		return a.IsFolder
	}
	if a.IsFolder {
		return a.Name < b.Name
	}
	if a.IsVideo != b.IsVideo {
		return !a.IsVideo
	}
	return a.Name < b.Name
}

// sortEntries orders entries in place per the listing's total order.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return less(entries[i], entries[j])
	})
}
