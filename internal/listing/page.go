package listing

// DefaultPageSize is the scroll window an incremental client grows by.
const DefaultPageSize = 10

// Page returns the first page*size entries of items. It is pure: for a
// stable items slice, each page's result is a strict prefix of the
// next page's. Out-of-range windows clamp to the full slice; a
// non-positive page or size yields nothing.
func Page(items []Entry, page, size int) []Entry {
	if page < 1 || size < 1 {
		return nil
	}
	n := page * size
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}
