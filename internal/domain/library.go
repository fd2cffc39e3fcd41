package domain

// LibraryTimestamp computes the merge key for whole-library sync:
// the maximum LastReadTime across all books, falling back to AddTime for
// books that were never opened, or 0 for an empty library.
//
// This single integer is the only conflict-resolution input - sync is
// whole-library, timestamp-gated, last-writer-wins.
func LibraryTimestamp(books []Book) int64 {
	var max int64
	for i := range books {
		ts := books[i].LastReadTime
		if ts == 0 {
			ts = books[i].AddTime
		}
		if ts > max {
			max = ts
		}
	}
	return max
}
