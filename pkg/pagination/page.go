package pagination

// Page is the result envelope of a paginated issue listing.
type Page[T any] struct {
	StartAt    int64 `json:"startAt"`
	MaxResults int64 `json:"maxResults"`
	Total      int64 `json:"total"`
	Issues     []T   `json:"issues"`
}

// ValuesPage is the envelope Jira uses for non-issue listings such as boards.
type ValuesPage[T any] struct {
	MaxResults int64 `json:"maxResults"`
	StartAt    int64 `json:"startAt"`
	Total      int64 `json:"total"`
	IsLast     bool  `json:"isLast"`
	Values     []T   `json:"values"`
}

// Paginate returns the window [max(startAt, 0), startAt+maxResults) of items,
// clamped to the collection bounds.
func Paginate[T any](items []T, startAt, maxResults int64) Page[T] {
	start, window := slice(items, startAt, maxResults)
	return Page[T]{
		StartAt:    start,
		MaxResults: maxResults,
		Total:      int64(len(items)),
		Issues:     window,
	}
}

// PaginateValues applies the same windowing as Paginate and reports whether
// the window reaches the end of the collection.
func PaginateValues[T any](items []T, startAt, maxResults int64) ValuesPage[T] {
	start, window := slice(items, startAt, maxResults)
	total := int64(len(items))
	return ValuesPage[T]{
		MaxResults: maxResults,
		StartAt:    start,
		Total:      total,
		IsLast:     start+int64(len(window)) >= total,
		Values:     window,
	}
}

func slice[T any](items []T, startAt, maxResults int64) (int64, []T) {
	total := int64(len(items))
	start := max(startAt, 0)

	// start >= 0, so start+maxResults only overflows for positive maxResults,
	// and in that case the window is clamped to total anyway.
	if start >= total || (maxResults < 0 && start+maxResults < 0) {
		return start, []T{}
	}

	stop := total
	if maxResults < total-start {
		stop = start + maxResults
	}
	if stop <= start {
		return start, []T{}
	}
	return start, items[start:stop:stop]
}
