// Package pagination windows ordered collections the way Jira's REST API
// does with startAt and maxResults.
//
// Example usage:
//
//	params, err := pagination.ParseParams(r.URL.Query())
//	if err != nil {
//		// 400 Bad Request
//	}
//	page := pagination.Paginate(issues, params.StartAt, params.MaxResults)
//
// Paginate never fails and never indexes outside the collection:
//   - a negative startAt is treated as 0 and echoed back as 0
//   - maxResults is echoed back unchanged, even when 0 or negative
//   - total is always the length of the whole collection
//   - a window that starts past the end, or ends before 0, is empty
//
// The returned window shares its backing array with the input, so callers
// must not modify it.
package pagination
