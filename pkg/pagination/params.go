package pagination

import (
	"fmt"
	"net/url"
	"strconv"
)

// Query parameter names and their defaults.
const (
	ParamStartAt    = "startAt"
	ParamMaxResults = "maxResults"

	DefaultStartAt    int64 = 0
	DefaultMaxResults int64 = 50
)

// Params holds the pagination parameters of a request.
type Params struct {
	StartAt    int64
	MaxResults int64
}

// ParseParams reads startAt and maxResults from a query string. Absent or
// empty values fall back to the defaults; anything that is not a base-10
// integer is an error.
func ParseParams(query url.Values) (Params, error) {
	startAt, err := parseInt(query, ParamStartAt, DefaultStartAt)
	if err != nil {
		return Params{}, err
	}
	maxResults, err := parseInt(query, ParamMaxResults, DefaultMaxResults)
	if err != nil {
		return Params{}, err
	}
	return Params{StartAt: startAt, MaxResults: maxResults}, nil
}

func parseInt(query url.Values, name string, def int64) (int64, error) {
	raw := query.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return v, nil
}
