package fixture

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ParseBoardID converts the raw "id" field of a board document into a
// board identifier. JSON numbers and numeric strings are accepted; a
// number with a fractional part, or any other JSON shape, is rejected.
func ParseBoardID(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, errors.New("missing id")
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("id: %w", err)
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("id %q is not an integer: %w", s, err)
		}
		return id, nil

	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, fmt.Errorf("id: %w", err)
		}
		if id, err := n.Int64(); err == nil {
			return id, nil
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("id %s is not an integer", n)
		}
		return int64(f), nil

	default:
		return 0, fmt.Errorf("id must be a number or numeric string, got %s", raw)
	}
}
