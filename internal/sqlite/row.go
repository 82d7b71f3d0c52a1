package sqlite

import (
	"fmt"
	"strconv"
)

// Row is one result row; values are ordered as in the query's select list.
// modernc.org/sqlite yields int64, float64, string, []byte or nil.
type Row []any

// String returns column i as a string. NULL yields "".
func (r Row) String(i int) string {
	switch v := r[i].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns column i as an int64. NULL yields 0.
func (r Row) Int64(i int) (int64, error) {
	switch v := r[i].(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("column %d: %w", i, err)
		}
		return n, nil
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("column %d: %w", i, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("column %d: unexpected type %T", i, v)
	}
}
