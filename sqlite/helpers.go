package sqlite

import (
	"fmt"
	"strings"
	"time"
)

// formatTime renders t for storage. Stored times are always UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a stored timestamp, naming column in the error.
func parseTime(value, column string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", column, value, err)
	}
	return t, nil
}

// appendPagination writes LIMIT/OFFSET for positive values. SQLite requires
// a LIMIT before OFFSET, so an offset alone is paired with LIMIT -1.
func appendPagination(query *strings.Builder, args *[]any, limit, offset int) {
	switch {
	case limit > 0:
		query.WriteString(" LIMIT ?")
		*args = append(*args, limit)
	case offset > 0:
		query.WriteString(" LIMIT -1")
	}
	if offset > 0 {
		query.WriteString(" OFFSET ?")
		*args = append(*args, offset)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
