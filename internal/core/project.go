package core

import (
	"strings"

	"github.com/JonMunkholm/sweeper/internal/table"
)

// Project returns a table with exactly the named columns, in order.
// A nil names slice keeps every column; an empty non-nil slice keeps none.
// Repeated names are kept once, at their first position. If any name is
// unknown, a *ColumnNotFoundError lists all of them and t is not touched.
func Project(t *table.Table, names []string) (*table.Table, error) {
	if names == nil {
		return t.Clone(), nil
	}

	wanted := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	var missing []string
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		if !t.Has(n) {
			missing = append(missing, n)
			continue
		}
		wanted = append(wanted, n)
	}
	if len(missing) > 0 {
		return nil, &ColumnNotFoundError{Missing: missing, Available: t.Names()}
	}
	return t.Select(wanted), nil
}

// ParseColumnList splits a comma-separated column list. Blank entries are
// dropped, so "" yields an empty non-nil slice.
func ParseColumnList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
