package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/JonMunkholm/sweeper/internal/table"
	"gonum.org/v1/gonum/stat"
)

// RemoveDuplicates drops every row equal to an earlier row, comparing all
// columns with missing equal to missing. First occurrences keep their order.
// It returns the new table and the number of rows removed.
func RemoveDuplicates(t *table.Table) (*table.Table, int) {
	if t.Width() == 0 {
		return t.Clone(), 0
	}

	seen := make(map[string]struct{}, t.Rows())
	keep := make([]bool, t.Rows())
	removed := 0
	var key strings.Builder
	for r := 0; r < t.Rows(); r++ {
		key.Reset()
		for _, c := range t.Columns() {
			writeKey(&key, c.Values[r])
		}
		k := key.String()
		if _, dup := seen[k]; dup {
			removed++
			continue
		}
		seen[k] = struct{}{}
		keep[r] = true
	}
	return t.FilterRows(keep), removed
}

// writeKey appends an unambiguous encoding of v.
func writeKey(b *strings.Builder, v table.Value) {
	switch {
	case v.IsMissing():
		b.WriteByte(0)
	case v.IsNumber():
		f, _ := v.Float()
		if f == 0 {
			f = 0 // -0 and +0 are the same row
		}
		b.WriteByte('n')
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		b.WriteByte(';')
	default:
		s := v.String()
		b.WriteByte('t')
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}
}

// ColumnFill records the value written into one numeric column.
type ColumnFill struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	Count  int     `json:"count"`
}

// FillResult describes what FillMissingNumeric did.
type FillResult struct {
	Filled []ColumnFill `json:"filled,omitempty"`
	// Empty lists numeric columns with no values; they stay missing.
	Empty []string `json:"empty,omitempty"`
}

// Total is the number of cells filled across all columns.
func (r FillResult) Total() int {
	n := 0
	for _, f := range r.Filled {
		n += f.Count
	}
	return n
}

// Warnings returns one ErrEmptyNumericColumn error per empty column.
func (r FillResult) Warnings() []error {
	errs := make([]error, len(r.Empty))
	for i, name := range r.Empty {
		errs[i] = fmt.Errorf("column %q: %w", name, ErrEmptyNumericColumn)
	}
	return errs
}

// FillMissingNumeric replaces missing cells in every numeric column with the
// mean of that column's present values. Text columns are untouched.
func FillMissingNumeric(t *table.Table) (*table.Table, FillResult) {
	out := t.Clone()
	var res FillResult
	for _, c := range out.NumericColumns() {
		missing := c.Missing()
		if missing == 0 {
			continue
		}
		xs := c.Floats()
		if len(xs) == 0 {
			res.Empty = append(res.Empty, c.Name)
			continue
		}
		mean := stat.Mean(xs, nil)
		if math.IsNaN(mean) {
			// +Inf and -Inf together; nothing sensible to fill with.
			res.Empty = append(res.Empty, c.Name)
			continue
		}
		for i, v := range c.Values {
			if v.IsMissing() {
				c.Values[i] = table.Number(mean)
			}
		}
		res.Filled = append(res.Filled, ColumnFill{Column: c.Name, Mean: mean, Count: missing})
	}
	return out, res
}
