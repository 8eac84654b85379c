package core

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/JonMunkholm/sweeper/internal/table"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ColumnStats is the describe() row set for one numeric column.
// Fields are nil where the statistic is undefined (no values, or std with
// fewer than two values).
type ColumnStats struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Q25    *float64 `json:"25%"`
	Q50    *float64 `json:"50%"`
	Q75    *float64 `json:"75%"`
	Max    *float64 `json:"max"`
}

// MarshalJSON writes undefined statistics as null and infinities as strings.
func (s ColumnStats) MarshalJSON() ([]byte, error) {
	v := func(f *float64) table.Value {
		if f == nil {
			return table.Missing()
		}
		return table.Number(*f)
	}
	return json.Marshal(struct {
		Column string      `json:"column"`
		Count  int         `json:"count"`
		Mean   table.Value `json:"mean"`
		Std    table.Value `json:"std"`
		Min    table.Value `json:"min"`
		Q25    table.Value `json:"25%"`
		Q50    table.Value `json:"50%"`
		Q75    table.Value `json:"75%"`
		Max    table.Value `json:"max"`
	}{s.Column, s.Count, v(s.Mean), v(s.Std), v(s.Min), v(s.Q25), v(s.Q50), v(s.Q75), v(s.Max)})
}

// StatRow is one labelled line of a describe table.
type StatRow struct {
	Label  string
	Values []*float64
}

// Description holds statistics for the numeric columns of a table.
type Description struct {
	Columns []ColumnStats `json:"columns"`
}

// Rows lays the statistics out the way describe() prints them: one row per
// statistic, one value per column.
func (d *Description) Rows() []StatRow {
	pick := []struct {
		label string
		get   func(ColumnStats) *float64
	}{
		{"count", func(s ColumnStats) *float64 { c := float64(s.Count); return &c }},
		{"mean", func(s ColumnStats) *float64 { return s.Mean }},
		{"std", func(s ColumnStats) *float64 { return s.Std }},
		{"min", func(s ColumnStats) *float64 { return s.Min }},
		{"25%", func(s ColumnStats) *float64 { return s.Q25 }},
		{"50%", func(s ColumnStats) *float64 { return s.Q50 }},
		{"75%", func(s ColumnStats) *float64 { return s.Q75 }},
		{"max", func(s ColumnStats) *float64 { return s.Max }},
	}
	rows := make([]StatRow, len(pick))
	for i, p := range pick {
		vals := make([]*float64, len(d.Columns))
		for j, c := range d.Columns {
			vals[j] = p.get(c)
		}
		rows[i] = StatRow{Label: p.label, Values: vals}
	}
	return rows
}

// Describe computes count, mean, sample std, min, quartiles and max for
// every numeric column. Text columns are skipped.
func Describe(t *table.Table) *Description {
	d := &Description{Columns: []ColumnStats{}}
	for _, c := range t.NumericColumns() {
		d.Columns = append(d.Columns, describeColumn(c))
	}
	return d
}

func describeColumn(c *table.Column) ColumnStats {
	xs := c.Floats()
	s := ColumnStats{Column: c.Name, Count: len(xs)}
	if len(xs) == 0 {
		return s
	}
	sort.Float64s(xs)

	s.Mean = ptr(stat.Mean(xs, nil))
	if len(xs) > 1 {
		s.Std = ptr(stat.StdDev(xs, nil))
	}
	s.Min = ptr(xs[0])
	s.Q25 = ptr(quantile(xs, 0.25))
	s.Q50 = ptr(quantile(xs, 0.50))
	s.Q75 = ptr(quantile(xs, 0.75))
	s.Max = ptr(xs[len(xs)-1])
	return s
}

// quantile interpolates linearly between the closest ranks of sorted xs:
// position p*(n-1), as numpy's default method does.
func quantile(xs []float64, p float64) float64 {
	h := p * float64(len(xs)-1)
	lo := int(math.Floor(h))
	if lo+1 >= len(xs) {
		return xs[len(xs)-1]
	}
	frac := h - float64(lo)
	if frac == 0 {
		return xs[lo]
	}
	return xs[lo] + frac*(xs[lo+1]-xs[lo])
}

func ptr(f float64) *float64 {
	if math.IsNaN(f) {
		return nil
	}
	return &f
}

// Bin is one histogram bucket covering [Lower, Upper).
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram counts the values of a single numeric column.
type Histogram struct {
	Column  string `json:"column"`
	Bins    []Bin  `json:"bins"`
	Missing int    `json:"missing"`
	// Excluded counts infinite values, which fall outside every bin.
	Excluded int `json:"excluded,omitempty"`
}

// MaxCount returns the largest bin count.
func (h *Histogram) MaxCount() int {
	m := 0
	for _, b := range h.Bins {
		m = max(m, b.Count)
	}
	return m
}

// SturgesBins returns ceil(log2 n) + 1, the default bin count for n values.
func SturgesBins(n int) int {
	if n <= 1 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(n)))) + 1
}

// BuildHistogram bins the first numeric column of t. bins <= 0 selects
// Sturges' rule. With no numeric column it returns ErrNoNumericColumn; a
// column without finite values yields an empty histogram and an error
// wrapping ErrEmptyNumericColumn.
func BuildHistogram(t *table.Table, bins int) (*Histogram, error) {
	numeric := t.NumericColumns()
	if len(numeric) == 0 {
		return nil, ErrNoNumericColumn
	}
	c := numeric[0]
	h := &Histogram{Column: c.Name, Bins: []Bin{}, Missing: c.Missing()}

	all := c.Floats()
	xs := all[:0:0]
	for _, x := range all {
		if math.IsInf(x, 0) {
			h.Excluded++
			continue
		}
		xs = append(xs, x)
	}
	if len(xs) == 0 {
		return h, fmt.Errorf("column %q: %w", c.Name, ErrEmptyNumericColumn)
	}
	sort.Float64s(xs)

	if bins <= 0 {
		bins = SturgesBins(len(xs))
	}
	dividers := binDividers(xs[0], xs[len(xs)-1], bins)

	counts := stat.Histogram(nil, dividers, xs, nil)
	h.Bins = make([]Bin, len(counts))
	for i, n := range counts {
		h.Bins[i] = Bin{Lower: dividers[i], Upper: dividers[i+1], Count: int(n)}
	}
	return h, nil
}

// binDividers returns bins+1 non-decreasing edges covering [lo, hi]. The last
// edge is nudged past hi so the maximum lands in the final bin.
func binDividers(lo, hi float64, bins int) []float64 {
	if lo == hi {
		lower, upper := lo-0.5, hi+0.5
		if lower == lo {
			lower = math.Nextafter(lo, math.Inf(-1))
		}
		if upper == hi {
			upper = math.Nextafter(hi, math.Inf(1))
		}
		return []float64{lower, upper}
	}

	d := make([]float64, bins+1)
	if math.IsInf(hi-lo, 0) {
		// The span overflows; interpolate each edge from the endpoints.
		for i := range d {
			t := float64(i) / float64(bins)
			d[i] = lo*(1-t) + hi*t
		}
	} else {
		floats.Span(d, lo, hi)
	}
	d[bins] = math.Nextafter(hi, math.Inf(1))
	return d
}
