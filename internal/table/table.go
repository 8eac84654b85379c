// Package table holds the in-memory representation of one uploaded file:
// an ordered set of uniquely named, equal-length, typed columns.
//
// Tables are built once per file by the loader and are never shared between
// files. Operations that reshape a table (row filtering, column selection)
// return a new Table and leave the receiver untouched.
package table

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrDuplicateColumn is returned when two columns share a name.
	ErrDuplicateColumn = errors.New("duplicate column name")

	// ErrRaggedColumns is returned when column lengths differ from the row count.
	ErrRaggedColumns = errors.New("column length does not match row count")
)

// Kind is the inferred type of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
)

// String returns the lowercase kind name used in reports.
func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	default:
		return "text"
	}
}

// MarshalText lets Kind appear as a string in JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names written by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "numeric":
		*k = KindNumeric
	case "text":
		*k = KindText
	default:
		return fmt.Errorf("unknown column kind %q", b)
	}
	return nil
}

// Column is a named, typed sequence of values.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// Missing returns the number of missing values in the column.
func (c *Column) Missing() int {
	n := 0
	for _, v := range c.Values {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

// Floats returns the non-missing numeric values in row order.
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if f, ok := v.Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

func (c *Column) clone() *Column {
	values := make([]Value, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Kind: c.Kind, Values: values}
}

// Table is an ordered collection of columns sharing one row count.
// A table may have zero columns and still carry a row count.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New builds a table from columns. All columns must have exactly rows values
// and distinct names.
func New(rows int, columns ...*Column) (*Table, error) {
	t := &Table{
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
		rows:    rows,
	}
	for _, c := range columns {
		if len(c.Values) != rows {
			return nil, fmt.Errorf("%w: column %q has %d values, want %d", ErrRaggedColumns, c.Name, len(c.Values), rows)
		}
		if _, exists := t.index[c.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		t.index[c.Name] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// MustNew is New for tests and literals; it panics on error.
func MustNew(rows int, columns ...*Column) *Table {
	t, err := New(rows, columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Rows returns the number of rows.
func (t *Table) Rows() int { return t.rows }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Columns returns the columns in order. Callers must not append to the slice.
func (t *Table) Columns() []*Column { return t.columns }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Has reports whether a column with the given name exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// NumericColumns returns the numeric columns in table order.
func (t *Table) NumericColumns() []*Column {
	var out []*Column
	for _, c := range t.columns {
		if c.Kind == KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// Row returns the values of row i across all columns.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Values[i]
	}
	return row
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.clone()
	}
	return MustNew(t.rows, cols...)
}

// Head returns a copy holding at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > t.rows {
		n = t.rows
	}
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		values := make([]Value, n)
		copy(values, c.Values[:n])
		cols[i] = &Column{Name: c.Name, Kind: c.Kind, Values: values}
	}
	return MustNew(n, cols...)
}

// FilterRows returns a copy holding only rows whose keep flag is true.
// keep must have one entry per row.
func (t *Table) FilterRows(keep []bool) *Table {
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		values := make([]Value, 0, n)
		for r, v := range c.Values {
			if keep[r] {
				values = append(values, v)
			}
		}
		cols[i] = &Column{Name: c.Name, Kind: c.Kind, Values: values}
	}
	return MustNew(n, cols...)
}

// Select returns a copy with only the named columns, in the given order.
// Unknown names are reported by the caller; Select panics on them.
func (t *Table) Select(names []string) *Table {
	cols := make([]*Column, len(names))
	for i, name := range names {
		c, ok := t.Column(name)
		if !ok {
			panic(fmt.Sprintf("table: select of unknown column %q", name))
		}
		cols[i] = c.clone()
	}
	return MustNew(t.rows, cols...)
}

// Equal reports whether both tables have the same shape, names, kinds and values.
func (t *Table) Equal(o *Table) bool {
	if t.rows != o.rows || len(t.columns) != len(o.columns) {
		return false
	}
	for i, c := range t.columns {
		oc := o.columns[i]
		if c.Name != oc.Name || c.Kind != oc.Kind {
			return false
		}
		for r := range c.Values {
			if !c.Values[r].Equal(oc.Values[r]) {
				return false
			}
		}
	}
	return true
}

type columnHeader struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// MarshalJSON encodes the table as {"columns":[{name,kind}],"rows":[[...]]}.
func (t *Table) MarshalJSON() ([]byte, error) {
	headers := make([]columnHeader, len(t.columns))
	for i, c := range t.columns {
		headers[i] = columnHeader{Name: c.Name, Kind: c.Kind}
	}
	rows := make([][]Value, t.rows)
	for r := range rows {
		rows[r] = t.Row(r)
	}
	return json.Marshal(struct {
		Columns []columnHeader `json:"columns"`
		Rows    [][]Value      `json:"rows"`
	}{headers, rows})
}

// Records renders the table as string rows, header first.
// Missing values render as empty strings.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, t.rows+1)
	out = append(out, t.Names())
	for r := 0; r < t.rows; r++ {
		rec := make([]string, len(t.columns))
		for j, c := range t.columns {
			rec[j] = c.Values[r].String()
		}
		out = append(out, rec)
	}
	return out
}
