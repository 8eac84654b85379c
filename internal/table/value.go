package table

import (
	"encoding/json"
	"math"
	"strconv"
)

// Value is a single cell: a number, a piece of text, or missing.
// The zero Value is missing.
type Value struct {
	present bool
	numeric bool
	num     float64
	str     string
}

// Missing returns the missing marker.
func Missing() Value { return Value{} }

// Number returns a numeric value. NaN is stored as missing.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{present: true, numeric: true, num: f}
}

// Text returns a text value.
func Text(s string) Value {
	return Value{present: true, str: s}
}

// IsMissing reports whether the cell holds no value.
func (v Value) IsMissing() bool { return !v.present }

// IsNumber reports whether the cell holds a number.
func (v Value) IsNumber() bool { return v.present && v.numeric }

// Float returns the numeric value, if any.
func (v Value) Float() (float64, bool) {
	if !v.IsNumber() {
		return 0, false
	}
	return v.num, true
}

// String formats the value for display and CSV output.
// Numbers use the shortest representation that round-trips; missing is "".
func (v Value) String() string {
	switch {
	case !v.present:
		return ""
	case v.numeric:
		return FormatNumber(v.num)
	default:
		return v.str
	}
}

// Interface returns the value as float64, string or nil.
func (v Value) Interface() any {
	switch {
	case !v.present:
		return nil
	case v.numeric:
		return v.num
	default:
		return v.str
	}
}

// Equal compares two values. Two missing values are equal.
func (v Value) Equal(o Value) bool {
	if v.present != o.present {
		return false
	}
	if !v.present {
		return true
	}
	if v.numeric != o.numeric {
		return false
	}
	if v.numeric {
		return v.num == o.num
	}
	return v.str == o.str
}

// MarshalJSON encodes missing as null, numbers as JSON numbers and text as
// strings. JSON has no infinity, so infinite numbers become "inf" or "-inf".
func (v Value) MarshalJSON() ([]byte, error) {
	if v.numeric && math.IsInf(v.num, 0) {
		return json.Marshal(FormatNumber(v.num))
	}
	return json.Marshal(v.Interface())
}

// FormatNumber renders f with the fewest digits that parse back to f.
func FormatNumber(f float64) string {
	if math.IsInf(f, 0) {
		if f > 0 {
			return "inf"
		}
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
