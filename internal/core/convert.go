package core

// convert.go turns raw cell text into typed values.
//
// Uploaded files are messy: Windows tools prepend a BOM, exports carry
// invalid UTF-8, and spreadsheets spell "no value" a dozen ways. Cells are
// trimmed, checked against the missing markers, and only then tried as
// numbers.

import (
	"bytes"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/sweeper/internal/table"
)

// numericRegex validates that a string is a plain number after trimming.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// missingMarkers are the cell spellings read as "no value", in addition to
// the empty string. Matching is exact and case-sensitive.
var missingMarkers = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {},
	"-1.#IND": {}, "-1.#QNAN": {}, "-NaN": {}, "-nan": {},
	"1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

// IsMissingMarker reports whether a raw cell means "no value".
func IsMissingMarker(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	_, ok := missingMarkers[s]
	return ok
}

// ParseNumber parses a trimmed cell as a float. Thousands separators and
// currency symbols are not accepted: "1,000" is text.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	switch strings.ToLower(s) {
	case "inf", "+inf", "infinity", "+infinity":
		return math.Inf(1), true
	case "-inf", "-infinity":
		return math.Inf(-1), true
	}
	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Out of range values such as 1e400 are kept as text.
		return 0, false
	}
	return f, true
}

// inferColumn builds a typed column from raw cells. The column is numeric
// when it has rows and every present cell is a number; otherwise every
// present cell keeps its original text.
func inferColumn(name string, raw []string) *table.Column {
	values := make([]table.Value, len(raw))
	numeric := len(raw) > 0
	for i, s := range raw {
		if IsMissingMarker(s) {
			continue
		}
		f, ok := ParseNumber(s)
		if !ok {
			numeric = false
			break
		}
		values[i] = table.Number(f)
	}

	if numeric {
		return &table.Column{Name: name, Kind: table.KindNumeric, Values: values}
	}

	for i, s := range raw {
		if IsMissingMarker(s) {
			values[i] = table.Missing()
			continue
		}
		values[i] = table.Text(s)
	}
	return &table.Column{Name: name, Kind: table.KindText, Values: values}
}

// normalizeText strips a leading UTF-8 BOM and replaces invalid byte
// sequences with U+FFFD.
func normalizeText(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte(string(utf8.RuneError)))
}

// uniqueHeaders applies the header rules shared by both loaders: blank names
// become "Unnamed: i" and repeats get ".1", ".2" suffixes.
func uniqueHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		out[i] = h
	}
	// Suffixed names must not collide with literal headers anywhere in the row.
	counts := make(map[string]int, len(out))
	for _, h := range out {
		counts[h]++
	}
	for i, h := range out {
		if _, dup := seen[h]; !dup {
			seen[h] = struct{}{}
			continue
		}
		n := 1
		for {
			candidate := h + "." + strconv.Itoa(n)
			_, taken := seen[candidate]
			_, literal := counts[candidate]
			if !taken && !literal {
				out[i] = candidate
				seen[candidate] = struct{}{}
				break
			}
			n++
		}
	}
	return out
}
