package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/sweeper/internal/table"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"42", 42, true},
		{" -3.5 ", -3.5, true},
		{"+.5", 0.5, true},
		{"1e3", 1000, true},
		{"2.", 2, true},
		{"1,000", 0, false},
		{"$5", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"1e400", 0, false},
		{"Infinity", math.Inf(1), true},
		{"+inf", math.Inf(1), true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}

	inf, ok := ParseNumber("-inf")
	assert.True(t, ok)
	assert.True(t, math.IsInf(inf, -1))
}

func TestIsMissingMarker(t *testing.T) {
	for _, s := range []string{"", "  ", "NA", "N/A", "NaN", "null", "#N/A", "<NA>", "None"} {
		assert.True(t, IsMissingMarker(s), "%q", s)
	}
	for _, s := range []string{"0", "na", "Nothing", "-"} {
		assert.False(t, IsMissingMarker(s), "%q", s)
	}
}

func TestInferColumn(t *testing.T) {
	num := inferColumn("n", []string{"1", "", "2.5", "NA"})
	assert.Equal(t, table.KindNumeric, num.Kind)
	assert.Equal(t, []float64{1, 2.5}, num.Floats())
	assert.Equal(t, 2, num.Missing())

	txt := inferColumn("t", []string{"1", "x", ""})
	assert.Equal(t, table.KindText, txt.Kind)
	assert.Equal(t, "1", txt.Values[0].String())
	assert.False(t, txt.Values[0].IsNumber(), "mixed columns keep every cell as text")
	assert.True(t, txt.Values[2].IsMissing())

	empty := inferColumn("e", []string{"", ""})
	assert.Equal(t, table.KindNumeric, empty.Kind, "all-missing column is numeric")

	none := inferColumn("h", nil)
	assert.Equal(t, table.KindText, none.Kind, "header-only column is text")
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "a,b", string(normalizeText([]byte("\xEF\xBB\xBFa,b"))))
	assert.Equal(t, "caf\uFFFD", string(normalizeText([]byte("caf\xE9"))))
	assert.Equal(t, "plain", string(normalizeText([]byte("plain"))))
}

func TestUniqueHeaders(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"unchanged", []string{"a", "b"}, []string{"a", "b"}},
		{"blank names", []string{"", "b", " "}, []string{"Unnamed: 0", "b", "Unnamed: 2"}},
		{"repeats", []string{"a", "a", "a"}, []string{"a", "a.1", "a.2"}},
		{"suffix collides with literal", []string{"a", "a", "a.1"}, []string{"a", "a.2", "a.1"}},
		{"trimmed", []string{" x ", "x"}, []string{"x", "x.1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, uniqueHeaders(tt.in))
		})
	}
}
