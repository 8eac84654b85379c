package core

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sweeper/internal/table"
)

func TestDescribe(t *testing.T) {
	tbl := mustLoadCSV(t, "name,x,y\na,4,\nb,1,7\nc,3,\nd,2,\n")

	d := Describe(tbl)
	require.Len(t, d.Columns, 2, "text columns are skipped")

	x := d.Columns[0]
	assert.Equal(t, "x", x.Column)
	assert.Equal(t, 4, x.Count)
	assert.InDelta(t, 2.5, *x.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), *x.Std, 1e-12)
	assert.Equal(t, 1.0, *x.Min)
	assert.InDelta(t, 1.75, *x.Q25, 1e-12)
	assert.InDelta(t, 2.5, *x.Q50, 1e-12)
	assert.InDelta(t, 3.25, *x.Q75, 1e-12)
	assert.Equal(t, 4.0, *x.Max)

	y := d.Columns[1]
	assert.Equal(t, 1, y.Count)
	assert.Nil(t, y.Std, "std needs two values")
	assert.Equal(t, 7.0, *y.Q25)
}

func TestDescribe_EmptyColumn(t *testing.T) {
	d := Describe(mustLoadCSV(t, "a\n\n\"\"\n"))
	require.Len(t, d.Columns, 1)
	assert.Zero(t, d.Columns[0].Count)
	assert.Nil(t, d.Columns[0].Mean)
}

func TestDescription_Rows(t *testing.T) {
	d := Describe(mustLoadCSV(t, "x\n1\n3\n"))
	rows := d.Rows()
	require.Len(t, rows, 8)

	labels := make([]string, len(rows))
	for i, r := range rows {
		labels[i] = r.Label
	}
	assert.Equal(t, []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}, labels)
	assert.Equal(t, 2.0, *rows[0].Values[0])
	assert.Equal(t, 2.0, *rows[1].Values[0])
}

func TestQuantile(t *testing.T) {
	xs := []float64{10, 20, 30, 40, 50}
	assert.Equal(t, 10.0, quantile(xs, 0))
	assert.Equal(t, 20.0, quantile(xs, 0.25))
	assert.Equal(t, 30.0, quantile(xs, 0.5))
	assert.Equal(t, 50.0, quantile(xs, 1))
	assert.Equal(t, 5.0, quantile([]float64{5}, 0.75))
}

func TestSturgesBins(t *testing.T) {
	assert.Equal(t, 1, SturgesBins(1))
	assert.Equal(t, 2, SturgesBins(2))
	assert.Equal(t, 3, SturgesBins(4))
	assert.Equal(t, 5, SturgesBins(10))
	assert.Equal(t, 8, SturgesBins(100))
}

func TestBuildHistogram(t *testing.T) {
	tbl := mustLoadCSV(t, "label,v,w\na,1,9\nb,2,9\nc,3,9\nd,4,9\ne,,9\n")

	h, err := BuildHistogram(tbl, 0)
	require.NoError(t, err)
	assert.Equal(t, "v", h.Column, "first numeric column in table order")
	assert.Equal(t, 1, h.Missing)

	require.Len(t, h.Bins, 3)
	counts := []int{h.Bins[0].Count, h.Bins[1].Count, h.Bins[2].Count}
	assert.Equal(t, []int{1, 1, 2}, counts)
	assert.Equal(t, 1.0, h.Bins[0].Lower)
	assert.Equal(t, 2, h.MaxCount())
}

func TestBuildHistogram_ConfiguredBins(t *testing.T) {
	h, err := BuildHistogram(mustLoadCSV(t, "v\n0\n10\n"), 5)
	require.NoError(t, err)
	assert.Len(t, h.Bins, 5)

	total := 0
	for _, b := range h.Bins {
		total += b.Count
	}
	assert.Equal(t, 2, total, "max value lands in the last bin")
}

func TestBuildHistogram_SingleValue(t *testing.T) {
	h, err := BuildHistogram(mustLoadCSV(t, "v\n5\n5\n"), 0)
	require.NoError(t, err)
	require.Len(t, h.Bins, 1)
	assert.Equal(t, Bin{Lower: 4.5, Upper: 5.5, Count: 2}, h.Bins[0])
}

func TestBuildHistogram_Skips(t *testing.T) {
	_, err := BuildHistogram(mustLoadCSV(t, "s\nx\n"), 0)
	assert.ErrorIs(t, err, ErrNoNumericColumn)

	_, err = BuildHistogram(table.MustNew(0), 0)
	assert.ErrorIs(t, err, ErrNoNumericColumn)

	h, err := BuildHistogram(mustLoadCSV(t, "v,w\n,1\n"), 0)
	assert.True(t, errors.Is(err, ErrEmptyNumericColumn))
	require.NotNil(t, h)
	assert.Empty(t, h.Bins)
}

func TestBuildHistogram_RangeOverflows(t *testing.T) {
	tbl := mustLoadCSV(t, "x\n-1e308\n1e308\n0\n")

	h, err := BuildHistogram(tbl, 4)
	require.NoError(t, err)
	require.Len(t, h.Bins, 4)
	total := 0
	for i, b := range h.Bins {
		assert.False(t, math.IsNaN(b.Lower) || math.IsInf(b.Lower, 0), "bin %d lower %v", i, b.Lower)
		assert.Less(t, b.Lower, b.Upper)
		total += b.Count
	}
	assert.Equal(t, 3, total)
	assert.Equal(t, -1e308, h.Bins[0].Lower)
}

func TestBuildHistogram_SingleHugeValue(t *testing.T) {
	tbl := mustLoadCSV(t, "x\n1e300\n1e300\n")

	h, err := BuildHistogram(tbl, 0)
	require.NoError(t, err)
	require.Len(t, h.Bins, 1)
	assert.Equal(t, 2, h.Bins[0].Count)
}
