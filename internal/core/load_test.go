package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sweeper/internal/table"
)

// workbook builds an in-memory .xlsx. Each sheet is a list of rows.
func workbook(t *testing.T, sheets map[string][][]any, order ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			row := row
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func column(t *testing.T, tbl *table.Table, name string) *table.Column {
	t.Helper()
	c, ok := tbl.Column(name)
	require.True(t, ok, "column %q", name)
	return c
}

func TestLoadCSV(t *testing.T) {
	tbl, warnings, err := Load("data.csv", []byte("a,b\n1,\n1,3\n2,4\n"), FormatCSV)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, 3, tbl.Rows())
	assert.Equal(t, []string{"a", "b"}, tbl.Names())
	assert.Equal(t, table.KindNumeric, column(t, tbl, "a").Kind)

	b := column(t, tbl, "b")
	assert.Equal(t, table.KindNumeric, b.Kind)
	assert.True(t, b.Values[0].IsMissing())
	assert.Equal(t, []float64{3, 4}, b.Floats())
}

func TestLoadCSV_TextAndMarkers(t *testing.T) {
	data := "\xEF\xBB\xBFname,score,,name\nann,NA,x,1\n\nbob,7,,2\n"
	tbl, _, err := Load("people.csv", []byte(data), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "score", "Unnamed: 2", "name.1"}, tbl.Names())
	assert.Equal(t, 2, tbl.Rows(), "blank lines are skipped")
	assert.Equal(t, table.KindText, column(t, tbl, "name").Kind)

	score := column(t, tbl, "score")
	assert.Equal(t, table.KindNumeric, score.Kind)
	assert.True(t, score.Values[0].IsMissing())
}

func TestLoadCSV_ShortRowsArePadded(t *testing.T) {
	tbl, _, err := Load("short.csv", []byte("a,b,c\n1\n2,3,4\n"), FormatCSV)
	require.NoError(t, err)
	assert.True(t, column(t, tbl, "c").Values[0].IsMissing())
	assert.Equal(t, 2, tbl.Rows())
}

func TestLoadCSV_HeaderOnly(t *testing.T) {
	tbl, _, err := Load("h.csv", []byte("a,b\n"), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Rows())
	assert.Equal(t, 2, tbl.Width())
}

func TestLoadCSV_Errors(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantCode string
	}{
		{"empty", "", "FILE005"},
		{"only blank lines", "\n\n", "FILE005"},
		{"wide row", "a,b\n1,2,3\n", "LOAD002"},
		{"bad quote", "a,b\n1,\"x\n", "LOAD003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load("bad.csv", []byte(tt.data), FormatCSV)
			require.Error(t, err)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, "bad.csv", le.File)
			assert.Equal(t, tt.wantCode, MapError(err).Code)
		})
	}
}

func TestLoadExcel(t *testing.T) {
	data := workbook(t, map[string][][]any{
		"Data": {
			{"city", "temp"},
			{"Oslo", 3.5},
			{},
			{"Rome", 18},
		},
		"Notes": {{"ignored"}},
	}, "Data", "Notes")

	tbl, warnings, err := Load("weather.xlsx", data, FormatExcel)
	require.NoError(t, err)

	assert.Equal(t, []string{"city", "temp"}, tbl.Names())
	assert.Equal(t, 2, tbl.Rows())
	assert.Equal(t, table.KindText, column(t, tbl, "city").Kind)
	assert.Equal(t, []float64{3.5, 18}, column(t, tbl, "temp").Floats())

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], `"Data"`)
	assert.Contains(t, warnings[0], "Notes")
}

func TestLoadExcel_WideRowsGetUnnamedHeaders(t *testing.T) {
	data := workbook(t, map[string][][]any{
		"Sheet1": {
			{"a"},
			{1, 2},
		},
	}, "Sheet1")

	tbl, _, err := Load("wide.xlsx", data, FormatExcel)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "Unnamed: 1"}, tbl.Names())
}

func TestLoadExcel_Errors(t *testing.T) {
	_, _, err := Load("broken.xlsx", []byte("not a zip"), FormatExcel)
	var le *LoadError
	require.True(t, errors.As(err, &le))

	empty := workbook(t, map[string][][]any{"Sheet1": nil}, "Sheet1")
	_, _, err = Load("empty.xlsx", empty, FormatExcel)
	assert.ErrorIs(t, err, ErrEmptyFile)
}
