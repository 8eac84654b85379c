package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"

	"github.com/JonMunkholm/sweeper/internal/table"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Sheet1"

// Export serializes t as f. The header row holds the column names, there is
// no index column, and missing values are written as empty cells. The blob's
// file name is name's base with its extension replaced.
func Export(t *table.Table, name string, f Format) (*Blob, error) {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatCSV:
		data, err = encodeCSV(t)
	case FormatExcel:
		data, err = encodeExcel(t)
	default:
		return nil, fmt.Errorf("export: %w", &UnsupportedFormatError{File: name})
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", f, err)
	}
	return &Blob{
		Data:     data,
		FileName: ExportName(name, f),
		MIMEType: f.MIMEType(),
	}, nil
}

func encodeCSV(t *table.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, rec := range t.Records() {
		// A lone empty field would be an empty line, which readers skip.
		if len(rec) == 1 && rec[0] == "" {
			w.Flush()
			buf.WriteString("\"\"\n")
			continue
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeExcel(t *table.Table) ([]byte, error) {
	wb := excelize.NewFile()
	defer func() {
		_ = wb.Close()
	}()

	sw, err := wb.NewStreamWriter(exportSheet)
	if err != nil {
		return nil, err
	}
	bold, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	header := make([]any, t.Width())
	for i, name := range t.Names() {
		header[i] = name
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: bold}); err != nil {
		return nil, err
	}

	for r := 0; r < t.Rows(); r++ {
		row := t.Row(r)
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = excelCell(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return nil, err
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, err
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// excelCell maps a value to what the stream writer expects. Infinities have
// no spreadsheet representation and are written as text.
func excelCell(v table.Value) any {
	f, ok := v.Float()
	switch {
	case v.IsMissing():
		return nil
	case ok && math.IsInf(f, 0):
		return v.String()
	case ok:
		return f
	default:
		return v.String()
	}
}
