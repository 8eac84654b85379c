package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/sweeper/internal/table"
	"github.com/xuri/excelize/v2"
)

// Load parses data into a table. Any failure is returned as a *LoadError
// naming the file. Warnings are non-fatal notes about what was read.
func Load(name string, data []byte, f Format) (*table.Table, []string, error) {
	var (
		header   []string
		records  [][]string
		warnings []string
		err      error
	)
	switch f {
	case FormatCSV:
		header, records, err = readCSV(data)
	case FormatExcel:
		header, records, warnings, err = readExcel(data)
	default:
		return nil, nil, &UnsupportedFormatError{File: name}
	}
	if err != nil {
		return nil, nil, &LoadError{File: name, Err: err}
	}

	t, err := buildTable(header, records)
	if err != nil {
		return nil, nil, &LoadError{File: name, Err: err}
	}
	return t, warnings, nil
}

func readCSV(data []byte) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(normalizeText(data)))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, err
	}

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if len(rec) > len(header) {
			line, _ := r.FieldPos(0)
			return nil, nil, fmt.Errorf("record on line %d: wrong number of fields (expected %d, saw %d)",
				line, len(header), len(rec))
		}
		records = append(records, rec)
	}
	return header, records, nil
}

func readExcel(data []byte) ([]string, [][]string, []string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, nil, err
	}
	defer func() {
		_ = wb.Close()
	}()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, nil, ErrEmptyFile
	}

	var warnings []string
	if len(sheets) > 1 {
		warnings = append(warnings, fmt.Sprintf("only the first sheet %q was read; ignored: %s",
			sheets[0], strings.Join(sheets[1:], ", ")))
	}

	rows, err := wb.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, nil, err
	}

	width := 0
	kept := rows[:0]
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		kept = append(kept, row)
		width = max(width, len(row))
	}
	if len(kept) == 0 {
		return nil, nil, nil, ErrEmptyFile
	}

	header := pad(kept[0], width)
	return header, kept[1:], warnings, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func pad(row []string, n int) []string {
	if len(row) >= n {
		return row
	}
	out := make([]string, n)
	copy(out, row)
	return out
}

// buildTable pivots records into columns and infers each column's kind.
// Short records are padded with missing values.
func buildTable(rawHeader []string, records [][]string) (*table.Table, error) {
	names := uniqueHeaders(rawHeader)
	cols := make([]*table.Column, len(names))
	cells := make([]string, len(records))
	for j, name := range names {
		for i, rec := range records {
			if j < len(rec) {
				cells[i] = rec[j]
			} else {
				cells[i] = ""
			}
		}
		cols[j] = inferColumn(name, cells)
	}
	return table.New(len(records), cols...)
}
