package core

import (
	"path/filepath"
	"strings"
)

// DetectFormat picks a parser from the file name's extension,
// compared case-insensitively.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatExcel
	default:
		return FormatUnsupported
	}
}

// detect is DetectFormat with the error the pipeline reports.
func detect(name string) (Format, error) {
	f := DetectFormat(name)
	if f == FormatUnsupported {
		return f, &UnsupportedFormatError{File: name, Ext: strings.ToLower(filepath.Ext(name))}
	}
	return f, nil
}

// ExportName returns the download name for name converted to f: the base
// name with its extension replaced.
func ExportName(name string, f Format) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "export"
	}
	return base + f.Extension()
}
