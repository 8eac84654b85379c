package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyNumericColumn marks a numeric column with no values to average
	// or plot. It is reported as a warning, never as a failure.
	ErrEmptyNumericColumn = errors.New("numeric column has no values")

	// ErrNoNumericColumn is returned by BuildHistogram when the table has
	// nothing to plot.
	ErrNoNumericColumn = errors.New("no numeric columns found for visualization")

	// ErrPublishDisabled is returned when a publish target is requested but no
	// database is configured.
	ErrPublishDisabled = errors.New("publish sink not configured")

	// ErrEmptyFile is wrapped in a LoadError when the input has no header row.
	ErrEmptyFile = errors.New("empty file: no columns to parse")
)

// UnsupportedFormatError is returned for file names whose extension has no parser.
type UnsupportedFormatError struct {
	File string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	ext := e.Ext
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("unsupported file format %s", ext)
}

// LoadError is returned when file content cannot be parsed into a table.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load failed: %v", e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ColumnNotFoundError is returned when a projection names columns the table lacks.
type ColumnNotFoundError struct {
	Missing   []string
	Available []string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column not found: %s (available: %s)",
		quoteList(e.Missing), quoteList(e.Available))
}

// PublishError wraps a failure writing to the publish sink.
type PublishError struct {
	Table string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %q failed: %v", e.Table, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

func quoteList(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}
