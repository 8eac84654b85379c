package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/sweeper/internal/table"
)

// Format identifies a supported tabular file format.
type Format int

const (
	FormatUnsupported Format = iota
	FormatCSV
	FormatExcel
)

// MIME types used for downloads.
const (
	MIMETypeCSV   = "text/csv"
	MIMETypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// String returns the short format name ("csv", "excel").
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatExcel:
		return "excel"
	default:
		return "unsupported"
	}
}

// MarshalText lets Format appear as a string in JSON.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText accepts the names written by MarshalText, plus "xlsx".
func (f *Format) UnmarshalText(b []byte) error {
	if string(b) == "unsupported" {
		*f = FormatUnsupported
		return nil
	}
	parsed, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	if parsed == FormatUnsupported {
		return fmt.Errorf("empty format")
	}
	*f = parsed
	return nil
}

// Label is the display name used in the UI ("CSV", "Excel").
func (f Format) Label() string {
	switch f {
	case FormatCSV:
		return "CSV"
	case FormatExcel:
		return "Excel"
	default:
		return "Unsupported"
	}
}

// Extension returns the file extension written on export, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatExcel:
		return ".xlsx"
	default:
		return ""
	}
}

// MIMEType returns the content type of exported files.
func (f Format) MIMEType() string {
	switch f {
	case FormatCSV:
		return MIMETypeCSV
	case FormatExcel:
		return MIMETypeExcel
	default:
		return "application/octet-stream"
	}
}

// ParseFormat parses a conversion target. Empty input means "no conversion"
// and returns FormatUnsupported with a nil error.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return FormatUnsupported, nil
	case "csv":
		return FormatCSV, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	default:
		return FormatUnsupported, fmt.Errorf("invalid conversion target %q (want csv or excel)", s)
	}
}

// Blob is an exported file held in memory. The caller owns Data.
type Blob struct {
	Data     []byte `json:"data"`
	FileName string `json:"file_name"`
	MIMEType string `json:"mime_type"`
}

// FileInput is one uploaded file.
type FileInput struct {
	Name string
	Data []byte
}

// Level is the severity of a report message.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is a user-visible status line attached to a file report.
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
	Code  string `json:"code,omitempty"`
}

// ColumnInfo describes one column of the final table.
type ColumnInfo struct {
	Name    string     `json:"name"`
	Kind    table.Kind `json:"kind"`
	Missing int        `json:"missing"`
}

// Stage names one step of the per-file pipeline.
type Stage string

const (
	StageDetect    Stage = "detect"
	StageLoad      Stage = "load"
	StageClean     Stage = "clean"
	StageProject   Stage = "project"
	StageSummarize Stage = "summarize"
	StageExport    Stage = "export"
	StagePublish   Stage = "publish"
	StageDone      Stage = "done"
)

// Progress is reported before each stage runs.
type Progress struct {
	BatchID   string `json:"batch_id"`
	FileIndex int    `json:"file_index"`
	FileCount int    `json:"file_count"`
	FileName  string `json:"file_name"`
	Stage     Stage  `json:"stage"`
}

// Percent returns how far through the batch this event is (0-100).
func (p Progress) Percent() int {
	if p.FileCount == 0 {
		return 0
	}
	return (p.FileIndex * 100) / p.FileCount
}

// ProgressFunc receives progress events. It is called synchronously.
type ProgressFunc func(Progress)

// Outcome of processing one file.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// FileReport is everything produced for one file.
type FileReport struct {
	FileName  string        `json:"file_name"`
	SizeKB    float64       `json:"size_kb"`
	Format    Format        `json:"format"`
	Rows      int           `json:"rows"`
	Columns   []ColumnInfo  `json:"columns,omitempty"`
	Preview   *table.Table  `json:"preview,omitempty"`
	Messages  []Message     `json:"messages"`
	Stats     *Description  `json:"stats,omitempty"`
	Histogram *Histogram    `json:"histogram,omitempty"`
	Blob      *Blob         `json:"blob,omitempty"`
	Published int64         `json:"published_rows,omitempty"`
	Duration  time.Duration `json:"duration_ns"`

	// Err is the error that aborted this file, if any.
	Err error `json:"-"`
}

// OK reports whether the file went through every requested stage.
func (r *FileReport) OK() bool { return r.Err == nil }

// Outcome returns OutcomeOK or OutcomeFailed.
func (r *FileReport) Outcome() string {
	if r.OK() {
		return OutcomeOK
	}
	return OutcomeFailed
}

func (r *FileReport) add(level Level, format string, args ...any) {
	r.Messages = append(r.Messages, Message{Level: level, Text: fmt.Sprintf(format, args...)})
}

// fail records err as the reason this file stopped.
func (r *FileReport) fail(err error) {
	r.Err = err
	msg := MapError(err)
	r.Messages = append(r.Messages, Message{
		Level: LevelError,
		Text:  fmt.Sprintf("%s: %s", r.FileName, err.Error()),
		Code:  msg.Code,
	})
}

// Warnings returns the warning messages.
func (r *FileReport) Warnings() []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Level == LevelWarning {
			out = append(out, m)
		}
	}
	return out
}

// BatchReport groups the reports of one batch, in upload order.
type BatchReport struct {
	ID        string        `json:"id"`
	Files     []*FileReport `json:"files"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration_ns"`
}

// Publisher writes a finished table to an external store.
type Publisher interface {
	Publish(ctx context.Context, name string, t *table.Table) (int64, error)
}

// Observer receives timing and outcome events for metrics.
type Observer interface {
	ObserveStage(stage Stage, d time.Duration)
	ObserveFile(format Format, outcome string)
	ObserveExport(format Format, size int)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(Stage, time.Duration) {}
func (nopObserver) ObserveFile(Format, string)        {}
func (nopObserver) ObserveExport(Format, int)         {}
