package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sweeper/internal/logging"
	"github.com/JonMunkholm/sweeper/internal/table"
)

// Pipeline runs files through detect, load, clean, project, summarize,
// export and publish. It holds no per-file state and is safe for concurrent
// use.
type Pipeline struct {
	observer    Observer
	publisher   Publisher
	previewRows int
	bins        int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithObserver reports stage timings and outcomes to o.
func WithObserver(o Observer) PipelineOption {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithPublisher enables the publish stage.
func WithPublisher(pub Publisher) PipelineOption {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithPreviewRows sets the preview size used when Options leaves it at zero.
func WithPreviewRows(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.previewRows = n
		}
	}
}

// WithHistogramBins sets the bin count used when Options leaves it at zero.
// Zero keeps Sturges' rule.
func WithHistogramBins(n int) PipelineOption {
	return func(p *Pipeline) {
		if n >= 0 {
			p.bins = n
		}
	}
}

// NewPipeline returns a pipeline with the given options applied.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		observer:    nopObserver{},
		previewRows: DefaultPreviewRows,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CanPublish reports whether a publish sink is configured.
func (p *Pipeline) CanPublish() bool { return p.publisher != nil }

// ProcessBatch runs every file in order. A failing file is recorded in its
// report and the batch moves on. Only invalid options fail the whole batch.
// If ctx is cancelled, files not yet started are reported as failed with
// ctx.Err().
func (p *Pipeline) ProcessBatch(ctx context.Context, files []FileInput, opts Options) (*BatchReport, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults(p.previewRows, p.bins)

	batch := &BatchReport{
		ID:    uuid.NewString(),
		Files: make([]*FileReport, 0, len(files)),
	}
	ctx, logger := logging.WithFields(ctx, "batch_id", batch.ID)
	logger.Info("batch started", "files", len(files))
	start := time.Now()

	for i, f := range files {
		run := Progress{BatchID: batch.ID, FileIndex: i, FileCount: len(files), FileName: f.Name}

		var rep *FileReport
		if err := ctx.Err(); err != nil {
			rep = newReport(f)
			rep.fail(err)
		} else {
			rep = p.process(ctx, run, f, opts)
		}

		batch.Files = append(batch.Files, rep)
		if rep.OK() {
			batch.Succeeded++
		} else {
			batch.Failed++
		}
	}

	batch.Duration = time.Since(start)
	logger.Info("batch finished",
		"succeeded", batch.Succeeded,
		"failed", batch.Failed,
		"duration", batch.Duration,
	)
	return batch, nil
}

// Process runs a single file. The returned error is non-nil only for
// invalid options; file failures are in the report.
func (p *Pipeline) Process(ctx context.Context, f FileInput, opts Options) (*FileReport, error) {
	batch, err := p.ProcessBatch(ctx, []FileInput{f}, opts)
	if err != nil {
		return nil, err
	}
	return batch.Files[0], nil
}

func newReport(f FileInput) *FileReport {
	return &FileReport{
		FileName: f.Name,
		SizeKB:   float64(len(f.Data)) / 1024,
		Messages: []Message{},
	}
}

// fileRun carries the per-file state threaded through the stages.
type fileRun struct {
	p      *Pipeline
	ctx    context.Context
	logger *slog.Logger
	opts   Options
	prog   Progress
	rep    *FileReport
}

// stage reports progress, runs fn and records its duration.
func (r *fileRun) stage(s Stage, fn func() error) error {
	r.prog.Stage = s
	if r.opts.Progress != nil {
		r.opts.Progress(r.prog)
	}
	start := time.Now()
	err := fn()
	d := time.Since(start)
	r.p.observer.ObserveStage(s, d)
	r.logger.Debug("stage finished", "stage", s, "duration", d, "error", err)
	return err
}

func (p *Pipeline) process(ctx context.Context, prog Progress, f FileInput, opts Options) *FileReport {
	ctx, logger := logging.WithFields(ctx, "file", f.Name)
	run := &fileRun{p: p, ctx: ctx, logger: logger, opts: opts, prog: prog, rep: newReport(f)}
	start := time.Now()

	err := run.safeExecute(f)
	if err != nil {
		run.rep.fail(err)
	} else {
		run.rep.add(LevelSuccess, "%s processed successfully", f.Name)
	}
	run.rep.Duration = time.Since(start)

	p.observer.ObserveFile(run.rep.Format, run.rep.Outcome())
	attrs := []any{
		"format", run.rep.Format,
		"rows", run.rep.Rows,
		"outcome", run.rep.Outcome(),
		"duration", run.rep.Duration,
	}
	if err != nil {
		logger.Warn("file failed", append(attrs, "error", err)...)
	} else {
		logger.Info("file processed", attrs...)
	}

	if opts.Progress != nil {
		run.prog.Stage = StageDone
		opts.Progress(run.prog)
	}
	return run.rep
}

// safeExecute turns a panic in any stage into an error for this file only.
func (r *fileRun) safeExecute(f FileInput) (err error) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("stage panicked", "stage", r.prog.Stage, "panic", v, "stack", string(debug.Stack()))
			err = fmt.Errorf("%s stage failed: %v", r.prog.Stage, v)
		}
	}()
	return r.execute(f)
}

func (r *fileRun) execute(f FileInput) error {
	rep, opts := r.rep, r.opts

	var format Format
	if err := r.stage(StageDetect, func() (err error) {
		format, err = detect(f.Name)
		return err
	}); err != nil {
		return err
	}
	rep.Format = format

	var t *table.Table
	if err := r.stage(StageLoad, func() error {
		loaded, warnings, err := Load(f.Name, f.Data, format)
		if err != nil {
			return err
		}
		t = loaded
		for _, w := range warnings {
			rep.add(LevelWarning, "%s", w)
		}
		return nil
	}); err != nil {
		return err
	}
	rep.Preview = t.Head(opts.PreviewRows)
	rep.add(LevelInfo, "Loaded %d rows and %d columns from %s (%.2f KB)",
		t.Rows(), t.Width(), format.Label(), rep.SizeKB)

	if opts.RemoveDuplicates || opts.FillMissing {
		_ = r.stage(StageClean, func() error {
			t = r.clean(t)
			return nil
		})
	}

	if opts.Columns != nil {
		if err := r.stage(StageProject, func() (err error) {
			t, err = Project(t, opts.Columns)
			return err
		}); err != nil {
			return err
		}
	}

	rep.Rows = t.Rows()
	rep.Columns = describeColumns(t)

	if opts.Describe || opts.Histogram {
		_ = r.stage(StageSummarize, func() error {
			r.summarize(t)
			return nil
		})
	}

	if target := opts.Target(); target != FormatUnsupported {
		if err := r.stage(StageExport, func() error {
			blob, err := Export(t, f.Name, target)
			if err != nil {
				return err
			}
			rep.Blob = blob
			r.p.observer.ObserveExport(target, len(blob.Data))
			rep.add(LevelSuccess, "Converted %s to %s (%s)", f.Name, target.Label(), blob.FileName)
			return nil
		}); err != nil {
			return err
		}
	}

	if opts.PublishTable != "" {
		if err := r.stage(StagePublish, func() error {
			return r.publish(t)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (r *fileRun) clean(t *table.Table) *table.Table {
	if r.opts.RemoveDuplicates {
		var removed int
		t, removed = RemoveDuplicates(t)
		r.rep.add(LevelSuccess, "Duplicates removed: %d of %d rows dropped", removed, t.Rows()+removed)
	}
	if r.opts.FillMissing {
		var res FillResult
		t, res = FillMissingNumeric(t)
		r.rep.add(LevelSuccess, "Missing values filled: %d cells in %d numeric columns", res.Total(), len(res.Filled))
		for _, w := range res.Warnings() {
			r.warn(w)
		}
	}
	return t
}

func (r *fileRun) summarize(t *table.Table) {
	if r.opts.Describe {
		r.rep.Stats = Describe(t)
		if len(r.rep.Stats.Columns) == 0 {
			r.rep.add(LevelInfo, "No numeric columns to describe")
		}
	}
	if r.opts.Histogram {
		h, err := BuildHistogram(t, r.opts.HistogramBins)
		switch {
		case err == nil:
			r.rep.Histogram = h
		case errors.Is(err, ErrNoNumericColumn), errors.Is(err, ErrEmptyNumericColumn):
			r.warn(err)
		default:
			r.warn(fmt.Errorf("histogram: %w", err))
		}
	}
}

func (r *fileRun) publish(t *table.Table) error {
	if r.p.publisher == nil {
		r.warn(ErrPublishDisabled)
		return nil
	}
	n, err := r.p.publisher.Publish(r.ctx, r.opts.PublishTable, t)
	if err != nil {
		return &PublishError{Table: r.opts.PublishTable, Err: err}
	}
	r.rep.Published = n
	r.rep.add(LevelSuccess, "Published %d rows to %s", n, r.opts.PublishTable)
	return nil
}

// warn records a non-fatal problem with its user-facing code.
func (r *fileRun) warn(err error) {
	r.rep.Messages = append(r.rep.Messages, Message{
		Level: LevelWarning,
		Text:  err.Error(),
		Code:  MapError(err).Code,
	})
	r.logger.Warn("file warning", "warning", err)
}

func describeColumns(t *table.Table) []ColumnInfo {
	out := make([]ColumnInfo, t.Width())
	for i, c := range t.Columns() {
		out[i] = ColumnInfo{Name: c.Name, Kind: c.Kind, Missing: c.Missing()}
	}
	return out
}
