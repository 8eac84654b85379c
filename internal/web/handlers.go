package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/logging"
	"github.com/JonMunkholm/sweeper/internal/table"
	"github.com/JonMunkholm/sweeper/internal/web/templates"
)

var (
	errNoFile       = errors.New("no file provided")
	errTooManyFiles = errors.New("too many files")
	errBadForm      = errors.New("invalid upload form")
)

// sweepRequest is a parsed upload form.
type sweepRequest struct {
	files []core.FileInput
	opts  core.Options
}

// formMode says how the columns field is read.
type formMode int

const (
	// apiForm: a present columns field projects, even when empty.
	apiForm formMode = iota
	// pageForm: columns apply only when the select_columns box is ticked,
	// since browsers always submit the text field.
	pageForm
)

// parseSweepForm reads files and options from a multipart request.
func (s *Server) parseSweepForm(r *http.Request, mode formMode) (*sweepRequest, error) {
	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileSize); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadForm, err)
	}
	form := r.MultipartForm

	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		return nil, errNoFile
	}
	if len(headers) > s.cfg.Upload.MaxFiles {
		return nil, fmt.Errorf("%w: %d (limit %d)", errTooManyFiles, len(headers), s.cfg.Upload.MaxFiles)
	}

	req := &sweepRequest{files: make([]core.FileInput, 0, len(headers))}
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		req.files = append(req.files, core.FileInput{Name: fh.Filename, Data: data})
	}

	opts, err := parseOptions(r, mode)
	if err != nil {
		return nil, err
	}
	req.opts = opts
	return req, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return data, nil
}

func parseOptions(r *http.Request, mode formMode) (core.Options, error) {
	opts := core.Options{
		RemoveDuplicates: formBool(r, "remove_duplicates"),
		FillMissing:      formBool(r, "fill_missing"),
		Describe:         formBool(r, "describe"),
		Histogram:        formBool(r, "histogram"),
		ConvertTo:        strings.ToLower(strings.TrimSpace(r.FormValue("convert_to"))),
		PublishTable:     strings.TrimSpace(r.FormValue("publish_table")),
	}

	if vals, ok := r.MultipartForm.Value["columns"]; ok {
		if mode == apiForm || formBool(r, "select_columns") {
			opts.Columns = core.ParseColumnList(strings.Join(vals, ","))
		}
	}

	var err error
	if opts.PreviewRows, err = formInt(r, "preview_rows"); err != nil {
		return opts, err
	}
	if opts.HistogramBins, err = formInt(r, "histogram_bins"); err != nil {
		return opts, err
	}
	return opts, opts.Validate()
}

// formBool accepts the values browsers and scripts send for a ticked box.
func formBool(r *http.Request, name string) bool {
	switch strings.ToLower(strings.TrimSpace(r.FormValue(name))) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}

func formInt(r *http.Request, name string) (int, error) {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid option: %s must be a whole number", name)
	}
	return n, nil
}

// runBatch processes req while holding a batch slot.
func (s *Server) runBatch(ctx context.Context, req *sweepRequest) (*core.BatchReport, error) {
	var batch *core.BatchReport
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		s.updateInFlight()
		var err error
		batch, err = s.pipeline.ProcessBatch(ctx, req.files, req.opts)
		return err
	})
	s.updateInFlight()
	return batch, err
}

func (s *Server) updateInFlight() {
	if s.metrics != nil {
		s.metrics.SetBatchesInFlight(s.limiter.ActiveCount())
	}
}

// sweep parses the form and runs the batch, answering errors itself.
func (s *Server) sweep(w http.ResponseWriter, r *http.Request, mode formMode) (*core.BatchReport, bool) {
	req, err := s.parseSweepForm(r, mode)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return nil, false
	}
	batch, err := s.runBatch(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return nil, false
	}
	return batch, true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := templates.Upload(templates.UploadPage{
		MaxFiles:   s.cfg.Upload.MaxFiles,
		MaxSizeMB:  float64(s.cfg.Upload.MaxFileSize) / (1 << 20),
		CanPublish: s.pipeline.CanPublish(),
	})
	s.renderPage(w, r, page)
}

// handleSweepPage runs a batch from the upload form and renders the report.
func (s *Server) handleSweepPage(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.sweep(w, r, pageForm)
	if !ok {
		return
	}
	s.renderPage(w, r, templates.Report(batch))
}

// handleSweepAPI runs a batch and returns the reports as JSON. Exported
// files are base64 in each report's blob.
func (s *Server) handleSweepAPI(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.sweep(w, r, apiForm)
	if !ok {
		return
	}
	render.JSON(w, r, batch)
}

// handleConvert runs one file and responds with the converted bytes.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseSweepForm(r, apiForm)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if len(req.files) != 1 {
		err := fmt.Errorf("%w: convert takes exactly one file, got %d", errTooManyFiles, len(req.files))
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if req.opts.Target() == core.FormatUnsupported {
		s.respondError(w, r, errors.New("invalid option: convert_to is required"), http.StatusBadRequest)
		return
	}

	batch, err := s.runBatch(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	rep := batch.Files[0]
	if !rep.OK() {
		s.respondError(w, r, rep.Err, http.StatusUnprocessableEntity)
		return
	}

	blob := rep.Blob
	w.Header().Set("Content-Type", blob.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", blob.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.Header().Set("X-Batch-ID", batch.ID)
	if n := len(rep.Warnings()); n > 0 {
		w.Header().Set("X-Sweeper-Warnings", strconv.Itoa(n))
	}
	if _, err := w.Write(blob.Data); err != nil {
		logging.FromContext(r.Context()).Warn("write converted file", "error", err)
	}
}

// PreviewResponse is the body of POST /api/preview.
type PreviewResponse struct {
	FileName string            `json:"file_name"`
	SizeKB   float64           `json:"size_kb"`
	Format   core.Format       `json:"format"`
	Rows     int               `json:"rows"`
	Columns  []core.ColumnInfo `json:"columns"`
	Preview  *table.Table      `json:"preview"`
	Messages []core.Message    `json:"messages"`
}

// handlePreview loads one file and returns its columns and first rows.
// Cleaning, projection and conversion options are ignored.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseSweepForm(r, apiForm)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if len(req.files) != 1 {
		err := fmt.Errorf("%w: preview takes exactly one file, got %d", errTooManyFiles, len(req.files))
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	req.opts = core.Options{PreviewRows: req.opts.PreviewRows}
	batch, err := s.runBatch(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	rep := batch.Files[0]
	if !rep.OK() {
		s.respondError(w, r, rep.Err, http.StatusUnprocessableEntity)
		return
	}

	render.JSON(w, r, PreviewResponse{
		FileName: rep.FileName,
		SizeKB:   rep.SizeKB,
		Format:   rep.Format,
		Rows:     rep.Rows,
		Columns:  rep.Columns,
		Preview:  rep.Preview,
		Messages: rep.Messages,
	})
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, page templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}
