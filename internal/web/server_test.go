package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sweeper/internal/config"
	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/metrics"
	"github.com/JonMunkholm/sweeper/internal/table"
)

const sampleCSV = "a,b\n1,\n1,3\n2,4\n"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080, RequestTimeout: 10 * time.Second},
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			MaxFiles:      3,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
		},
		Rate:     config.RateLimitConfig{Enabled: false},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *metrics.Recorder) {
	t.Helper()
	rec := metrics.New()
	p := core.NewPipeline(core.WithObserver(rec))
	lim := core.NewBatchLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	return NewServer(cfg, p, lim, rec), rec
}

type upload struct {
	name string
	data string
}

// multipartBody builds a form with the given files and fields.
func multipartBody(t *testing.T, files []upload, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.data))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func post(t *testing.T, s *Server, path string, files []upload, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, ctype := multipartBody(t, files, fields)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `action="/sweep"`)
	assert.NotContains(t, rec.Body.String(), "publish_table", "no sink configured")
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

type apiBatch struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Files     []struct {
		FileName string         `json:"file_name"`
		Format   string         `json:"format"`
		Rows     int            `json:"rows"`
		Messages []core.Message `json:"messages"`
		Blob     *core.Blob     `json:"blob"`
	} `json:"files"`
}

func TestSweepAPI_ConvertsAndIsolatesFailures(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	rec := post(t, s, "/api/sweep",
		[]upload{{"data.csv", sampleCSV}, {"report.txt", "hello"}},
		map[string]string{
			"remove_duplicates": "true",
			"fill_missing":      "on",
			"columns":           "b",
			"convert_to":        "csv",
		})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got apiBatch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Succeeded)
	assert.Equal(t, 1, got.Failed)
	require.Len(t, got.Files, 2)

	ok := got.Files[0]
	assert.Equal(t, "csv", ok.Format)
	require.NotNil(t, ok.Blob)
	assert.Equal(t, "data.csv", ok.Blob.FileName)
	assert.Equal(t, "b\n3.5\n3\n4\n", string(ok.Blob.Data))

	bad := got.Files[1]
	require.NotEmpty(t, bad.Messages)
	last := bad.Messages[len(bad.Messages)-1]
	assert.Equal(t, core.LevelError, last.Level)
	assert.Equal(t, "FMT001", last.Code)
}

func TestSweepAPI_EmptyColumnsFieldProjectsToNothing(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	rec := post(t, s, "/api/sweep", []upload{{"data.csv", sampleCSV}}, map[string]string{"columns": ""})
	require.Equal(t, http.StatusOK, rec.Code)

	var got apiBatch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Files, 1)
	assert.Equal(t, 3, got.Files[0].Rows)
}

func TestSweepAPI_RequestErrors(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	tests := []struct {
		name     string
		files    []upload
		fields   map[string]string
		status   int
		wantCode string
	}{
		{"no files", nil, map[string]string{"describe": "true"}, http.StatusBadRequest, "FILE004"},
		{"too many files", []upload{{"1.csv", "a\n1"}, {"2.csv", "a\n1"}, {"3.csv", "a\n1"}, {"4.csv", "a\n1"}}, nil, http.StatusBadRequest, "FILE003"},
		{"bad target", []upload{{"1.csv", "a\n1"}}, map[string]string{"convert_to": "pdf"}, http.StatusBadRequest, "OPT001"},
		{"bad bins", []upload{{"1.csv", "a\n1"}}, map[string]string{"histogram_bins": "many"}, http.StatusBadRequest, "OPT001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, s, "/api/sweep", tt.files, tt.fields)
			assert.Equal(t, tt.status, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestSweepAPI_NotMultipart(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/sweep", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "FILE002")
}

func TestSweepAPI_BodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 64
	s, _ := newTestServer(t, cfg)

	rec := post(t, s, "/api/sweep", []upload{{"big.csv", "a\n" + strings.Repeat("1\n", 200)}}, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "FILE001")
}

func TestSweepPage_RendersReport(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	rec := post(t, s, "/sweep",
		[]upload{{"data.csv", sampleCSV}},
		map[string]string{
			// The text field alone does not project on the page form.
			"columns":    "missing_column",
			"describe":   "on",
			"histogram":  "on",
			"convert_to": "excel",
		})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := rec.Body.String()
	assert.Contains(t, body, "data.csv")
	assert.Contains(t, body, "processed successfully")
	assert.Contains(t, body, "Summary statistics")
	assert.Contains(t, body, "Histogram of a")
	assert.Contains(t, body, `download="data.xlsx"`)
	assert.Contains(t, body, "data:"+core.MIMETypeExcel+";base64,")
}

func TestSweepPage_SelectedColumnsMissing(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	rec := post(t, s, "/sweep",
		[]upload{{"data.csv", sampleCSV}},
		map[string]string{"select_columns": "true", "columns": "c"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "COL001")
}

func TestSweepPage_ErrorIsHTML(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	rec := post(t, s, "/sweep", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "No file was selected")
}

func TestConvert_ReturnsAttachment(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	rec := post(t, s, "/api/convert", []upload{{"Sales Q1.csv", sampleCSV}}, map[string]string{"convert_to": "xlsx"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, core.MIMETypeExcel, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Sales Q1.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.NotEmpty(t, rec.Header().Get("X-Batch-ID"))

	wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()
	rows, err := wb.GetRows("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, rows[0])
	assert.Len(t, rows, 4)
}

func TestConvert_Errors(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	rec := post(t, s, "/api/convert", []upload{{"data.csv", sampleCSV}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "target required")
	assert.Contains(t, rec.Body.String(), "OPT001")

	rec = post(t, s, "/api/convert", []upload{{"a.csv", sampleCSV}, {"b.csv", sampleCSV}}, map[string]string{"convert_to": "csv"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "one file only")

	rec = post(t, s, "/api/convert", []upload{{"notes.txt", "x"}}, map[string]string{"convert_to": "csv"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "FMT001")
}

func TestPreview(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	rec := post(t, s, "/api/preview",
		[]upload{{"data.csv", sampleCSV}},
		map[string]string{"preview_rows": "2", "columns": "zzz"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		Format  core.Format       `json:"format"`
		Rows    int               `json:"rows"`
		Columns []core.ColumnInfo `json:"columns"`
		Preview struct {
			Rows [][]any `json:"rows"`
		} `json:"preview"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Rows)
	require.Len(t, got.Columns, 2)
	assert.Equal(t, core.FormatCSV, got.Format)
	assert.Equal(t, table.KindNumeric, got.Columns[1].Kind)
	assert.Equal(t, 1, got.Columns[1].Missing)
	assert.Equal(t, [][]any{{1.0, nil}, {1.0, 3.0}}, got.Preview.Rows)
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Batches.MaxConcurrent)
	assert.False(t, health.Publishing)

	post(t, s, "/api/sweep", []upload{{"data.csv", sampleCSV}}, nil)

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sweeper_files_processed_total{format="csv",outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), `route="/api/sweep"`)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	s, _ := newTestServer(t, cfg)

	do := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
		return rec
	}
	assert.NotEqual(t, http.StatusTooManyRequests, do().Code)

	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE001")
}

func TestBusyLimiterRejects(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxConcurrent = 1
	cfg.Upload.MaxWaitTime = 10 * time.Millisecond
	s, _ := newTestServer(t, cfg)

	require.True(t, s.limiter.TryAcquire())
	defer s.limiter.Release()

	rec := post(t, s, "/api/sweep", []upload{{"data.csv", sampleCSV}}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "UPL002")
}
