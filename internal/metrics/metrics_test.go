package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sweeper/internal/core"
)

func TestRecorder_PipelineMetrics(t *testing.T) {
	r := New()
	p := core.NewPipeline(core.WithObserver(r))

	_, err := p.ProcessBatch(context.Background(), []core.FileInput{
		{Name: "a.csv", Data: []byte("x\n1\n")},
		{Name: "b.txt", Data: []byte("nope")},
	}, core.Options{ConvertTo: "excel"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.filesProcessed.WithLabelValues("csv", core.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.filesProcessed.WithLabelValues("unsupported", core.OutcomeFailed)))
	assert.Greater(t, testutil.ToFloat64(r.exportBytes.WithLabelValues("excel")), 0.0)
	assert.Equal(t, 3, testutil.CollectAndCount(r.stageDuration), "detect, load and export observed")
}

func TestRecorder_ObserveRequest(t *testing.T) {
	r := New()
	r.ObserveRequest(http.MethodPost, "/api/sweep", http.StatusOK, 20*time.Millisecond)
	r.ObserveRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("POST", "/api/sweep", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.ObserveFile(core.FormatCSV, core.OutcomeOK)
	r.SetBatchesInFlight(2)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `sweeper_files_processed_total{format="csv",outcome="ok"} 1`)
	assert.Contains(t, string(body), "sweeper_batches_in_flight 2")
	assert.Contains(t, string(body), "go_goroutines")
}
