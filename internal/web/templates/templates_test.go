package templates

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/table"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestErrorAlert_Escapes(t *testing.T) {
	out := renderString(t, ErrorAlert("<b>bad</b>", "retry & wait", "ERR000"))
	assert.Contains(t, out, "&lt;b&gt;bad&lt;/b&gt;")
	assert.Contains(t, out, "retry &amp; wait")
	assert.Contains(t, out, "(ERR000)")
}

func TestUpload_PublishFieldOnlyWhenEnabled(t *testing.T) {
	assert.NotContains(t, renderString(t, Upload(UploadPage{MaxFiles: 3})), "publish_table")
	assert.Contains(t, renderString(t, Upload(UploadPage{MaxFiles: 3, CanPublish: true})), "publish_table")
}

func TestDataTable(t *testing.T) {
	tbl := table.MustNew(2,
		&table.Column{Name: "n", Kind: table.KindNumeric, Values: []table.Value{table.Number(1.5), table.Missing()}},
		&table.Column{Name: "<s>", Kind: table.KindText, Values: []table.Value{table.Text("x"), table.Text("y")}},
	)
	out := renderString(t, DataTable(tbl))
	assert.Contains(t, out, "<th>&lt;s&gt;</th>")
	assert.Contains(t, out, `<td class="num">1.5</td>`)
	assert.Contains(t, out, `<td class="na">NaN</td>`)
}

func TestStatsTable_RoundsAndMarksUndefined(t *testing.T) {
	third := 1.0 / 3
	d := &core.Description{Columns: []core.ColumnStats{{Column: "v", Count: 1, Mean: &third}}}
	out := renderString(t, StatsTable(d))
	assert.Contains(t, out, "<th>count</th><td class=\"num\">1</td>")
	assert.Contains(t, out, "0.333333")
	assert.Contains(t, out, `<th>std</th><td class="na">NaN</td>`)
}

func TestHistogramBars_ScalesToPeak(t *testing.T) {
	h := &core.Histogram{Column: "v", Bins: []core.Bin{
		{Lower: 0, Upper: 1, Count: 4},
		{Lower: 1, Upper: 2, Count: 2},
	}, Missing: 1}
	out := renderString(t, HistogramBars(h))
	assert.Contains(t, out, `max="4" value="4"`)
	assert.Contains(t, out, `max="4" value="2"`)
	assert.Contains(t, out, "1 missing")

	empty := renderString(t, HistogramBars(&core.Histogram{Column: "v"}))
	assert.Contains(t, empty, "No values to plot")
}

func TestDownloadLink(t *testing.T) {
	b := &core.Blob{Data: []byte("a\n1\n"), FileName: "x.csv", MIMEType: core.MIMETypeCSV}
	assert.Equal(t, "data:"+core.MIMETypeCSV+";base64,YQoxCg==", DownloadURL(b))
	assert.Contains(t, renderString(t, DownloadLink(b)), `download="x.csv"`)
}

func TestReport_RendersEachFileInLayout(t *testing.T) {
	batch := &core.BatchReport{Succeeded: 1, Failed: 1, Files: []*core.FileReport{
		{FileName: "a.csv", Messages: []core.Message{{Level: core.LevelSuccess, Text: "loaded"}},
			Histogram: &core.Histogram{Column: "v", Bins: []core.Bin{{Lower: 0, Upper: 1, Count: 1}}}},
		{FileName: "<b>.csv", Messages: []core.Message{{Level: core.LevelError, Text: "bad", Code: "LOAD001"}}},
	}}
	out := renderString(t, Report(batch))
	assert.Contains(t, out, "<!doctype html>")
	assert.Contains(t, out, "<title>Data Sweeper: results</title>")
	assert.Contains(t, out, "1 processed, 1 failed.")
	assert.Contains(t, out, `data-level="success"`)
	assert.Contains(t, out, "Histogram of v")
	assert.Contains(t, out, "&lt;b&gt;.csv")
	assert.Contains(t, out, `<span class="code">(LOAD001)</span>`)
}

func TestFileSection_DownloadKeepsDataURL(t *testing.T) {
	rep := &core.FileReport{FileName: "a.csv", Blob: &core.Blob{Data: []byte("a\n"), FileName: "a.xlsx", MIMEType: core.MIMETypeExcel}}
	out := renderString(t, FileSection(rep))
	assert.Contains(t, out, `href="data:`+core.MIMETypeExcel+`;base64,`)
	assert.NotContains(t, out, "about:invalid")
}

func TestErrorPage_WrapsAlert(t *testing.T) {
	out := renderString(t, ErrorPage("Upload failed", "Try again", "UPL001"))
	assert.Contains(t, out, "<title>Data Sweeper: error</title>")
	assert.Contains(t, out, `role="alert"`)
	assert.Contains(t, out, `<span class="action">Try again</span>`)
}

func TestUpload_ShowsLimits(t *testing.T) {
	out := renderString(t, Upload(UploadPage{MaxFiles: 5, MaxSizeMB: 200}))
	assert.Contains(t, out, `action="/sweep"`)
	assert.Contains(t, out, "Up to 5 files, 200 MB per request.")
	assert.Contains(t, out, `name="remove_duplicates" value="true"`)
}
