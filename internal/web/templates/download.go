package templates

import (
	"context"
	"encoding/base64"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/table"
)

// DownloadURL encodes b as a data URI.
func DownloadURL(b *core.Blob) string {
	return "data:" + b.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(b.Data)
}

// DownloadLink renders a button that saves b under its file name. templ
// rewrites data: URLs in href attributes, so the link is written directly.
func DownloadLink(b *core.Blob) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<p><a class="btn" href="`+templ.EscapeString(DownloadURL(b))+
			`" download="`+templ.EscapeString(b.FileName)+`">Download `+
			templ.EscapeString(b.FileName)+`</a></p>`)
		return err
	})
}

// formatStat rounds to six decimals before trimming trailing zeros.
func formatStat(f float64) string {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 6, 64), 64)
	if err != nil {
		return table.FormatNumber(f)
	}
	return table.FormatNumber(rounded)
}
