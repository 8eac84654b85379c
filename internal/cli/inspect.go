package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/table"
)

// barWidth is the length of the longest histogram bar in characters.
const barWidth = 40

type inspectOptions struct {
	rows      int
	describe  bool
	histogram bool
	bins      int
}

func newInspectCommand() *cobra.Command {
	var o inspectOptions

	cmd := &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Show a preview, column kinds and statistics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args, o)
		},
	}

	f := cmd.Flags()
	f.IntVar(&o.rows, "rows", core.DefaultPreviewRows, "rows to preview")
	f.BoolVar(&o.describe, "describe", false, "print summary statistics")
	f.BoolVar(&o.histogram, "histogram", false, "print a histogram of the first numeric column")
	f.IntVar(&o.bins, "bins", 0, "histogram bins (0 picks Sturges' rule)")
	return cmd
}

func runInspect(cmd *cobra.Command, paths []string, o inspectOptions) error {
	files, err := readInputs(paths)
	if err != nil {
		return err
	}
	opts := core.Options{
		PreviewRows:   o.rows,
		Describe:      o.describe,
		Histogram:     o.histogram,
		HistogramBins: o.bins,
	}
	batch, err := core.NewPipeline().ProcessBatch(cmd.Context(), files, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, rep := range batch.Files {
		fmt.Fprintln(out, TitleStyle.Render(rep.FileName))
		fmt.Fprintln(out, SubtitleStyle.Render(fmt.Sprintf("%s, %.2f KB, %d rows", rep.Format.Label(), rep.SizeKB, rep.Rows)))
		printMessages(out, rep)
		if !rep.OK() {
			continue
		}

		if rep.Preview != nil && rep.Preview.Width() > 0 {
			fmt.Fprintln(out, renderPreview(rep.Preview))
		}
		fmt.Fprintln(out, renderColumns(rep.Columns))
		if rep.Stats != nil && len(rep.Stats.Columns) > 0 {
			fmt.Fprintln(out, renderStats(rep.Stats))
		}
		if rep.Histogram != nil {
			writeHistogram(out, rep.Histogram)
		}
	}

	if batch.Failed > 0 {
		return ErrFilesFailed
	}
	return nil
}

func newTable() *ltable.Table {
	return ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtitleStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return HeaderStyle
			}
			return CellStyle
		})
}

func renderPreview(t *table.Table) string {
	tbl := newTable().Headers(t.Names()...)
	for i := 0; i < t.Rows(); i++ {
		row := t.Row(i)
		cells := make([]string, len(row))
		for j, v := range row {
			if v.IsMissing() {
				cells[j] = "NaN"
				continue
			}
			cells[j] = v.String()
		}
		tbl.Row(cells...)
	}
	return tbl.Render()
}

func renderColumns(cols []core.ColumnInfo) string {
	tbl := newTable().Headers("column", "kind", "missing")
	for _, c := range cols {
		tbl.Row(c.Name, c.Kind.String(), fmt.Sprint(c.Missing))
	}
	return tbl.Render()
}

func renderStats(d *core.Description) string {
	headers := []string{""}
	for _, c := range d.Columns {
		headers = append(headers, c.Column)
	}
	tbl := newTable().Headers(headers...)
	for _, r := range d.Rows() {
		cells := []string{r.Label}
		for _, v := range r.Values {
			if v == nil {
				cells = append(cells, "NaN")
				continue
			}
			cells = append(cells, table.FormatNumber(*v))
		}
		tbl.Row(cells...)
	}
	return tbl.Render()
}

func writeHistogram(w io.Writer, h *core.Histogram) {
	fmt.Fprintln(w, TitleStyle.Render("Histogram of "+h.Column))
	if len(h.Bins) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("no values to plot"))
		return
	}
	peak := h.MaxCount()
	labels := make([]string, len(h.Bins))
	width := 0
	for i, b := range h.Bins {
		labels[i] = fmt.Sprintf("[%s, %s)", shortNumber(b.Lower), shortNumber(b.Upper))
		width = max(width, len(labels[i]))
	}
	for i, b := range h.Bins {
		n := 0
		if peak > 0 {
			n = b.Count * barWidth / peak
		}
		fmt.Fprintf(w, "%-*s %s %d\n", width, labels[i], BarStyle.Render(strings.Repeat("█", n)), b.Count)
	}
	if h.Missing > 0 || h.Excluded > 0 {
		fmt.Fprintln(w, SubtitleStyle.Render(fmt.Sprintf("%d missing, %d infinite values not plotted", h.Missing, h.Excluded)))
	}
}

func shortNumber(f float64) string {
	return fmt.Sprintf("%.4g", f)
}
