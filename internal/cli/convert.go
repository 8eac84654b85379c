package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/publish"
)

type convertOptions struct {
	to           string
	dedupe       bool
	fill         bool
	columns      string
	outDir       string
	publishTable string
	databaseURL  string
}

func newConvertCommand() *cobra.Command {
	var o convertOptions

	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Clean and convert files between CSV and Excel",
		Long: `Convert runs every file through the cleaning pipeline and writes the result
into --out with the target format's extension. A failing file does not stop the
others; the exit status is 1 if any file failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := core.Options{
				RemoveDuplicates: o.dedupe,
				FillMissing:      o.fill,
				ConvertTo:        o.to,
				PublishTable:     o.publishTable,
			}
			if cmd.Flags().Changed("columns") {
				opts.Columns = core.ParseColumnList(o.columns)
			}
			return runConvert(cmd, args, opts, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.to, "to", "", "target format: csv or excel (required)")
	f.BoolVar(&o.dedupe, "dedupe", false, "remove duplicate rows")
	f.BoolVar(&o.fill, "fill", false, "fill missing numeric values with the column mean")
	f.StringVar(&o.columns, "columns", "", "comma-separated columns to keep")
	f.StringVar(&o.outDir, "out", ".", "output directory")
	f.StringVar(&o.publishTable, "publish", "", "also copy the result into this Postgres table")
	f.StringVar(&o.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres URL for --publish")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runConvert(cmd *cobra.Command, paths []string, opts core.Options, o convertOptions) error {
	ctx := cmd.Context()
	if err := opts.Validate(); err != nil {
		return err
	}
	files, err := readInputs(paths)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var pipeOpts []core.PipelineOption
	if opts.PublishTable != "" && o.databaseURL != "" {
		sink, err := publish.Connect(ctx, o.databaseURL, 2)
		if err != nil {
			return err
		}
		defer sink.Close()
		pipeOpts = append(pipeOpts, core.WithPublisher(sink))
	}

	batch, err := core.NewPipeline(pipeOpts...).ProcessBatch(ctx, files, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := batch.Failed
	for _, rep := range batch.Files {
		if rep.OK() && rep.Blob != nil {
			dest := filepath.Join(o.outDir, rep.Blob.FileName)
			if err := os.WriteFile(dest, rep.Blob.Data, 0o644); err != nil {
				rep.Messages = append(rep.Messages, core.Message{
					Level: core.LevelError,
					Text:  fmt.Sprintf("write %s: %v", dest, err),
				})
				failed++
			} else {
				rep.Messages = append(rep.Messages, core.Message{
					Level: core.LevelInfo,
					Text:  "Wrote " + dest,
				})
			}
		}
		printFileStatus(cmd, rep)
	}

	fmt.Fprintln(out, SubtitleStyle.Render(fmt.Sprintf("%d of %d files converted in %s",
		len(batch.Files)-failed, len(batch.Files), batch.Duration.Round(time.Millisecond))))
	if failed > 0 {
		return ErrFilesFailed
	}
	return nil
}

func printFileStatus(cmd *cobra.Command, rep *core.FileReport) {
	out := cmd.OutOrStdout()
	status := SuccessStyle.Render("OK")
	if !rep.OK() {
		status = ErrorStyle.Render("FAILED")
	}
	fmt.Fprintf(out, "%s %s %s\n", status, TitleStyle.UnsetMarginTop().Render(rep.FileName),
		SubtitleStyle.Render(fmt.Sprintf("(%.2f KB, %d rows)", rep.SizeKB, rep.Rows)))
	printMessages(out, rep)
}
