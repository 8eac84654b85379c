// Package cli implements the sweep command-line tool.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/logging"
)

// ErrFilesFailed is returned when at least one file in a batch failed.
var ErrFilesFailed = errors.New("one or more files failed")

// Version is set at build time with -ldflags.
var Version = "dev"

type rootOptions struct {
	logLevel  string
	logFormat string
}

// NewRootCommand builds the sweep command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	var ro rootOptions

	root := &cobra.Command{
		Use:           "sweep",
		Short:         "Clean, summarize and convert CSV and Excel files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := logging.New(cmd.ErrOrStderr(), ro.logLevel, ro.logFormat)
			cmd.SetContext(logging.NewContext(cmd.Context(), logger))
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&ro.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&ro.logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(newConvertCommand())
	root.AddCommand(newInspectCommand())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "sweep", Version)
		},
	})
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	root := NewRootCommand(out)
	root.SetErr(errOut)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrFilesFailed):
		return 1
	default:
		fmt.Fprintln(errOut, ErrorStyle.Render("error: ")+core.FormatUserError(err))
		fmt.Fprintln(errOut, SubtitleStyle.Render(err.Error()))
		return 1
	}
}

// readInputs loads every path into memory.
func readInputs(paths []string) ([]core.FileInput, error) {
	files := make([]core.FileInput, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, core.FileInput{Name: p, Data: data})
	}
	return files, nil
}

// printMessages writes each report message on its own styled line.
func printMessages(w io.Writer, rep *core.FileReport) {
	for _, m := range rep.Messages {
		style, marker := levelStyle(m.Level)
		line := marker + " " + m.Text
		if m.Code != "" {
			line += " (" + m.Code + ")"
		}
		fmt.Fprintln(w, "  "+style.Render(line))
	}
}
