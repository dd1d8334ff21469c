package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gacha-lab/internal/app"
	"gacha-lab/internal/config"
	"gacha-lab/internal/reporting"
)

var (
	computeInput  string
	computeFormat string
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Calculate allocation plans for a workspace document",
	Long: `Reads a workspace document, runs one calculation and prints the report.

The result is archived in the configured store and, when export is enabled,
written to the export sink. Archive and export failures are printed as
warnings on stderr; the report is still printed.

Example:
  gacha compute --input workspace.json --format csv`,
	Args: cobra.NoArgs,
	RunE: runCompute,
}

func runCompute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !validFormat(computeFormat) {
		return fmt.Errorf("%w: %q", reporting.ErrUnknownFormat, computeFormat)
	}

	doc, err := readInput(computeInput, cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, app.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.Server.Compute(ctx, doc)
	if err != nil {
		return err
	}

	report, err := a.Reports.FromResult(resp.ResultID, resp.Result)
	if err != nil {
		return err
	}
	rendered, err := reporting.Render(report, computeFormat)
	if err != nil {
		return err
	}

	if _, err := cmd.OutOrStdout().Write(rendered.Data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	for _, w := range resp.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	if resp.Location != "" {
		logger.Info("report exported", zap.String("location", resp.Location))
	}
	return nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// validFormat reports whether format is a known report format.
func validFormat(format string) bool {
	switch format {
	case config.FormatJSON, config.FormatMarkdown, config.FormatCSV:
		return true
	}
	return false
}
