package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vietddude/reconciler/internal/control"
	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/indexing/metrics"
)

var (
	outputPath string
	topN       int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one reconciliation pass and print the report",
	RunE:  runReconcile,
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the JSON report here instead of run.output")
		cmd.Flags().IntVar(&topN, "top", -1, "only reconcile the N most recent campaigns per chain (0 = all)")
	}
	rootCmd.AddCommand(runCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid config", "error", err)
		return err
	}
	if topN >= 0 {
		cfg.Run.TopN = topN
	}
	if outputPath != "" {
		cfg.Run.Output = outputPath
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner, repo, err := control.New(ctx, cfg, slog.Default())
	if err != nil {
		slog.Error("Failed to initialize reconciler", "error", err)
		return err
	}
	defer func() {
		_ = repo.Close()
	}()

	res, runErr := runner.Run(ctx)
	if res != nil {
		if err := writeReport(cfg.Run.Output, res); err != nil {
			slog.Error("Failed to write report", "error", err)
			return err
		}
	}

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			slog.Warn("Failed to write metrics", "error", err)
		}
	}

	// The report is complete even when only persistence failed; the error
	// still makes the process exit non-zero.
	if errors.Is(runErr, control.ErrStateSave) {
		slog.Error("Report written but state was not saved", "error", runErr)
	}
	return runErr
}

// writeReport writes res as indented JSON to path, or stdout for "" and "-".
func writeReport(path string, res *domain.RunResult) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
