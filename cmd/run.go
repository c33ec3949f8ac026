package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/earnings-cli/internal/input"
	"github.com/sells-group/earnings-cli/internal/model"
	"github.com/sells-group/earnings-cli/internal/monitoring"
	"github.com/sells-group/earnings-cli/internal/pipeline"
)

var (
	runInput   string
	runOut     string
	runDelay   time.Duration
	runTimeout time.Duration
	runLimit   int
	runDryRun  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the extraction pipeline over an input table",
	Long: `Reads a company/period/URL table (CSV or XLSX), invokes the extraction
worker once per row in input order, and writes the result artifacts to the
output directory: all_results.jsonl, errors.jsonl (only when rows failed),
by_company.json, and summary.json.

Examples:
  # Dry run: parse the table and print rows, no extraction
  earnings run --input companies.csv --out out --dry-run

  # Full run with a 5s politeness delay between rows
  earnings run --input companies.csv --out out --delay 5s

  # First three rows only
  earnings run --input companies.xlsx --out out --limit 3`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("run"); err != nil {
			return err
		}

		rows, err := input.ReadRows(runInput, input.XLSXOptions{
			SheetIndex: cfg.Input.SheetIndex,
			SheetName:  cfg.Input.SheetName,
			SkipRows:   cfg.Input.SkipRows,
		})
		if err != nil {
			return eris.Wrap(err, "run: read input")
		}
		zap.L().Info("parsed input", zap.String("path", runInput), zap.Int("rows", len(rows)))

		if runLimit > 0 && runLimit < len(rows) {
			rows = rows[:runLimit]
		}

		if runDryRun {
			return printRowsJSON(os.Stdout, rows)
		}

		// Flags override config when set explicitly; 0 is a valid delay.
		delay := time.Duration(cfg.Pipeline.DelayMS) * time.Millisecond
		if cmd.Flags().Changed("delay") {
			delay = runDelay
		}
		timeout := time.Duration(cfg.Extract.TimeoutSecs) * time.Second
		if cmd.Flags().Changed("timeout") {
			timeout = runTimeout
		}

		inv, err := newInvoker(timeout)
		if err != nil {
			return eris.Wrap(err, "run: init invoker")
		}

		// Run history is advisory: a broken store logs a warning and the
		// run proceeds without it.
		st, err := initStore(ctx)
		if err != nil {
			zap.L().Warn("run: open store, continuing without history", zap.Error(err))
			st = nil
		}
		if st != nil {
			if err := st.Migrate(ctx); err != nil {
				zap.L().Warn("run: migrate store, continuing without history", zap.Error(err))
				_ = st.Close()
				st = nil
			} else {
				defer st.Close() //nolint:errcheck
			}
		}

		p := pipeline.New(inv, st, pipeline.Options{
			Delay:     delay,
			InputPath: runInput,
			OutDir:    runOut,
		})

		out, err := p.Run(ctx, rows)
		if err != nil {
			return eris.Wrap(err, "run: pipeline")
		}

		if err := pipeline.WriteOutputs(runOut, out); err != nil {
			return eris.Wrap(err, "run: write outputs")
		}

		logRunSummary(out)
		sendRunAlerts(ctx, out.Stats)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "path to input table, .csv or .xlsx (required)")
	runCmd.Flags().StringVar(&runOut, "out", "", "output directory for artifacts (required)")
	runCmd.Flags().DurationVar(&runDelay, "delay", 0, "inter-row delay (default from config)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "per-row worker timeout (default from config)")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "max rows to process (0 = all)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "parse the input and print rows, skip extraction")
	_ = runCmd.MarkFlagRequired("input")
	_ = runCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(runCmd)
}

// printRowsJSON prints parsed input rows as indented JSON.
func printRowsJSON(w io.Writer, rows []model.InputRow) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// sendRunAlerts posts webhook alerts for an unhealthy run, if configured.
func sendRunAlerts(ctx context.Context, stats model.PipelineStats) {
	alerter := monitoring.NewAlerter(cfg.Monitoring)
	alerter.SendAlerts(ctx, alerter.Evaluate(stats))
}

// logRunSummary logs the final counters of a completed run.
func logRunSummary(out *model.RunOutputs) {
	s := out.Stats
	zap.L().Info("run: pipeline complete",
		zap.String("run_id", out.RunID),
		zap.Int("companies", s.TotalCompanies),
		zap.Int("successful", s.SuccessfulExtractions),
		zap.Int("failed", s.FailedExtractions),
		zap.Int("facts", s.TotalFactsExtracted),
		zap.Float64("duration_secs", s.DurationSeconds),
	)
}
