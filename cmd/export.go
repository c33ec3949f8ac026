package main

import (
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/earnings-cli/internal/pipeline"
	"github.com/sells-group/earnings-cli/pkg/notion"
)

var exportRunID string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Publish run reports to external systems",
}

var exportNotionCmd = &cobra.Command{
	Use:   "notion",
	Short: "Publish a run report to the Notion runs database",
	Long: `Creates a page in the configured Notion database summarizing one run:
status, counters, timings, and a bulleted list of failed extractions read
from the run's errors.jsonl. Requires notion.token and notion.runs_db in
the config.

Examples:
  earnings export notion --run 3f2a9c1e`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("notion"); err != nil {
			return err
		}

		st, err := requireStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, exportRunID)
		if err != nil {
			return eris.Wrap(err, "export: get run")
		}

		failures, err := pipeline.ReadRecords(filepath.Join(run.OutputDir, pipeline.ErrorsFile))
		if err != nil {
			return eris.Wrap(err, "export: read failures")
		}

		client := notion.NewClient(cfg.Notion.Token)
		pageID, err := notion.PublishRun(ctx, client, cfg.Notion.RunsDB, run, failures)
		if err != nil {
			return err
		}

		zap.L().Info("export: run published",
			zap.String("run_id", run.ID),
			zap.String("page_id", pageID),
			zap.Int("failures", len(failures)),
		)
		fmt.Printf("Published run %s to Notion (page %s)\n", truncateID(run.ID), pageID)
		return nil
	},
}

func init() {
	exportNotionCmd.Flags().StringVar(&exportRunID, "run", "", "run id or unique prefix (required)")
	_ = exportNotionCmd.MarkFlagRequired("run")

	exportCmd.AddCommand(exportNotionCmd)
	rootCmd.AddCommand(exportCmd)
}
