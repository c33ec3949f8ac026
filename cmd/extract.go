package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/earnings-cli/internal/model"
)

var (
	extractURL     string
	extractCompany string
	extractPeriod  string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract financial facts from a single earnings page",
	Long: `Fetches one earnings release URL, runs the fact extractors against it,
and prints the result JSON to stdout. Useful for testing patterns against a
page before running a full batch.

Examples:
  earnings extract --url https://acme.com/q3-2024.html
  earnings extract --url https://acme.com/q3-2024.html --company "Acme Corp" --period "Q3 2024"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if secs := cfg.Extract.TimeoutSecs; secs > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
			defer cancel()
		}

		ext, err := newExtractor()
		if err != nil {
			return eris.Wrap(err, "extract: init extractor")
		}

		res, err := ext.Extract(ctx, model.ExtractionRequest{
			URL:     extractURL,
			Company: extractCompany,
			Period:  extractPeriod,
		})
		if err != nil {
			return eris.Wrap(err, "extract: run")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractURL, "url", "", "earnings release URL (required)")
	extractCmd.Flags().StringVar(&extractCompany, "company", "", "company name for provenance")
	extractCmd.Flags().StringVar(&extractPeriod, "period", "", "reporting period, e.g. \"Q3 2024\"")
	_ = extractCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(extractCmd)
}
