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

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a single extraction from a stdin request",
	Long: `Reads one JSON extraction request ({"url","company","period"}) from
stdin, fetches and parses the page in-process, and writes the result JSON to
stdout. On failure the error goes to stderr and the process exits non-zero;
the run pipeline records that stderr as the failure reason.

Examples:
  echo '{"url":"https://acme.com/q3.html","company":"Acme","period":"Q3 2024"}' | earnings worker`,
	// Usage text on stderr would end up in failure records.
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if secs := cfg.Extract.TimeoutSecs; secs > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
			defer cancel()
		}

		var req model.ExtractionRequest
		if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
			return eris.Wrap(err, "worker: decode request")
		}

		ext, err := newExtractor()
		if err != nil {
			return eris.Wrap(err, "worker: init extractor")
		}

		res, err := ext.Extract(ctx, req)
		if err != nil {
			return err
		}

		if err := json.NewEncoder(os.Stdout).Encode(res); err != nil {
			return eris.Wrap(err, "worker: encode result")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
