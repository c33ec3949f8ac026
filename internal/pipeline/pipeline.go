// Package pipeline drives extraction for an input table, one row at a time,
// and shapes the run's outputs.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/earnings-cli/internal/invoker"
	"github.com/sells-group/earnings-cli/internal/model"
	"github.com/sells-group/earnings-cli/internal/store"
)

// Options configures one pipeline run.
type Options struct {
	// Delay is the pause inserted between consecutive rows. There is no
	// delay after the final row.
	Delay time.Duration

	// InputPath and OutDir are recorded in run history only.
	InputPath string
	OutDir    string
}

// Pipeline orchestrates sequential extraction over input rows. A single
// Pipeline value may serve concurrent runs; all mutable state lives in Run.
type Pipeline struct {
	inv   invoker.Invoker
	store store.Store // optional run history, nil disables
	opts  Options
}

// New creates a Pipeline. st may be nil to disable run history.
func New(inv invoker.Invoker, st store.Store, opts Options) *Pipeline {
	return &Pipeline{inv: inv, store: st, opts: opts}
}

// Run processes every row in order: exactly one invocation per row, a fixed
// delay between rows, and full accounting of outcomes. A row failure is
// converted to a failure record and never stops the loop; the only error
// returns are context cancellation. An empty row slice is valid and yields
// an all-zero summary.
func (p *Pipeline) Run(ctx context.Context, rows []model.InputRow) (*model.RunOutputs, error) {
	log := zap.L()
	log.Info("pipeline: starting run",
		zap.Int("rows", len(rows)),
		zap.Duration("delay", p.opts.Delay))

	rec := p.createRunRecord(ctx, len(rows))

	out := &model.RunOutputs{}
	if rec != nil {
		out.RunID = rec.ID
	}
	var successful, failed, totalFacts int

	startTime := time.Now().UTC()

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			p.failRunRecord(rec, err)
			return nil, eris.Wrap(err, "pipeline: run canceled")
		}

		log.Info("pipeline: extracting",
			zap.Int("row", i+1),
			zap.Int("total", len(rows)),
			zap.String("company", row.Company),
			zap.String("period", row.Period),
			zap.String("url", row.URL))

		res, err := p.inv.Invoke(ctx, row.Request())

		var record model.Record
		switch {
		case err != nil:
			failed++
			record = model.FailureRecord(row, err.Error())
			out.Errors = append(out.Errors, record)
			log.Warn("pipeline: extraction failed",
				zap.String("company", row.Company),
				zap.String("period", row.Period),
				zap.Error(err))
		case res.ExtractionStatus == model.StatusSuccess:
			successful++
			totalFacts += res.FactCount
			record = model.ResultRecord(res)
			log.Info("pipeline: extraction succeeded",
				zap.String("company", row.Company),
				zap.Int("facts", res.FactCount))
		default:
			// Structurally valid result without data. Recorded, counted
			// as neither success nor failure.
			record = model.ResultRecord(res)
			log.Info("pipeline: no data extracted",
				zap.String("company", row.Company),
				zap.String("status", string(res.ExtractionStatus)))
		}
		out.AllResults = append(out.AllResults, record)

		if i < len(rows)-1 && p.opts.Delay > 0 {
			if err := wait(ctx, p.opts.Delay); err != nil {
				p.failRunRecord(rec, err)
				return nil, eris.Wrap(err, "pipeline: run canceled")
			}
		}
	}

	endTime := time.Now().UTC()

	out.Stats = model.PipelineStats{
		TotalCompanies:        len(rows),
		SuccessfulExtractions: successful,
		FailedExtractions:     failed,
		TotalFactsExtracted:   totalFacts,
		StartTime:             startTime,
		EndTime:               endTime,
		DurationSeconds:       endTime.Sub(startTime).Seconds(),
	}
	out.ByCompany = GroupByCompany(out.AllResults)

	p.completeRunRecord(rec, out.Stats)

	log.Info("pipeline: run complete",
		zap.Int("total", out.Stats.TotalCompanies),
		zap.Int("successful", out.Stats.SuccessfulExtractions),
		zap.Int("failed", out.Stats.FailedExtractions),
		zap.Int("facts", out.Stats.TotalFactsExtracted),
		zap.Float64("duration_secs", out.Stats.DurationSeconds))

	return out, nil
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// createRunRecord opens a history record. History is advisory: failures are
// logged and the run proceeds without it.
func (p *Pipeline) createRunRecord(ctx context.Context, totalRows int) *model.RunRecord {
	if p.store == nil {
		return nil
	}
	rec, err := p.store.CreateRun(ctx, p.opts.InputPath, p.opts.OutDir, totalRows)
	if err != nil {
		zap.L().Warn("pipeline: create run record", zap.Error(err))
		return nil
	}
	return rec
}

func (p *Pipeline) completeRunRecord(rec *model.RunRecord, stats model.PipelineStats) {
	if rec == nil {
		return
	}
	rec.Status = model.RunStatusCompleted
	rec.SuccessfulExtractions = stats.SuccessfulExtractions
	rec.FailedExtractions = stats.FailedExtractions
	rec.TotalFactsExtracted = stats.TotalFactsExtracted
	rec.DurationSeconds = stats.DurationSeconds
	if err := p.store.CompleteRun(context.Background(), rec); err != nil {
		zap.L().Warn("pipeline: complete run record", zap.Error(err))
	}
}

func (p *Pipeline) failRunRecord(rec *model.RunRecord, cause error) {
	if rec == nil {
		return
	}
	rec.Status = model.RunStatusFailed
	rec.Error = cause.Error()
	if err := p.store.CompleteRun(context.Background(), rec); err != nil {
		zap.L().Warn("pipeline: complete run record", zap.Error(err))
	}
}
