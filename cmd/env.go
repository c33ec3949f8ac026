package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/earnings-cli/internal/extract"
	"github.com/sells-group/earnings-cli/internal/invoker"
	"github.com/sells-group/earnings-cli/internal/ocr"
	"github.com/sells-group/earnings-cli/internal/store"
)

// initStore opens the run-history store from config. Driver "none" means
// history is disabled and callers get a nil store.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "earnings.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// requireStore opens and migrates the store for commands that cannot work
// without one.
func requireStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.Errorf("run history is disabled (store.driver=%s)", cfg.Store.Driver)
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newExtractor builds the in-process extraction engine from config.
func newExtractor() (*extract.Extractor, error) {
	var rules *extract.RuleSet
	if cfg.Extract.RulesPath != "" {
		rs, err := extract.LoadRules(cfg.Extract.RulesPath)
		if err != nil {
			return nil, err
		}
		rules = rs
		zap.L().Info("loaded extraction rules",
			zap.String("path", cfg.Extract.RulesPath),
			zap.Int("rules", rs.Len()))
	}

	fetcher := extract.NewFetcher(extract.FetchOptions{
		UserAgent:      cfg.Extract.UserAgent,
		MaxBodyBytes:   cfg.Extract.MaxBodyBytes,
		RequestsPerSec: cfg.Extract.RequestsPerSec,
	})
	return extract.New(fetcher, extract.Options{
		Rules:    rules,
		DebugDir: cfg.Extract.DebugDir,
		PDF:      ocr.NewPdfToText(cfg.Extract.PdfToTextPath),
	}), nil
}

// newInvoker builds the per-row worker invoker from config.
func newInvoker(timeout time.Duration) (invoker.Invoker, error) {
	return invoker.NewSubprocess(cfg.Extract.WorkerCmd, timeout)
}
