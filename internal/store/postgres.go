package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/earnings-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id                     TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	input_path             TEXT NOT NULL,
	output_dir             TEXT NOT NULL,
	status                 TEXT NOT NULL DEFAULT 'running',
	total_companies        INTEGER NOT NULL DEFAULT 0,
	successful_extractions INTEGER NOT NULL DEFAULT 0,
	failed_extractions     INTEGER NOT NULL DEFAULT 0,
	total_facts_extracted  INTEGER NOT NULL DEFAULT 0,
	duration_seconds       DOUBLE PRECISION NOT NULL DEFAULT 0,
	error                  TEXT,
	started_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at            TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, inputPath, outputDir string, totalCompanies int) (*model.RunRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, input_path, output_dir, status, total_companies, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, inputPath, outputDir, string(model.RunStatusRunning), totalCompanies, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.RunRecord{
		ID:             id,
		InputPath:      inputPath,
		OutputDir:      outputDir,
		Status:         model.RunStatusRunning,
		TotalCompanies: totalCompanies,
		StartedAt:      now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, rec *model.RunRecord) error {
	now := time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, successful_extractions = $2, failed_extractions = $3,
		 total_facts_extracted = $4, duration_seconds = $5, error = $6, finished_at = $7
		 WHERE id = $8`,
		string(rec.Status), rec.SuccessfulExtractions, rec.FailedExtractions,
		rec.TotalFactsExtracted, rec.DurationSeconds, nullIfEmpty(rec.Error), now,
		rec.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", rec.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", rec.ID)
	}
	rec.FinishedAt = &now
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.RunRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id LIKE $1 || '%' LIMIT 2`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}
	defer rows.Close()

	var matches []model.RunRecord
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}

	switch len(matches) {
	case 0:
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", id)
	case 1:
		return &matches[0], nil
	default:
		return nil, eris.Errorf("ambiguous run id: %s", id)
	}
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.RunRecord
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRun(rows pgx.Rows) (*model.RunRecord, error) {
	var r model.RunRecord
	var errMsg *string
	var finishedAt *time.Time

	err := rows.Scan(&r.ID, &r.InputPath, &r.OutputDir, &r.Status, &r.TotalCompanies,
		&r.SuccessfulExtractions, &r.FailedExtractions, &r.TotalFactsExtracted,
		&r.DurationSeconds, &errMsg, &r.StartedAt, &finishedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}

	if errMsg != nil {
		r.Error = *errMsg
	}
	r.FinishedAt = finishedAt
	return &r, nil
}
