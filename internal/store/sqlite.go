package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/earnings-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id                     TEXT PRIMARY KEY,
	input_path             TEXT NOT NULL,
	output_dir             TEXT NOT NULL,
	status                 TEXT NOT NULL DEFAULT 'running',
	total_companies        INTEGER NOT NULL DEFAULT 0,
	successful_extractions INTEGER NOT NULL DEFAULT 0,
	failed_extractions     INTEGER NOT NULL DEFAULT 0,
	total_facts_extracted  INTEGER NOT NULL DEFAULT 0,
	duration_seconds       REAL NOT NULL DEFAULT 0,
	error                  TEXT,
	started_at             DATETIME NOT NULL,
	finished_at            DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, inputPath, outputDir string, totalCompanies int) (*model.RunRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_path, output_dir, status, total_companies, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, inputPath, outputDir, string(model.RunStatusRunning), totalCompanies, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) CompleteRun(ctx context.Context, rec *model.RunRecord) error {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, successful_extractions = ?, failed_extractions = ?,
		 total_facts_extracted = ?, duration_seconds = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		string(rec.Status), rec.SuccessfulExtractions, rec.FailedExtractions,
		rec.TotalFactsExtracted, rec.DurationSeconds, nullIfEmpty(rec.Error), now,
		rec.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", rec.ID)
	}
	rec.FinishedAt = &now
	return checkRowsAffected(res, "run", rec.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id LIKE ? || '%' LIMIT 2`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", id)
	}
	defer rows.Close()

	var matches []model.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", id)
	}

	switch len(matches) {
	case 0:
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", id)
	case 1:
		return &matches[0], nil
	default:
		return nil, eris.Errorf("ambiguous run id: %s", id)
	}
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

const runColumns = `id, input_path, output_dir, status, total_companies,
	successful_extractions, failed_extractions, total_facts_extracted,
	duration_seconds, error, started_at, finished_at`

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.RunRecord, error) {
	var r model.RunRecord
	var errMsg sql.NullString
	var finishedAt sql.NullTime

	err := row.Scan(&r.ID, &r.InputPath, &r.OutputDir, &r.Status, &r.TotalCompanies,
		&r.SuccessfulExtractions, &r.FailedExtractions, &r.TotalFactsExtracted,
		&r.DurationSeconds, &errMsg, &r.StartedAt, &finishedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if errMsg.Valid {
		r.Error = errMsg.String
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		r.FinishedAt = &t
	}
	return &r, nil
}
