package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/parcel-cli/internal/model"
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
	// Pragmas such as foreign_keys are per connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	sources    TEXT NOT NULL,
	report     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS parcels (
	run_id                 TEXT NOT NULL REFERENCES runs(id),
	seq                    INTEGER NOT NULL,
	source                 TEXT NOT NULL,
	category               TEXT NOT NULL,
	parcel_id              TEXT NOT NULL,
	commune                TEXT NOT NULL,
	village                TEXT NOT NULL,
	has_validation_code    INTEGER NOT NULL,
	surface_area           REAL,
	usage_type_individual  TEXT NOT NULL,
	usage_type_collective  TEXT NOT NULL,
	is_deliberated         INTEGER NOT NULL,
	deliberating_authority TEXT NOT NULL,
	validation_code        TEXT,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_parcels_parcel_id ON parcels(parcel_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	prepareRun(run)

	sources, reportJSON, err := marshalRun(run)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, sources, report, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(run.Status), string(sources), nullableString(reportJSON), run.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, sources, report, created_at FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrRunNotFound, "sqlite: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, sources, report, created_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SavePublishedParcels(ctx context.Context, runID string, parcels []model.Parcel) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM parcels WHERE run_id = ?`, runID); err != nil {
		return 0, eris.Wrapf(err, "sqlite: clear parcels for run %s", runID)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO parcels (run_id, seq, `+parcelColumnList+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare parcel insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, p := range parcels {
		args := append([]any{runID, i}, parcelValues(p)...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert parcel %s", p.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit parcels")
	}
	return int64(len(parcels)), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var status, sources string
	var reportJSON sql.NullString

	if err := row.Scan(&r.ID, &status, &sources, &reportJSON, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	var report []byte
	if reportJSON.Valid {
		report = []byte(reportJSON.String)
	}
	if err := unmarshalRun(&r, []byte(sources), report); err != nil {
		return nil, err
	}
	return &r, nil
}

func nullableString(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func marshalRun(run *model.Run) (sources, report []byte, err error) {
	list := run.Sources
	if list == nil {
		list = []string{}
	}
	sources, err = json.Marshal(list)
	if err != nil {
		return nil, nil, err
	}
	if run.Report != nil {
		report, err = json.Marshal(run.Report)
		if err != nil {
			return nil, nil, err
		}
	}
	return sources, report, nil
}

func unmarshalRun(r *model.Run, sources, report []byte) error {
	if err := json.Unmarshal(sources, &r.Sources); err != nil {
		return eris.Wrap(err, "unmarshal sources")
	}
	if len(report) > 0 {
		r.Report = &model.Report{}
		if err := json.Unmarshal(report, r.Report); err != nil {
			return eris.Wrap(err, "unmarshal report")
		}
	}
	return nil
}
