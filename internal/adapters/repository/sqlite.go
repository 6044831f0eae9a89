package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/demoreport/internal/domain/model"
)

const schemaVersion = 1

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS assignments (
		id                   INTEGER PRIMARY KEY,
		run_id               TEXT NOT NULL,
		seq                  INTEGER NOT NULL,
		workerid             TEXT NOT NULL,
		hitid                TEXT,
		hittypeid            TEXT,
		assignmentid         TEXT,
		assignmentaccepttime TEXT,
		assignmentsubmittime TEXT,
		title                TEXT,
		list                 TEXT,
		sex                  TEXT,
		race                 TEXT,
		ethnicity            TEXT,
		age                  TEXT,
		year                 TEXT,
		experiment           TEXT,
		experimenter         TEXT,
		browser              TEXT,
		source               TEXT,
		saved_at             TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_worker ON assignments(workerid, year)`,
}

// SQLiteStore is a Store in a single SQLite file.
type SQLiteStore struct {
	db          *sql.DB
	path        string
	busyTimeout time.Duration
	now         func() time.Time
}

// Open creates or opens the database at path and applies migrations.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		path:        path,
		busyTimeout: 5 * time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	// One writer; also keeps an in-memory database on a single connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeout.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: apply pragma %q: %w", ErrOpen, pragma, execErr)
		}
	}

	s.db = db
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("%w: read version: %w", ErrMigrate, err)
	}
	if version >= schemaVersion {
		return nil
	}
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %w", ErrMigrate, err)
		}
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("%w: set version: %w", ErrMigrate, err)
	}
	return nil
}

// Path returns the database file the store writes to.
func (s *SQLiteStore) Path() string {
	return s.path
}

// SaveAssignments replaces the table contents in one transaction.
func (s *SQLiteStore) SaveAssignments(ctx context.Context, runID string, recs []model.NormalizedRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrSave, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM assignments`); err != nil {
		return fmt.Errorf("%w: clear: %w", ErrSave, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO assignments (
		run_id, seq, workerid, hitid, hittypeid, assignmentid,
		assignmentaccepttime, assignmentsubmittime, title, list,
		sex, race, ethnicity, age, year, experiment, experimenter, browser,
		source, saved_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %w", ErrSave, err)
	}
	defer stmt.Close()

	savedAt := s.now().UTC().Format(time.RFC3339Nano)
	for _, r := range recs {
		if _, err = stmt.ExecContext(ctx,
			runID,
			r.Seq,
			r.WorkerID,
			nullableString(r.HitID),
			nullableString(r.HitTypeID),
			nullableString(r.AssignmentID),
			nullableString(r.AcceptTime),
			nullableString(r.SubmitTime),
			nullableString(r.Title),
			nullableString(r.List),
			nullableString(r.Sex),
			nullableString(r.Race),
			nullableString(r.Ethnicity),
			nullableString(r.Age.String()),
			nullableString(r.Year),
			nullableString(r.Experiment),
			nullableString(r.Experimenter),
			nullableString(r.Browser),
			nullableString(r.Source),
			savedAt,
		); err != nil {
			return fmt.Errorf("%w: worker %s row %d: %w", ErrSave, r.WorkerID, r.Row, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrSave, err)
	}
	return nil
}

// Count returns the number of stored assignments.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assignments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
