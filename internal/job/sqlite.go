package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

var _ Repository = (*SQLiteRepository)(nil)

// SQLiteRepository persists jobs in a SQLite database so they survive
// restarts. Request and Result are stored as JSON columns.
type SQLiteRepository struct {
	db *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS jobs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	progress     INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	request      TEXT NOT NULL,
	result       TEXT NOT NULL,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL,
	started_at   INTEGER NOT NULL DEFAULT 0,
	completed_at INTEGER NOT NULL DEFAULT 0
)`

// OpenSQLiteRepository opens or creates the database at path and applies
// the schema. Use ":memory:" for a throwaway database.
func OpenSQLiteRepository(path string) (*SQLiteRepository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("job: create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("job: open database: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// from splitting across connections.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		schema,
		"CREATE INDEX IF NOT EXISTS jobs_created_at ON jobs(created_at)",
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("job: migrate database: %w", err)
		}
	}

	return &SQLiteRepository{db: db}, nil
}

// Close closes the underlying database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Save inserts or updates a job.
func (r *SQLiteRepository) Save(ctx context.Context, job *Job) error {
	snap := job.Clone()

	req, err := json.Marshal(snap.Request)
	if err != nil {
		return fmt.Errorf("job: marshal request: %w", err)
	}
	res, err := json.Marshal(snap.Result)
	if err != nil {
		return fmt.Errorf("job: marshal result: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO jobs
		(id, status, progress, error, request, result, created_at, updated_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			error = excluded.error,
			request = excluded.request,
			result = excluded.result,
			updated_at = excluded.updated_at,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at`,
		snap.ID, string(snap.Status), snap.Progress, snap.Error, string(req), string(res),
		toUnixNano(snap.CreatedAt), toUnixNano(snap.UpdatedAt),
		toUnixNano(snap.StartedAt), toUnixNano(snap.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("job: save %s: %w", snap.ID, err)
	}
	return nil
}

const selectColumns = `SELECT id, status, progress, error, request, result,
	created_at, updated_at, started_at, completed_at FROM jobs`

// FindByID retrieves a job by ID.
func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("job: find %s: %w", id, err)
	}
	return job, nil
}

// List returns all jobs ordered by creation time.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Job, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+" ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("job: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("job: list: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("job: list: %w", err)
	}
	return jobs, nil
}

// Delete removes a job.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("job: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("job: delete %s: %w", id, err)
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*Job, error) {
	var (
		j                                    Job
		status, req, res                     string
		created, updated, started, completed int64
	)
	if err := s.Scan(&j.ID, &status, &j.Progress, &j.Error, &req, &res,
		&created, &updated, &started, &completed); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(req), &j.Request); err != nil {
		return nil, fmt.Errorf("unmarshal request: %w", err)
	}
	if err := json.Unmarshal([]byte(res), &j.Result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	j.Status = Status(status)
	j.CreatedAt = fromUnixNano(created)
	j.UpdatedAt = fromUnixNano(updated)
	j.StartedAt = fromUnixNano(started)
	j.CompletedAt = fromUnixNano(completed)
	return &j, nil
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
