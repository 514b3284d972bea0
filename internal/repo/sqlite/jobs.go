// Package sqlite stores jobs in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paperpolish/paperpolish-go/internal/domain"
	"github.com/paperpolish/paperpolish-go/internal/repo"
)

const schema = `CREATE TABLE IF NOT EXISTS jobs (
	job_id        TEXT PRIMARY KEY,
	created_at    TEXT NOT NULL,
	filename      TEXT NOT NULL DEFAULT '',
	template      TEXT NOT NULL,
	options       TEXT NOT NULL DEFAULT '[]',
	warnings      TEXT NOT NULL DEFAULT '[]',
	warning_count INTEGER NOT NULL DEFAULT 0,
	object_key    TEXT NOT NULL,
	size_bytes    INTEGER NOT NULL DEFAULT 0,
	sha256        TEXT NOT NULL DEFAULT ''
)`

type JobStore struct {
	db *sql.DB
}

func NewJobStore(db *sql.DB) *JobStore {
	if db == nil {
		return nil
	}
	return &JobStore{db: db}
}

func (s *JobStore) Migrate(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("job store not initialized")
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create jobs table: %w", err)
	}
	return nil
}

func (s *JobStore) SaveJob(ctx context.Context, job domain.Job) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("job store not initialized")
	}
	if err := job.Validate(); err != nil {
		return err
	}
	optionsJSON, err := json.Marshal(job.Options.Strings())
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	warningsJSON, err := json.Marshal(nonNil(job.Warnings))
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}
	id := strings.TrimSpace(job.ID)
	// INSERT OR IGNORE keeps the first record; a zero row count means the
	// id was already taken.
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO jobs (
			job_id, created_at, filename, template, options, warnings,
			warning_count, object_key, size_bytes, sha256
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		job.CreatedAt.UTC().Format(time.RFC3339Nano),
		job.Filename,
		string(job.Template),
		string(optionsJSON),
		string(warningsJSON),
		job.WarningCount,
		strings.TrimSpace(job.ObjectKey),
		job.SizeBytes,
		job.SHA256,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s: %w", id, repo.ErrConflict)
	}
	return nil
}

func (s *JobStore) GetJob(ctx context.Context, id string) (domain.Job, error) {
	if s == nil || s.db == nil {
		return domain.Job{}, fmt.Errorf("job store not initialized")
	}
	var (
		job          domain.Job
		createdAt    string
		template     string
		optionsJSON  string
		warningsJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT job_id, created_at, filename, template, options, warnings,
			warning_count, object_key, size_bytes, sha256
		FROM jobs WHERE job_id = ?`,
		strings.TrimSpace(id),
	).Scan(
		&job.ID, &createdAt, &job.Filename, &template, &optionsJSON, &warningsJSON,
		&job.WarningCount, &job.ObjectKey, &job.SizeBytes, &job.SHA256,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Job{}, repo.ErrNotFound
		}
		return domain.Job{}, fmt.Errorf("select job: %w", err)
	}
	job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return domain.Job{}, fmt.Errorf("decode created_at: %w", err)
	}
	job.Template = domain.Template(template)
	var options []string
	if err := json.Unmarshal([]byte(optionsJSON), &options); err != nil {
		return domain.Job{}, fmt.Errorf("decode options: %w", err)
	}
	job.Options = domain.ParseOptions(options...)
	if err := json.Unmarshal([]byte(warningsJSON), &job.Warnings); err != nil {
		return domain.Job{}, fmt.Errorf("decode warnings: %w", err)
	}
	return job, nil
}

func (s *JobStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("job store not initialized")
	}
	return s.db.PingContext(ctx)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
