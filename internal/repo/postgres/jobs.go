package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/paperpolish/paperpolish-go/internal/domain"
	"github.com/paperpolish/paperpolish-go/internal/repo"
)

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type pinger interface {
	PingContext(ctx context.Context) error
}

const Schema = `CREATE TABLE IF NOT EXISTS paperpolish_jobs (
	job_id        TEXT PRIMARY KEY,
	created_at    TIMESTAMPTZ NOT NULL,
	filename      TEXT NOT NULL DEFAULT '',
	template      TEXT NOT NULL,
	options       JSONB NOT NULL DEFAULT '[]'::jsonb,
	warnings      JSONB NOT NULL DEFAULT '[]'::jsonb,
	warning_count INTEGER NOT NULL DEFAULT 0,
	object_key    TEXT NOT NULL,
	size_bytes    BIGINT NOT NULL DEFAULT 0,
	sha256        TEXT NOT NULL DEFAULT ''
)`

type JobStore struct {
	db DB
}

func NewJobStore(db DB) *JobStore {
	if db == nil {
		return nil
	}
	return &JobStore{db: db}
}

func (s *JobStore) Migrate(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("job store not initialized")
	}
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
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
	warnings := job.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO paperpolish_jobs (
			job_id,
			created_at,
			filename,
			template,
			options,
			warnings,
			warning_count,
			object_key,
			size_bytes,
			sha256
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		strings.TrimSpace(job.ID),
		normalizeTime(job.CreatedAt),
		job.Filename,
		string(job.Template),
		optionsJSON,
		warningsJSON,
		job.WarningCount,
		strings.TrimSpace(job.ObjectKey),
		job.SizeBytes,
		job.SHA256,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", mapError(err))
	}
	return nil
}

func (s *JobStore) GetJob(ctx context.Context, id string) (domain.Job, error) {
	if s == nil || s.db == nil {
		return domain.Job{}, fmt.Errorf("job store not initialized")
	}
	var (
		job          domain.Job
		template     string
		optionsJSON  []byte
		warningsJSON []byte
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT job_id, created_at, filename, template, options, warnings,
			warning_count, object_key, size_bytes, sha256
		FROM paperpolish_jobs
		WHERE job_id = $1`,
		strings.TrimSpace(id),
	).Scan(
		&job.ID,
		&job.CreatedAt,
		&job.Filename,
		&template,
		&optionsJSON,
		&warningsJSON,
		&job.WarningCount,
		&job.ObjectKey,
		&job.SizeBytes,
		&job.SHA256,
	)
	if err != nil {
		return domain.Job{}, mapError(err)
	}
	job.CreatedAt = job.CreatedAt.UTC()
	job.Template = domain.Template(template)
	var options []string
	if len(optionsJSON) > 0 {
		if err := json.Unmarshal(optionsJSON, &options); err != nil {
			return domain.Job{}, fmt.Errorf("decode options: %w", err)
		}
	}
	job.Options = domain.ParseOptions(options...)
	job.Warnings = []string{}
	if len(warningsJSON) > 0 {
		if err := json.Unmarshal(warningsJSON, &job.Warnings); err != nil {
			return domain.Job{}, fmt.Errorf("decode warnings: %w", err)
		}
	}
	return job, nil
}

func (s *JobStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("job store not initialized")
	}
	if p, ok := s.db.(pinger); ok {
		return p.PingContext(ctx)
	}
	var one int
	return s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
}

func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repo.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", repo.ErrConflict, pgErr.Message)
	}
	return err
}
