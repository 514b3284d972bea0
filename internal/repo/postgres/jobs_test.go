package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/paperpolish/paperpolish-go/internal/domain"
	"github.com/paperpolish/paperpolish-go/internal/repo"
)

type execRecorder struct {
	query string
	args  []any
	err   error
}

func (e *execRecorder) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	e.query = query
	e.args = args
	return nil, e.err
}

func (e *execRecorder) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("not implemented")
}

func (e *execRecorder) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

func validJob() domain.Job {
	return domain.Job{
		ID:        " job-1 ",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("X", 3600)),
		Template:  domain.TemplateAASTeX,
		Options:   domain.ParseOptions("fix_citations"),
		ObjectKey: "job-1.zip",
	}
}

func TestSaveJobBindsColumns(t *testing.T) {
	db := &execRecorder{}
	store := NewJobStore(db)
	if err := store.SaveJob(context.Background(), validJob()); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}
	if !strings.Contains(db.query, "INSERT INTO paperpolish_jobs") {
		t.Fatalf("query=%s", db.query)
	}
	if len(db.args) != 10 {
		t.Fatalf("args=%d, want 10", len(db.args))
	}
	if db.args[0] != "job-1" {
		t.Fatalf("job_id arg=%v", db.args[0])
	}
	if ts, ok := db.args[1].(time.Time); !ok || ts.Location() != time.UTC {
		t.Fatalf("created_at arg=%v, want UTC time", db.args[1])
	}
	if string(db.args[4].([]byte)) != `["fix_citations"]` || string(db.args[5].([]byte)) != `[]` {
		t.Fatalf("json args=%s %s", db.args[4], db.args[5])
	}
}

func TestSaveJobMapsUniqueViolation(t *testing.T) {
	db := &execRecorder{err: &pgconn.PgError{Code: "23505", Message: "duplicate key"}}
	err := NewJobStore(db).SaveJob(context.Background(), validJob())
	if !errors.Is(err, repo.ErrConflict) {
		t.Fatalf("SaveJob()=%v, want ErrConflict", err)
	}
}

func TestMapError(t *testing.T) {
	if err := mapError(sql.ErrNoRows); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("mapError(ErrNoRows)=%v", err)
	}
	other := fmt.Errorf("boom")
	if err := mapError(other); err != other {
		t.Fatalf("mapError(other)=%v", err)
	}
}

func TestNilStore(t *testing.T) {
	if NewJobStore(nil) != nil {
		t.Fatalf("NewJobStore(nil) != nil")
	}
	var store *JobStore
	if err := store.SaveJob(context.Background(), validJob()); err == nil {
		t.Fatalf("SaveJob on nil store succeeded")
	}
}
