package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paperpolish/paperpolish-go/internal/domain"
	"github.com/paperpolish/paperpolish-go/internal/repo"
)

func TestJobStorePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "jobs.json")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Ping(ctx); err == nil {
		t.Fatalf("Ping() before first write = nil, want missing dir error")
	}
	job := domain.Job{
		ID:           "job-1",
		CreatedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Filename:     "paper.zip",
		Template:     domain.TemplateMNRAS,
		Options:      domain.ParseOptions("ai_grammar,fix_citations"),
		Warnings:     []string{"a", "b"},
		WarningCount: 2,
		ObjectKey:    "job-1.zip",
		SizeBytes:    42,
		SHA256:       "deadbeef",
	}
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}
	if err := store.SaveJob(ctx, job); !errors.Is(err, repo.ErrConflict) {
		t.Fatalf("SaveJob(dup)=%v, want ErrConflict", err)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open(again): %v", err)
	}
	got, err := reopened.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if !got.CreatedAt.Equal(job.CreatedAt) || got.Template != job.Template || got.SizeBytes != 42 || got.SHA256 != "deadbeef" {
		t.Fatalf("GetJob()=%+v", got)
	}
	if len(got.Options) != 2 || got.Options[0] != domain.OptionAIGrammar || len(got.Warnings) != 2 {
		t.Fatalf("GetJob() options=%v warnings=%v", got.Options, got.Warnings)
	}
	if _, err := reopened.GetJob(ctx, "nope"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("GetJob(missing)=%v, want ErrNotFound", err)
	}
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatalf("Open(corrupt) succeeded")
	}
	if _, err := Open(" "); err == nil {
		t.Fatalf("Open(empty path) succeeded")
	}
}
