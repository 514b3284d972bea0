// Package file stores jobs in a single JSON document on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/paperpolish/paperpolish-go/internal/domain"
	"github.com/paperpolish/paperpolish-go/internal/repo"
)

type jobRecord struct {
	ID           string    `json:"job_id"`
	CreatedAt    time.Time `json:"created_at"`
	Filename     string    `json:"filename,omitempty"`
	Template     string    `json:"template"`
	Options      []string  `json:"options"`
	Warnings     []string  `json:"warnings"`
	WarningCount int       `json:"warning_count"`
	ObjectKey    string    `json:"object_key"`
	SizeBytes    int64     `json:"size_bytes"`
	SHA256       string    `json:"sha256,omitempty"`
}

type JobStore struct {
	path string

	mu   sync.Mutex
	jobs map[string]jobRecord
}

// Open loads path if it exists. A missing file is an empty store.
func Open(path string) (*JobStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("jobs file path is required")
	}
	s := &JobStore{path: path, jobs: map[string]jobRecord{}}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read jobs file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}
	var records []jobRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode jobs file: %w", err)
	}
	for _, r := range records {
		s.jobs[r.ID] = r
	}
	return s, nil
}

func (s *JobStore) SaveJob(ctx context.Context, job domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	rec := toRecord(job)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[rec.ID]; ok {
		return fmt.Errorf("job %s: %w", rec.ID, repo.ErrConflict)
	}
	s.jobs[rec.ID] = rec
	if err := s.flushLocked(); err != nil {
		delete(s.jobs, rec.ID)
		return err
	}
	return nil
}

func (s *JobStore) GetJob(ctx context.Context, id string) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[strings.TrimSpace(id)]
	if !ok {
		return domain.Job{}, repo.ErrNotFound
	}
	return fromRecord(rec), nil
}

// Ping checks that the directory holding the file is still there.
func (s *JobStore) Ping(context.Context) error {
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filepath.Dir(s.path))
	}
	return nil
}

func (s *JobStore) flushLocked() error {
	records := make([]jobRecord, 0, len(s.jobs))
	for _, r := range s.jobs {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode jobs file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create jobs dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".jobs-*.json")
	if err != nil {
		return fmt.Errorf("write jobs file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write jobs file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write jobs file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace jobs file: %w", err)
	}
	return nil
}

func toRecord(job domain.Job) jobRecord {
	warnings := append([]string{}, job.Warnings...)
	return jobRecord{
		ID:           strings.TrimSpace(job.ID),
		CreatedAt:    job.CreatedAt.UTC(),
		Filename:     job.Filename,
		Template:     string(job.Template),
		Options:      job.Options.Strings(),
		Warnings:     warnings,
		WarningCount: job.WarningCount,
		ObjectKey:    job.ObjectKey,
		SizeBytes:    job.SizeBytes,
		SHA256:       job.SHA256,
	}
}

func fromRecord(rec jobRecord) domain.Job {
	return domain.Job{
		ID:           rec.ID,
		CreatedAt:    rec.CreatedAt,
		Filename:     rec.Filename,
		Template:     domain.Template(rec.Template),
		Options:      domain.ParseOptions(rec.Options...),
		Warnings:     append([]string{}, rec.Warnings...),
		WarningCount: rec.WarningCount,
		ObjectKey:    rec.ObjectKey,
		SizeBytes:    rec.SizeBytes,
		SHA256:       rec.SHA256,
	}
}
