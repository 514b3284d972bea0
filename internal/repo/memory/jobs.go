// Package memory keeps jobs in process memory. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/paperpolish/paperpolish-go/internal/domain"
	"github.com/paperpolish/paperpolish-go/internal/repo"
)

type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: map[string]domain.Job{}}
}

func (s *JobStore) SaveJob(ctx context.Context, job domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	id := strings.TrimSpace(job.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; ok {
		return fmt.Errorf("job %s: %w", id, repo.ErrConflict)
	}
	s.jobs[id] = cloneJob(job)
	return nil
}

func (s *JobStore) GetJob(ctx context.Context, id string) (domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[strings.TrimSpace(id)]
	if !ok {
		return domain.Job{}, repo.ErrNotFound
	}
	return cloneJob(job), nil
}

func (s *JobStore) Ping(context.Context) error { return nil }

func cloneJob(job domain.Job) domain.Job {
	job.Options = append(domain.Options(nil), job.Options...)
	job.Warnings = append([]string(nil), job.Warnings...)
	return job
}
