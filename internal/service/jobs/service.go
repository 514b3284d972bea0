package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paperpolish/paperpolish-go/internal/domain"
	"github.com/paperpolish/paperpolish-go/internal/pipeline"
	"github.com/paperpolish/paperpolish-go/internal/repo"
	store "github.com/paperpolish/paperpolish-go/internal/storage/objectstore"
)

const ArtifactContentType = "application/zip"

// ErrStorage marks failures to keep a finished artifact or its record.
var ErrStorage = errors.New("storage failed")

type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

type SubmitInput struct {
	Filename string
	Body     io.Reader
	Template domain.Template
	Options  domain.Options
}

type SubmitResult struct {
	Job      domain.Job
	Warnings []string
}

// Service runs uploads through the pipeline and keeps the results
// downloadable by job id.
type Service struct {
	processor Processor
	repo      repo.JobRepository
	store     store.Store
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

func NewService(processor Processor, jobs repo.JobRepository, objects store.Store, logger *slog.Logger) (*Service, error) {
	if processor == nil {
		return nil, errors.New("processor is required")
	}
	if jobs == nil {
		return nil, errors.New("job repository is required")
	}
	if objects == nil {
		return nil, errors.New("object store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		processor: processor,
		repo:      jobs,
		store:     objects,
		logger:    logger,
		now:       time.Now,
		newID:     newJobID,
	}, nil
}

func newJobID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ObjectKey is where the artifact of job id is stored.
func ObjectKey(id string) string {
	return id + ".zip"
}

func (s *Service) Submit(ctx context.Context, input SubmitInput) (SubmitResult, error) {
	if s == nil || s.processor == nil {
		return SubmitResult{}, errors.New("job service not initialized")
	}
	id := s.newID()
	res, err := s.processor.Process(ctx, pipeline.Request{
		JobID:    id,
		Filename: input.Filename,
		Body:     input.Body,
		Template: input.Template,
		Options:  input.Options,
	})
	if err != nil {
		return SubmitResult{}, err
	}
	defer func() {
		if err := os.Remove(res.Artifact.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("remove local artifact failed", "job_id", id, "error", err)
		}
	}()

	key := ObjectKey(id)
	if err := s.putArtifact(ctx, key, res.Artifact); err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	job := domain.Job{
		ID:           id,
		CreatedAt:    s.now().UTC(),
		Filename:     input.Filename,
		Template:     input.Template,
		Options:      input.Options,
		Warnings:     warnings,
		WarningCount: len(warnings),
		ObjectKey:    key,
		SizeBytes:    res.Artifact.SizeBytes,
		SHA256:       res.Artifact.SHA256,
	}
	if err := s.repo.SaveJob(ctx, job); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Warn("delete orphaned artifact failed", "job_id", id, "error", delErr)
		}
		return SubmitResult{}, fmt.Errorf("%w: save job: %v", ErrStorage, err)
	}

	s.logger.Info("job stored", "job_id", id, "template", string(job.Template), "warnings", job.WarningCount, "size_bytes", job.SizeBytes)
	return SubmitResult{Job: job, Warnings: warnings}, nil
}

func (s *Service) putArtifact(ctx context.Context, key string, artifact pipeline.Artifact) error {
	f, err := os.Open(artifact.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = s.store.Put(ctx, key, f, artifact.SizeBytes, ArtifactContentType)
	return err
}

// Open returns the stored artifact of job id. Unknown ids and missing
// artifacts both report repo.ErrNotFound.
func (s *Service) Open(ctx context.Context, id string) (io.ReadCloser, domain.Job, error) {
	if s == nil || s.repo == nil {
		return nil, domain.Job{}, errors.New("job service not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.Job{}, repo.ErrNotFound
	}
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, domain.Job{}, err
	}
	body, info, err := s.store.Get(ctx, job.ObjectKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.Job{}, repo.ErrNotFound
		}
		return nil, domain.Job{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if info.SizeBytes > 0 {
		job.SizeBytes = info.SizeBytes
	}
	return body, job, nil
}
