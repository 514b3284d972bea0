package repo

import (
	"context"
	"errors"

	"github.com/paperpolish/paperpolish-go/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// JobRepository persists finished formatting jobs so their artifacts can
// be downloaded later. Jobs are write-once.
type JobRepository interface {
	SaveJob(ctx context.Context, job domain.Job) error
	GetJob(ctx context.Context, id string) (domain.Job, error)
	Ping(ctx context.Context) error
}
