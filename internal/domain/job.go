package domain

import (
	"errors"
	"strings"
	"time"
)

// Job is the persisted record of one formatting request.
type Job struct {
	ID           string
	CreatedAt    time.Time
	Filename     string
	Template     Template
	Options      Options
	Warnings     []string
	WarningCount int
	ObjectKey    string
	SizeBytes    int64
	SHA256       string
}

func (j Job) Validate() error {
	if strings.TrimSpace(j.ID) == "" {
		return errors.New("job id is required")
	}
	if strings.TrimSpace(string(j.Template)) == "" {
		return errors.New("template is required")
	}
	if strings.TrimSpace(j.ObjectKey) == "" {
		return errors.New("object key is required")
	}
	if j.CreatedAt.IsZero() {
		return errors.New("created_at is required")
	}
	return nil
}
