package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Workspace is the private scratch area of one job. Dir holds the extracted
// project; uploads are spooled next to it so nothing but project files ever
// lands in Dir.
type Workspace struct {
	Dir string

	base string
	once sync.Once
}

func NewWorkspace(root string, jobID string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create work root: %w", err)
	}
	prefix := "job-"
	if id := sanitizeSegment(jobID); id != "" {
		prefix += id + "-"
	}
	base, err := os.MkdirTemp(root, prefix)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	dir := filepath.Join(base, "project")
	if err := os.Mkdir(dir, 0o755); err != nil {
		_ = os.RemoveAll(base)
		return nil, fmt.Errorf("create project dir: %w", err)
	}
	return &Workspace{Dir: dir, base: base}, nil
}

func (w *Workspace) scratchFile(pattern string) (*os.File, error) {
	if w == nil || w.base == "" {
		return nil, errors.New("workspace is released")
	}
	return os.CreateTemp(w.base, pattern)
}

// Release removes the workspace. It is safe to call more than once.
func (w *Workspace) Release() error {
	if w == nil {
		return nil
	}
	var err error
	w.once.Do(func() {
		err = os.RemoveAll(w.base)
	})
	return err
}

func sanitizeSegment(value string) string {
	value = strings.TrimSpace(value)
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
		if b.Len() >= 64 {
			break
		}
	}
	return b.String()
}
