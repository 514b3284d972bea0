// Package eventlog appends client analytics events to a JSON Lines file.
package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Event struct {
	OccurredAt time.Time
	IP         string
	UserAgent  string
	Fields     map[string]any
}

// Record flattens the event into one JSON object. Client fields cannot
// override ts, ip or ua.
func (e Event) Record() map[string]any {
	rec := make(map[string]any, len(e.Fields)+3)
	for k, v := range e.Fields {
		rec[k] = v
	}
	occurred := e.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	rec["ts"] = occurred.UTC().Format(time.RFC3339Nano)
	rec["ip"] = nullIfEmpty(e.IP)
	rec["ua"] = nullIfEmpty(e.UserAgent)
	return rec
}

// Kind and Label are the fields worth logging.
func (e Event) Kind() string  { return stringField(e.Fields, "kind") }
func (e Event) Label() string { return stringField(e.Fields, "label") }

type Writer struct {
	path string
	mu   sync.Mutex
}

func NewWriter(path string) (*Writer, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("events log path is required")
	}
	return &Writer{path: path}, nil
}

func (w *Writer) Path() string { return w.path }

func (w *Writer) Append(ctx context.Context, event Event) error {
	if w == nil {
		return errors.New("event writer not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := json.Marshal(event.Record())
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create events dir: %w", err)
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open events log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("append event: %w", err)
	}
	return f.Close()
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func stringField(fields map[string]any, key string) string {
	if fields == nil {
		return ""
	}
	switch v := fields[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
