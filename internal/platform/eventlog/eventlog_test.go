package eventlog

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAppendWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.jsonl")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	at := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	events := []Event{
		{OccurredAt: at, IP: "10.0.0.1", UserAgent: "ua/1", Fields: map[string]any{"kind": "click", "label": "upload", "ts": "forged"}},
		{OccurredAt: at, Fields: map[string]any{"kind": 3}},
	}
	for _, e := range events {
		if err := w.Append(context.Background(), e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("decode line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, rec)
	}
	if len(lines) != 2 {
		t.Fatalf("lines=%d, want 2", len(lines))
	}
	if lines[0]["ts"] != "2024-03-04T05:06:07Z" || lines[0]["ip"] != "10.0.0.1" || lines[0]["label"] != "upload" {
		t.Fatalf("first line=%v", lines[0])
	}
	if lines[1]["ip"] != nil || lines[1]["ua"] != nil {
		t.Fatalf("second line=%v", lines[1])
	}
}

func TestKindAndLabel(t *testing.T) {
	e := Event{Fields: map[string]any{"kind": 7.0, "label": "x"}}
	if e.Kind() != "7" || e.Label() != "x" {
		t.Fatalf("Kind()=%q Label()=%q", e.Kind(), e.Label())
	}
	if (Event{}).Kind() != "" {
		t.Fatalf("empty Kind() not empty")
	}
}

func TestNewWriterRequiresPath(t *testing.T) {
	if _, err := NewWriter(""); err == nil {
		t.Fatalf("NewWriter(\"\") succeeded")
	}
}
