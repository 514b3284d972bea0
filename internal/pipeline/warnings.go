package pipeline

import "strings"

// Warnings collects user-facing messages in the order they were raised.
type Warnings struct {
	items []string
}

func (w *Warnings) Add(messages ...string) {
	for _, msg := range messages {
		msg = strings.TrimSpace(msg)
		if msg == "" {
			continue
		}
		w.items = append(w.items, msg)
	}
}

func (w *Warnings) Len() int { return len(w.items) }

// List returns a copy; it is never nil.
func (w *Warnings) List() []string {
	out := make([]string, len(w.items))
	copy(out, w.items)
	return out
}
