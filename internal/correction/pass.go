// Package correction holds the text passes applied to a project's entry
// file. Every pass reports an Outcome instead of returning an error: a pass
// that cannot do its job says why in a warning and the job moves on.
package correction

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

type Status string

const (
	StatusApplied Status = "applied"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome is what a single pass reports back to the orchestrator.
// Warnings may be present on any status; an applied pass can still warn.
type Outcome struct {
	Pass     string
	Status   Status
	Warnings []string
}

func Applied(pass string, warnings ...string) Outcome {
	return Outcome{Pass: pass, Status: StatusApplied, Warnings: warnings}
}

func Skipped(pass string, reason string) Outcome {
	return Outcome{Pass: pass, Status: StatusSkipped, Warnings: []string{reason}}
}

func Failed(pass string, reason string) Outcome {
	return Outcome{Pass: pass, Status: StatusFailed, Warnings: []string{reason}}
}

// Target is the file a pass works on and the project it belongs to.
type Target struct {
	Dir   string
	Entry string
}

type Pass interface {
	Name() string
	Run(ctx context.Context, target Target) Outcome
}

// Run executes pass and converts a panic into a failed outcome.
func Run(ctx context.Context, logger *slog.Logger, pass Pass, target Target) (out Outcome) {
	if logger == nil {
		logger = slog.Default()
	}
	name := pass.Name()
	defer func() {
		if v := recover(); v != nil {
			logger.Error("correction pass panicked", "pass", name, "panic", v, "stack", string(debug.Stack()))
			out = Failed(name, fmt.Sprintf("%s failed unexpectedly; skipped.", name))
		}
	}()
	out = pass.Run(ctx, target)
	if out.Pass == "" {
		out.Pass = name
	}
	return out
}
