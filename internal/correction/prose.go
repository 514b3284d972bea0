package correction

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultProseTimeout = 60 * time.Second

	missingKeyNotice  = "OPENAI_API_KEY missing; skipped AI grammar."
	noClientNotice    = "AI client not configured; skipped AI grammar."
	noAbstractNotice  = "No abstract environment found; skipped AI grammar."
	proseInstructions = "You are an academic copy editor. Improve grammar, clarity and flow of the text you are given. " +
		"Keep every LaTeX command, environment, citation, reference and math expression exactly as written. " +
		"Only revise the prose. Return the revised text and nothing else."
)

var abstractBody = regexp.MustCompile(`(?s)(\\begin\{abstract\})(.+?)(\\end\{abstract\})`)

// Improver rewrites a piece of prose according to instruction.
type Improver interface {
	Improve(ctx context.Context, instruction, text string) (string, error)
}

// ProsePass sends the first abstract of the entry file to an Improver.
type ProsePass struct {
	APIKey   string
	Improver Improver
	Timeout  time.Duration
}

func (p ProsePass) Name() string { return "ai_grammar" }

func (p ProsePass) Run(ctx context.Context, target Target) Outcome {
	if strings.TrimSpace(p.APIKey) == "" {
		return Skipped(p.Name(), missingKeyNotice)
	}
	if p.Improver == nil {
		return Skipped(p.Name(), noClientNotice)
	}
	info, err := os.Stat(target.Entry)
	if err != nil {
		return Failed(p.Name(), fmt.Sprintf("AI grammar skipped: %v", err))
	}
	raw, err := os.ReadFile(target.Entry)
	if err != nil {
		return Failed(p.Name(), fmt.Sprintf("AI grammar skipped: %v", err))
	}
	text := string(raw)
	loc := abstractBody.FindStringSubmatchIndex(text)
	if loc == nil {
		return Skipped(p.Name(), noAbstractNotice)
	}
	body := text[loc[4]:loc[5]]

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProseTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	improved, err := p.Improver.Improve(callCtx, proseInstructions, body)
	if err != nil {
		return Failed(p.Name(), fmt.Sprintf("AI grammar skipped: %v", err))
	}
	improved = strings.TrimSpace(improved)
	if improved == "" {
		return Failed(p.Name(), "AI grammar skipped: empty response")
	}

	updated := text[:loc[4]] + "\n" + improved + "\n" + text[loc[5]:]
	if err := os.WriteFile(target.Entry, []byte(updated), info.Mode().Perm()); err != nil {
		return Failed(p.Name(), fmt.Sprintf("AI grammar skipped: %v", err))
	}
	return Applied(p.Name())
}
