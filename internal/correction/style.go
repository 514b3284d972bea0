package correction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultStyleBinary  = "latexindent"
	DefaultStyleTimeout = 10 * time.Second
)

// StylePass runs latexindent over the entry file. The tool writes its
// output and log into a scratch directory outside the project; the entry is
// replaced only after a clean exit.
type StylePass struct {
	Binary  string
	Timeout time.Duration
	// LookPath resolves Binary; nil means exec.LookPath.
	LookPath func(file string) (string, error)
}

func (p StylePass) Name() string { return "latexindent" }

func (p StylePass) Run(ctx context.Context, target Target) Outcome {
	binary := strings.TrimSpace(p.Binary)
	if binary == "" {
		binary = DefaultStyleBinary
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultStyleTimeout
	}
	lookPath := p.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	exe, err := lookPath(binary)
	if err != nil {
		return Skipped(p.Name(), fmt.Sprintf("%s not found; skipped pretty-formatting.", binary))
	}

	scratch, err := os.MkdirTemp("", "paperpolish-indent-")
	if err != nil {
		return Failed(p.Name(), fmt.Sprintf("%s skipped: %v", binary, err))
	}
	defer os.RemoveAll(scratch)

	base := filepath.Base(target.Entry)
	outPath := filepath.Join(scratch, base)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, exe,
		"-s",
		"-g="+filepath.Join(scratch, "indent.log"),
		"-o="+outPath,
		base,
	)
	cmd.Dir = filepath.Dir(target.Entry)
	cmd.Stdin = nil
	var stderr bytes.Buffer
	cmd.Stdout = &stderr
	cmd.Stderr = &stderr
	// Children that inherit the output pipes must not keep Wait blocked
	// after the process is killed.
	cmd.WaitDelay = time.Second

	err = cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return Failed(p.Name(), fmt.Sprintf("%s timed out after %s; skipped pretty-formatting.", binary, timeout))
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Failed(p.Name(), fmt.Sprintf("%s exited with status %d; skipped pretty-formatting.%s", binary, exitErr.ExitCode(), detail(stderr.String())))
		}
		return Failed(p.Name(), fmt.Sprintf("%s skipped: %v", binary, err))
	}

	formatted, err := os.ReadFile(outPath)
	if err != nil || len(bytes.TrimSpace(formatted)) == 0 {
		return Failed(p.Name(), fmt.Sprintf("%s produced no output; skipped pretty-formatting.", binary))
	}
	info, err := os.Stat(target.Entry)
	if err != nil {
		return Failed(p.Name(), fmt.Sprintf("%s skipped: %v", binary, err))
	}
	if err := os.WriteFile(target.Entry, formatted, info.Mode().Perm()); err != nil {
		return Failed(p.Name(), fmt.Sprintf("%s skipped: %v", binary, err))
	}
	return Applied(p.Name())
}

func detail(output string) string {
	output = strings.TrimSpace(output)
	if output == "" {
		return ""
	}
	if lines := strings.Split(output, "\n"); len(lines) > 0 {
		output = strings.TrimSpace(lines[len(lines)-1])
	}
	if len(output) > 200 {
		output = output[:200]
	}
	return " " + output
}
