// Package pipeline turns an uploaded LaTeX project into a corrected,
// re-packaged archive. A job moves through fixed stages; only a bad upload
// or a packaging failure stops it, everything else becomes a warning.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/paperpolish/paperpolish-go/internal/correction"
	"github.com/paperpolish/paperpolish-go/internal/domain"
)

type Stage string

const (
	StageMaterializing Stage = "materializing"
	StageLocatingEntry Stage = "locating_entry"
	StageOverlaying    Stage = "overlaying"
	StageCorrecting    Stage = "correcting"
	StagePackaging     Stage = "packaging"
	StageDone          Stage = "done"
)

const synthesizedNotice = "No main LaTeX document found; generated a placeholder main.tex."

type Config struct {
	WorkRoot     string
	OutputDir    string
	TemplateRoot string
	Limits       ExtractLimits

	Style     correction.Pass
	Citations correction.Pass
	Prose     correction.Pass

	Logger *slog.Logger
}

type Pipeline struct {
	workRoot     string
	outputDir    string
	templateRoot string
	limits       ExtractLimits
	style        correction.Pass
	citations    correction.Pass
	prose        correction.Pass
	logger       *slog.Logger
}

func New(cfg Config) (*Pipeline, error) {
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return nil, errors.New("pipeline output dir is required")
	}
	p := &Pipeline{
		workRoot:     strings.TrimSpace(cfg.WorkRoot),
		outputDir:    cfg.OutputDir,
		templateRoot: strings.TrimSpace(cfg.TemplateRoot),
		limits:       cfg.Limits.normalized(),
		style:        cfg.Style,
		citations:    cfg.Citations,
		prose:        cfg.Prose,
		logger:       cfg.Logger,
	}
	if p.workRoot == "" {
		p.workRoot = os.TempDir()
	}
	if p.style == nil {
		p.style = correction.StylePass{}
	}
	if p.citations == nil {
		p.citations = correction.CitationPass{}
	}
	if p.prose == nil {
		p.prose = correction.ProsePass{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

type Request struct {
	JobID    string
	Filename string
	Body     io.Reader
	Template domain.Template
	Options  domain.Options
}

// Result is returned only on success. Entry is slash-separated and
// relative to the project root.
type Result struct {
	Warnings []string
	Artifact Artifact
	Entry    string
	Outcomes []correction.Outcome
}

func (p *Pipeline) Process(ctx context.Context, req Request) (Result, error) {
	logger := p.logger.With("job_id", req.JobID)
	stage := func(s Stage) {
		logger.Info("pipeline stage", "stage", string(s))
	}

	ws, err := NewWorkspace(p.workRoot, req.JobID)
	if err != nil {
		return Result{}, newError(KindPackagingFailed, err, "could not create workspace")
	}
	defer func() {
		if err := ws.Release(); err != nil {
			logger.Warn("workspace cleanup failed", "error", err)
		}
	}()

	stage(StageMaterializing)
	if err := Materialize(ws, req.Filename, req.Body, p.limits); err != nil {
		logger.Warn("materialize failed", "error", err)
		return Result{}, err
	}

	var warnings Warnings
	var outcomes []correction.Outcome
	record := func(out correction.Outcome) {
		outcomes = append(outcomes, out)
		warnings.Add(out.Warnings...)
		logger.Info("pass finished", "pass", out.Pass, "status", string(out.Status), "warnings", len(out.Warnings))
	}

	stage(StageLocatingEntry)
	entry := LocateEntry(ws.Dir)
	if entry.Synthesized {
		warnings.Add(synthesizedNotice)
	}

	stage(StageOverlaying)
	record(ApplyTemplate(p.templateRoot, req.Template, ws.Dir))

	stage(StageCorrecting)
	// A started job runs to completion; passes bound themselves with their
	// own timeouts.
	passCtx := context.WithoutCancel(ctx)
	target := correction.Target{Dir: ws.Dir, Entry: entry.Path}
	for _, pass := range p.passesFor(req.Options) {
		record(correction.Run(passCtx, logger, pass, target))
	}

	stage(StagePackaging)
	artifact, err := Package(ws.Dir, p.outputDir)
	if err != nil {
		logger.Error("packaging failed", "error", err)
		return Result{}, err
	}

	rel, err := filepath.Rel(ws.Dir, entry.Path)
	if err != nil {
		rel = filepath.Base(entry.Path)
	}
	stage(StageDone)
	return Result{
		Warnings: warnings.List(),
		Artifact: artifact,
		Entry:    filepath.ToSlash(rel),
		Outcomes: outcomes,
	}, nil
}

func (p *Pipeline) passesFor(opts domain.Options) []correction.Pass {
	passes := []correction.Pass{p.style}
	if opts.Has(domain.OptionFixCitations) {
		passes = append(passes, p.citations)
	}
	if opts.Has(domain.OptionAIGrammar) {
		passes = append(passes, p.prose)
	}
	return passes
}
