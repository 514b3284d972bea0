package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/paperpolish/paperpolish-go/api"
	"github.com/paperpolish/paperpolish-go/internal/config"
	"github.com/paperpolish/paperpolish-go/internal/correction"
	"github.com/paperpolish/paperpolish-go/internal/llm"
	"github.com/paperpolish/paperpolish-go/internal/pipeline"
	"github.com/paperpolish/paperpolish-go/internal/platform/eventlog"
	"github.com/paperpolish/paperpolish-go/internal/platform/httpserver"
	jobsvc "github.com/paperpolish/paperpolish-go/internal/service/jobs"
)

const serviceName = config.ServiceName

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	jobs, err := openJobStore(ctx, cfg.Storage)
	if err != nil {
		logger.Error("job store unavailable", "store", cfg.Storage.JobStore, "error", err)
		os.Exit(1)
	}
	defer func() { _ = jobs.Close() }()

	artifacts, err := openArtifactStore(ctx, cfg.Storage)
	if err != nil {
		logger.Error("artifact store unavailable", "store", cfg.Storage.ArtifactStore, "error", err)
		os.Exit(1)
	}

	var improver correction.Improver
	if cfg.OpenAI.APIKey != "" {
		client, err := llm.New(llm.Config{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
		})
		if err != nil {
			logger.Error("openai client init failed", "error", err)
			os.Exit(2)
		}
		improver = client
	} else {
		logger.Warn("OPENAI_API_KEY not set; ai_grammar requests will be skipped")
	}

	outputDir := filepath.Join(cfg.Pipeline.WorkRoot, "paperpolish-out")
	proc, err := pipeline.New(pipeline.Config{
		WorkRoot:     cfg.Pipeline.WorkRoot,
		OutputDir:    outputDir,
		TemplateRoot: cfg.Pipeline.TemplateRoot,
		Limits: pipeline.ExtractLimits{
			MaxBytes: cfg.ExtractMaxBytes(),
			MaxFiles: cfg.Pipeline.ExtractMaxFiles,
		},
		Style: correction.StylePass{
			Binary:  cfg.LatexIndent.Binary,
			Timeout: cfg.LatexIndent.Timeout,
		},
		Citations: correction.CitationPass{},
		Prose: correction.ProsePass{
			APIKey:   cfg.OpenAI.APIKey,
			Improver: improver,
			Timeout:  cfg.OpenAI.Timeout,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("pipeline init failed", "error", err)
		os.Exit(2)
	}

	service, err := jobsvc.NewService(proc, jobs.repo, artifacts, logger)
	if err != nil {
		logger.Error("job service init failed", "error", err)
		os.Exit(2)
	}

	events, err := eventlog.NewWriter(cfg.EventsLog)
	if err != nil {
		logger.Error("invalid events log", "error", err)
		os.Exit(2)
	}

	openAPI, err := api.JSON(ctx)
	if err != nil {
		logger.Error("openapi document invalid", "error", err)
		os.Exit(2)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz(serviceName))
	mux.HandleFunc(
		"/readyz",
		httpserver.ReadyzWithChecks(
			serviceName,
			jobs.readiness(),
			httpserver.ReadinessCheck{
				Name:    "artifact_store",
				Timeout: 2 * time.Second,
				Check:   artifacts.Check,
			},
		),
	)

	paperAPI := newPaperPolishAPI(apiDeps{
		Logger:         logger,
		Jobs:           service,
		Events:         events,
		OpenAPI:        openAPI,
		Version:        cfg.Version,
		UploadMaxBytes: cfg.UploadMaxBytes(),
		SpoolDir:       cfg.Pipeline.WorkRoot,
		DBStatus:       jobs.status,
	})
	paperAPI.register(mux)

	handler := httpserver.CORS(cfg.HTTP.AllowOrigins, mux)

	srvCfg := httpserver.Config{
		Service:         serviceName,
		Addr:            cfg.HTTP.Addr,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
	}

	if err := httpserver.Run(ctx, logger, srvCfg, httpserver.Wrap(logger, serviceName, handler)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
