package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/paperpolish/paperpolish-go/internal/config"
	"github.com/paperpolish/paperpolish-go/internal/platform/httpserver"
	"github.com/paperpolish/paperpolish-go/internal/platform/objectstore"
	"github.com/paperpolish/paperpolish-go/internal/platform/postgres"
	platformsqlite "github.com/paperpolish/paperpolish-go/internal/platform/sqlite"
	"github.com/paperpolish/paperpolish-go/internal/repo"
	repofile "github.com/paperpolish/paperpolish-go/internal/repo/file"
	repomemory "github.com/paperpolish/paperpolish-go/internal/repo/memory"
	repopg "github.com/paperpolish/paperpolish-go/internal/repo/postgres"
	reposqlite "github.com/paperpolish/paperpolish-go/internal/repo/sqlite"
	storageobjectstore "github.com/paperpolish/paperpolish-go/internal/storage/objectstore"
)

type jobStore struct {
	repo   repo.JobRepository
	status dbStatusFunc
	close  io.Closer
}

func openJobStore(ctx context.Context, cfg config.StorageConfig) (jobStore, error) {
	switch cfg.JobStore {
	case config.JobStoreMemory:
		return jobStore{repo: repomemory.NewJobStore(), status: notPresent}, nil
	case config.JobStoreFile:
		store, err := repofile.Open(cfg.JobsFile)
		if err != nil {
			return jobStore{}, err
		}
		return jobStore{repo: store, status: pingStatus(store)}, nil
	case config.JobStoreSQLite:
		db, err := platformsqlite.Open(ctx, platformsqlite.Config{Path: cfg.JobsDB})
		if err != nil {
			return jobStore{}, err
		}
		store := reposqlite.NewJobStore(db)
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return jobStore{}, err
		}
		return jobStore{repo: store, status: pingStatus(store), close: db}, nil
	case config.JobStorePostgres:
		dbCfg, err := postgres.ConfigFromEnv()
		if err != nil {
			return jobStore{}, fmt.Errorf("database config: %w", err)
		}
		db, err := postgres.Open(ctx, dbCfg)
		if err != nil {
			return jobStore{}, err
		}
		store := repopg.NewJobStore(db)
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return jobStore{}, err
		}
		return jobStore{repo: store, status: pingStatus(store), close: db}, nil
	default:
		return jobStore{}, fmt.Errorf("unknown job store %q", cfg.JobStore)
	}
}

func (s jobStore) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close.Close()
}

func (s jobStore) readiness() httpserver.ReadinessCheck {
	return httpserver.ReadinessCheck{
		Name:  "job_store",
		Check: s.repo.Ping,
	}
}

func notPresent(context.Context) string { return "not_present" }

func pingStatus(p interface{ Ping(context.Context) error }) dbStatusFunc {
	return func(ctx context.Context) string {
		if err := p.Ping(ctx); err != nil {
			msg := err.Error()
			if len(msg) > 120 {
				msg = msg[:120]
			}
			return "error: " + msg
		}
		return "ok"
	}
}

func openArtifactStore(ctx context.Context, cfg config.StorageConfig) (storageobjectstore.Store, error) {
	switch cfg.ArtifactStore {
	case config.ArtifactStoreLocal:
		return storageobjectstore.NewLocalStore(cfg.DataDir)
	case config.ArtifactStoreMinIO:
		storeCfg, err := objectstore.ConfigFromEnv()
		if err != nil {
			return nil, fmt.Errorf("object store config: %w", err)
		}
		client, err := objectstore.NewMinIOClient(storeCfg)
		if err != nil {
			return nil, fmt.Errorf("object store client: %w", err)
		}
		startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := objectstore.EnsureBucket(startupCtx, client, storeCfg); err != nil {
			return nil, err
		}
		return storageobjectstore.NewMinioStore(client, storeCfg)
	default:
		return nil, fmt.Errorf("unknown artifact store %q", cfg.ArtifactStore)
	}
}
