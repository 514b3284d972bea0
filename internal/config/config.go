// Package config assembles the paperpolish-api configuration from the
// environment and an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paperpolish/paperpolish-go/internal/platform/env"
	"gopkg.in/yaml.v3"
)

const (
	ServiceName = "paperpolish-api"

	JobStoreMemory   = "memory"
	JobStoreFile     = "file"
	JobStoreSQLite   = "sqlite"
	JobStorePostgres = "postgres"

	ArtifactStoreLocal = "local"
	ArtifactStoreMinIO = "minio"
)

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	AllowOrigins    []string      `yaml:"allow_origins"`
}

type PipelineConfig struct {
	TemplateRoot    string `yaml:"template_root"`
	WorkRoot        string `yaml:"work_root"`
	UploadMaxMiB    int    `yaml:"upload_max_mib"`
	ExtractMaxMiB   int    `yaml:"extract_max_mib"`
	ExtractMaxFiles int    `yaml:"extract_max_files"`
}

type StyleConfig struct {
	Binary  string        `yaml:"binary"`
	Timeout time.Duration `yaml:"timeout"`
}

type OpenAIConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	JobStore      string `yaml:"job_store"`
	JobsFile      string `yaml:"jobs_file"`
	JobsDB        string `yaml:"jobs_db"`
	ArtifactStore string `yaml:"artifact_store"`
	DataDir       string `yaml:"data_dir"`
}

type Config struct {
	Version     string         `yaml:"version"`
	HTTP        HTTPConfig     `yaml:"http"`
	Pipeline    PipelineConfig `yaml:"pipeline"`
	LatexIndent StyleConfig    `yaml:"latexindent"`
	OpenAI      OpenAIConfig   `yaml:"openai"`
	Storage     StorageConfig  `yaml:"storage"`
	EventsLog   string         `yaml:"events_log"`
}

// Load reads the environment and then, when PAPERPOLISH_CONFIG names a
// file, lets that file override what the environment set.
func Load() (Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	if path := env.String("PAPERPOLISH_CONFIG", ""); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func FromEnv() (Config, error) {
	shutdownTimeout, err := env.Duration("PAPERPOLISH_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	readTimeout, err := env.Duration("PAPERPOLISH_READ_TIMEOUT", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	uploadMaxMiB, err := env.Int("PAPERPOLISH_UPLOAD_MAX_MIB", 25)
	if err != nil {
		return Config{}, err
	}
	extractMaxMiB, err := env.Int("PAPERPOLISH_EXTRACT_MAX_MIB", 200)
	if err != nil {
		return Config{}, err
	}
	extractMaxFiles, err := env.Int("PAPERPOLISH_EXTRACT_MAX_FILES", 5000)
	if err != nil {
		return Config{}, err
	}
	styleTimeout, err := env.Duration("LATEXINDENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	openAITimeout, err := env.Duration("OPENAI_TIMEOUT", 60*time.Second)
	if err != nil {
		return Config{}, err
	}
	temperature, err := env.Float("OPENAI_TEMPERATURE", 0.2)
	if err != nil {
		return Config{}, err
	}

	dataDir := env.String("DATA_DIR", "data")
	return Config{
		Version: env.String("SERVICE_VERSION", "unknown"),
		HTTP: HTTPConfig{
			Addr:            env.String("PAPERPOLISH_HTTP_ADDR", ":8000"),
			ShutdownTimeout: shutdownTimeout,
			ReadTimeout:     readTimeout,
			AllowOrigins:    env.Strings("ALLOW_ORIGINS", []string{"*"}),
		},
		Pipeline: PipelineConfig{
			TemplateRoot:    env.String("TEMPLATE_ROOT", filepath.Join("packages", "templates")),
			WorkRoot:        env.String("PAPERPOLISH_WORK_ROOT", os.TempDir()),
			UploadMaxMiB:    uploadMaxMiB,
			ExtractMaxMiB:   extractMaxMiB,
			ExtractMaxFiles: extractMaxFiles,
		},
		LatexIndent: StyleConfig{
			Binary:  env.String("LATEXINDENT_BIN", "latexindent"),
			Timeout: styleTimeout,
		},
		OpenAI: OpenAIConfig{
			APIKey:      env.String("OPENAI_API_KEY", ""),
			BaseURL:     env.String("OPENAI_BASE_URL", ""),
			Model:       env.String("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature: temperature,
			Timeout:     openAITimeout,
		},
		Storage: StorageConfig{
			JobStore:      strings.ToLower(env.String("JOB_STORE", JobStoreMemory)),
			JobsFile:      env.String("JOBS_FILE", filepath.Join(dataDir, "jobs.json")),
			JobsDB:        env.String("JOBS_DB", filepath.Join(os.TempDir(), "paperpolish_jobs.db")),
			ArtifactStore: strings.ToLower(env.String("ARTIFACT_STORE", ArtifactStoreLocal)),
			DataDir:       dataDir,
		},
		EventsLog: env.String("EVENTS_LOG", filepath.Join(dataDir, "logs", "events.jsonl")),
	}, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.Storage.JobStore = strings.ToLower(strings.TrimSpace(c.Storage.JobStore))
	c.Storage.ArtifactStore = strings.ToLower(strings.TrimSpace(c.Storage.ArtifactStore))
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return errors.New("PAPERPOLISH_HTTP_ADDR is required")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return errors.New("PAPERPOLISH_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Pipeline.UploadMaxMiB < 1 {
		return errors.New("PAPERPOLISH_UPLOAD_MAX_MIB must be >= 1")
	}
	if c.Pipeline.ExtractMaxMiB < 1 {
		return errors.New("PAPERPOLISH_EXTRACT_MAX_MIB must be >= 1")
	}
	if c.Pipeline.ExtractMaxFiles < 1 {
		return errors.New("PAPERPOLISH_EXTRACT_MAX_FILES must be >= 1")
	}
	if c.LatexIndent.Timeout <= 0 {
		return errors.New("LATEXINDENT_TIMEOUT must be positive")
	}
	if c.OpenAI.Timeout <= 0 {
		return errors.New("OPENAI_TIMEOUT must be positive")
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return errors.New("OPENAI_TEMPERATURE must be between 0 and 2")
	}
	switch c.Storage.JobStore {
	case JobStoreMemory, JobStorePostgres:
	case JobStoreFile:
		if strings.TrimSpace(c.Storage.JobsFile) == "" {
			return errors.New("JOBS_FILE is required for the file job store")
		}
	case JobStoreSQLite:
		if strings.TrimSpace(c.Storage.JobsDB) == "" {
			return errors.New("JOBS_DB is required for the sqlite job store")
		}
	default:
		return fmt.Errorf("JOB_STORE must be one of memory, file, sqlite, postgres: %q", c.Storage.JobStore)
	}
	switch c.Storage.ArtifactStore {
	case ArtifactStoreMinIO:
	case ArtifactStoreLocal:
		if strings.TrimSpace(c.Storage.DataDir) == "" {
			return errors.New("DATA_DIR is required for the local artifact store")
		}
	default:
		return fmt.Errorf("ARTIFACT_STORE must be local or minio: %q", c.Storage.ArtifactStore)
	}
	return nil
}

func (c Config) UploadMaxBytes() int64 {
	return int64(c.Pipeline.UploadMaxMiB) << 20
}

func (c Config) ExtractMaxBytes() int64 {
	return int64(c.Pipeline.ExtractMaxMiB) << 20
}
