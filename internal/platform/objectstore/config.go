package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paperpolish/paperpolish-go/internal/platform/env"
)

type Config struct {
	Endpoint        string
	AccessKey       string
	SecretKey       string
	Region          string
	UseSSL          bool
	BucketArtifacts string
	// ExpireDays, when positive, installs a bucket lifecycle rule so stored
	// artifacts are removed after that many days.
	ExpireDays int
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("PAPERPOLISH_MINIO_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	expireDays, err := env.Int("PAPERPOLISH_MINIO_EXPIRE_DAYS", 0)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:        env.String("PAPERPOLISH_MINIO_ENDPOINT", "localhost:9000"),
		AccessKey:       env.String("PAPERPOLISH_MINIO_ACCESS_KEY", "paperpolish"),
		SecretKey:       env.String("PAPERPOLISH_MINIO_SECRET_KEY", "paperpolishminio"),
		Region:          env.String("PAPERPOLISH_MINIO_REGION", "us-east-1"),
		UseSSL:          useSSL,
		BucketArtifacts: env.String("PAPERPOLISH_MINIO_BUCKET_ARTIFACTS", "paperpolish-artifacts"),
		ExpireDays:      expireDays,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.TrimSpace(c.BucketArtifacts) == "" {
		return errors.New("artifacts bucket is required")
	}
	if c.ExpireDays < 0 {
		return errors.New("expire days must be >= 0")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}
