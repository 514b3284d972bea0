package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	platformobjectstore "github.com/paperpolish/paperpolish-go/internal/platform/objectstore"
)

// MinioStore keeps objects in the configured artifacts bucket.
type MinioStore struct {
	client *minio.Client
	cfg    platformobjectstore.Config
}

func NewMinioStore(client *minio.Client, cfg platformobjectstore.Config) (*MinioStore, error) {
	if client == nil {
		return nil, errors.New("minio client is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &MinioStore{client: client, cfg: cfg}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (ObjectInfo, error) {
	if err := ValidateKey(key); err != nil {
		return ObjectInfo{}, err
	}
	info, err := s.client.PutObject(ctx, s.cfg.BucketArtifacts, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("put object: %w", err)
	}
	return ObjectInfo{Key: key, SizeBytes: info.Size}, nil
}

func (s *MinioStore) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ValidateKey(key); err != nil {
		return nil, ObjectInfo{}, ErrNotFound
	}
	obj, err := s.client.GetObject(ctx, s.cfg.BucketArtifacts, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, mapMinioError(err)
	}
	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, ObjectInfo{}, mapMinioError(err)
	}
	return obj, ObjectInfo{Key: key, SizeBytes: stat.Size}, nil
}

func (s *MinioStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	if err := ValidateKey(key); err != nil {
		return ObjectInfo{}, ErrNotFound
	}
	stat, err := s.client.StatObject(ctx, s.cfg.BucketArtifacts, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, mapMinioError(err)
	}
	return ObjectInfo{Key: key, SizeBytes: stat.Size}, nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.cfg.BucketArtifacts, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", mapMinioError(err))
	}
	return nil
}

func (s *MinioStore) Check(ctx context.Context) error {
	return platformobjectstore.CheckBucket(ctx, s.client, s.cfg)
}

func mapMinioError(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return err
}
