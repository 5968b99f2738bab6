// Package storage uploads product and profile images to an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/domain"
)

// ErrNotConfigured is returned by Unconfigured for every call.
var ErrNotConfigured = errors.New("image storage not configured")

// Upload describes an incoming file.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ImageStore persists images and returns their public reference.
type ImageStore interface {
	Put(ctx context.Context, folder string, up Upload) (domain.Image, error)
	Delete(ctx context.Context, publicID string) error
}

type minioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    *zap.Logger
}

// NewMinIO connects to the configured endpoint and makes sure the bucket exists.
func NewMinIO(ctx context.Context, cfg config.MinIOConfig, logger *zap.Logger) (ImageStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("created image bucket", zap.String("bucket", cfg.Bucket))
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &minioStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}, nil
}

func (s *minioStore) Put(ctx context.Context, folder string, up Upload) (domain.Image, error) {
	key := ObjectKey(folder, up.Filename)
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := s.client.PutObject(ctx, s.bucket, key, up.Body, up.Size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return domain.Image{}, fmt.Errorf("put object %s: %w", key, err)
	}
	s.logger.Debug("stored image", zap.String("key", key), zap.Int64("size", up.Size))
	return domain.Image{PublicID: key, URL: s.publicURL + "/" + key}, nil
}

func (s *minioStore) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", publicID, err)
	}
	return nil
}

// ObjectKey builds a collision-free key that keeps the original extension.
func ObjectKey(folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join(folder, uuid.NewString()+ext)
}

// Unconfigured rejects every upload. It is used when no endpoint is set.
type Unconfigured struct{}

func (Unconfigured) Put(context.Context, string, Upload) (domain.Image, error) {
	return domain.Image{}, ErrNotConfigured
}

func (Unconfigured) Delete(context.Context, string) error {
	return nil
}
