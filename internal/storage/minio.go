package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinIOConfig holds the connection settings of an S3 compatible object store
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	// PublicURL overrides the URL prefix of stored objects, e.g. a CDN
	PublicURL string
}

// minioStorage stores files in a MinIO bucket
type minioStorage struct {
	client     *minio.Client
	bucketName string
	publicURL  string
	logger     *zap.Logger
}

// NewMinIOStorage connects to the object store and creates the bucket if it doesn't exist
func NewMinIOStorage(ctx context.Context, cfg MinIOConfig, logger *zap.Logger) (*minioStorage, error) {
	s, err := newMinIOStorage(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}
	return s, nil
}

func newMinIOStorage(cfg MinIOConfig, logger *zap.Logger) (*minioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = strings.TrimRight(client.EndpointURL().String(), "/") + "/" + cfg.BucketName
	}

	return &minioStorage{
		client:     client,
		bucketName: cfg.BucketName,
		publicURL:  publicURL,
		logger:     logger,
	}, nil
}

// ensureBucket creates the bucket if it doesn't exist
func (s *minioStorage) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// Save uploads the content of "r" as a new object
func (s *minioStorage) Save(ctx context.Context, id, kind string, r io.Reader, size int64, contentType string) error {
	key := ObjectKey(id, kind)
	info, err := s.client.PutObject(ctx, s.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	s.logger.Debug("object stored", zap.String("key", key), zap.Int64("size", info.Size))
	return nil
}

// Open opens a stored object for reading
func (s *minioStorage) Open(ctx context.Context, id, kind string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, ObjectKey(id, kind), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return obj, nil
}

// Delete removes a stored object
func (s *minioStorage) Delete(ctx context.Context, id, kind string) error {
	return s.client.RemoveObject(ctx, s.bucketName, ObjectKey(id, kind), minio.RemoveObjectOptions{})
}

// URL returns the public URL of a stored object
func (s *minioStorage) URL(id, kind string) string {
	return s.publicURL + "/" + ObjectKey(id, kind)
}
