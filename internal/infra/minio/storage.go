package minio

import (
	"context"
	"fmt"
	"io"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Storage keeps raw uploads and annotated outputs in two MinIO buckets.
type Storage struct {
	client       *miniogo.Client
	uploadBucket string
	outputBucket string
}

type StorageConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UploadBucket string
	OutputBucket string
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{
		client:       client,
		uploadBucket: cfg.UploadBucket,
		outputBucket: cfg.OutputBucket,
	}, nil
}

func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.uploadBucket, s.outputBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

func (s *Storage) DownloadVideo(ctx context.Context, objectKey string, destPath string) error {
	return s.client.FGetObject(ctx, s.uploadBucket, objectKey, destPath, miniogo.GetObjectOptions{})
}

func (s *Storage) UploadVideo(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.uploadBucket, objectKey, reader, size, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload video: %w", err)
	}
	return nil
}

func (s *Storage) UploadAnnotated(ctx context.Context, objectKey string, srcPath string) error {
	_, err := s.client.FPutObject(ctx, s.outputBucket, objectKey, srcPath, miniogo.PutObjectOptions{
		ContentType: "video/mp4",
	})
	if err != nil {
		return fmt.Errorf("upload annotated video: %w", err)
	}
	return nil
}

func (s *Storage) OpenAnnotated(ctx context.Context, objectKey string) (io.ReadCloser, int64, error) {
	obj, err := s.client.GetObject(ctx, s.outputBucket, objectKey, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("get annotated video: %w", err)
	}
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, 0, fmt.Errorf("stat annotated video: %w", err)
	}
	return obj, stat.Size, nil
}

func (s *Storage) DeleteUpload(ctx context.Context, objectKey string) error {
	return s.client.RemoveObject(ctx, s.uploadBucket, objectKey, miniogo.RemoveObjectOptions{})
}

func (s *Storage) DeleteAnnotated(ctx context.Context, objectKey string) error {
	return s.client.RemoveObject(ctx, s.outputBucket, objectKey, miniogo.RemoveObjectOptions{})
}
