package minio

import (
	"context"
	"fmt"

	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/domain/entity"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Storage struct {
	client *miniogo.Client
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Storage{client: client}, nil
}

func (s *Storage) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

func (s *Storage) Download(ctx context.Context, bucket, key, destPath string) error {
	err := s.client.FGetObject(ctx, bucket, key, destPath, miniogo.GetObjectOptions{})
	if err != nil {
		return &entity.TransferError{Op: "download", Bucket: bucket, Key: key, Err: err}
	}
	return nil
}

func (s *Storage) Upload(ctx context.Context, localPath, bucket, key string) error {
	_, err := s.client.FPutObject(ctx, bucket, key, localPath, miniogo.PutObjectOptions{
		ContentType: "application/zip",
	})
	if err != nil {
		return &entity.TransferError{Op: "upload", Bucket: bucket, Key: key, Err: err}
	}
	return nil
}
