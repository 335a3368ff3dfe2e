package photo

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/primefragrance/cmms/internal/config"
)

// MinIOStore keeps photos as objects in one bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

// NewMinIO builds a client for cfg. No request is made until first use.
func NewMinIO(cfg config.MinIOConfig) (*MinIOStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("photo: minio endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("photo: minio client: %w", err)
	}
	return &MinIOStore{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket when it does not exist.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("photo: check bucket %s: %w", s.bucket, err)
	}
	if ok {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("photo: make bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Save uploads r as object ref.
func (s *MinIOStore) Save(ctx context.Context, ref string, r io.Reader, size int64) error {
	if !validRef(ref) {
		return fmt.Errorf("photo: invalid reference %q", ref)
	}
	_, err := s.client.PutObject(ctx, s.bucket, ref, r, size, minio.PutObjectOptions{
		ContentType: mime.TypeByExtension(filepath.Ext(ref)),
	})
	if err != nil {
		return fmt.Errorf("photo: put %s: %w", ref, err)
	}
	return nil
}

// Open streams object ref.
func (s *MinIOStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if !validRef(ref) {
		return nil, ErrNotFound
	}
	obj, err := s.client.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("photo: get %s: %w", ref, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("photo: stat %s: %w", ref, err)
	}
	return obj, nil
}

// Delete removes object ref. A missing object is not an error.
func (s *MinIOStore) Delete(ctx context.Context, ref string) error {
	if !validRef(ref) {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("photo: remove %s: %w", ref, err)
	}
	return nil
}
