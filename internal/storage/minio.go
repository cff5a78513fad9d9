package storage

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/gogotex/siteauth/internal/config"
	"github.com/gogotex/siteauth/internal/site"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BucketSource serves the pre-built site out of a MinIO (or any S3) bucket.
type BucketSource struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewBucketSource creates the MinIO client and checks that the bucket exists.
// The bucket is read-only from this server's point of view.
func NewBucketSource(ctx context.Context, cfg config.MinIOConfig) (*BucketSource, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("minio bucket %q does not exist", cfg.Bucket)
	}
	return &BucketSource{client: mc, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *BucketSource) key(name string) string {
	return path.Join(s.prefix, name)
}

// Open implements site.Source. Candidates are tried in site.Candidates order.
func (s *BucketSource) Open(ctx context.Context, name string) (*site.Asset, error) {
	for _, cand := range site.Candidates(name) {
		obj, err := s.client.GetObject(ctx, s.bucket, s.key(cand), minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		info, err := obj.Stat()
		if err != nil {
			_ = obj.Close()
			if minio.ToErrorResponse(err).Code == "NoSuchKey" {
				continue
			}
			return nil, err
		}
		return &site.Asset{Name: cand, Body: obj, Size: info.Size, ModTime: info.LastModified}, nil
	}
	return nil, site.ErrNotFound
}

// Ping reports whether the bucket is reachable.
func (s *BucketSource) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
