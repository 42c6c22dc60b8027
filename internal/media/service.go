// Package media stores entry attachments and profile pictures in an
// S3-compatible object store. A nil *Service is valid and reports media
// as disabled, which keeps the handlers free of config checks.
package media

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"lucid/api/internal/util"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

type Service struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewService connects to the object store and makes sure the bucket
// exists. Returns (nil, nil) when no endpoint is configured.
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &Service{client: client, bucket: cfg.Bucket, publicURL: publicURL}, nil
}

func (s *Service) Enabled() bool {
	return s != nil
}

// Upload stores the object under a per-user prefix and returns its
// public URL. The original filename only contributes its extension.
func (s *Service) Upload(ctx context.Context, userID, filename, contentType string, body io.Reader, size int64) (string, error) {
	if s == nil {
		return "", fmt.Errorf("media storage not configured")
	}

	objectName := fmt.Sprintf("%s/%s%s", userID, util.NewID("med"), strings.ToLower(path.Ext(filename)))
	_, err := s.client.PutObject(ctx, s.bucket, objectName, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	return s.publicURL + "/" + objectName, nil
}

// Remove deletes the object a previously returned URL points at. URLs
// from other hosts are ignored.
func (s *Service) Remove(ctx context.Context, objectURL string) error {
	if s == nil {
		return nil
	}

	objectName, ok := s.objectName(objectURL)
	if !ok {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// PresignedGet returns a short-lived direct link, for clients that need
// to fetch private media without going through the API.
func (s *Service) PresignedGet(ctx context.Context, objectURL string, ttl time.Duration) (string, error) {
	if s == nil {
		return "", fmt.Errorf("media storage not configured")
	}

	objectName, ok := s.objectName(objectURL)
	if !ok {
		return "", fmt.Errorf("url %q is not managed by this store", objectURL)
	}
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return presigned.String(), nil
}

func (s *Service) objectName(objectURL string) (string, bool) {
	prefix := s.publicURL + "/"
	if !strings.HasPrefix(objectURL, prefix) {
		return "", false
	}
	return strings.TrimPrefix(objectURL, prefix), true
}
