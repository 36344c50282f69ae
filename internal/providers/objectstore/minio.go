package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/planhaus/planhaus/internal/config"
)

// MinioStore serves blobs from an S3-compatible endpoint.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinio(cfg config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	return &MinioStore{
		client:    client,
		bucket:    cfg.Storage.Bucket,
		publicURL: cfg.Storage.PublicURL,
	}, nil
}

func (s *MinioStore) Upload(ctx context.Context, path string, body io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, path, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, path), nil
	}
	scheme := "http"
	if s.client.EndpointURL().Scheme == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.client.EndpointURL().Host, s.bucket, path), nil
}

func (s *MinioStore) Download(ctx context.Context, path string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *MinioStore) Delete(ctx context.Context, path string) error {
	return s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
}

func (s *MinioStore) SignedDownloadURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, path, expires, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *MinioStore) SignedUploadURL(ctx context.Context, path string, expires time.Duration) (SignedUpload, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, path, expires)
	if err != nil {
		return SignedUpload{}, err
	}
	// S3 presigned PUTs carry authorization in the query string; the token
	// field stays empty for this backend.
	return SignedUpload{URL: u.String()}, nil
}
