package objectstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a storage path has no object.
var ErrNotFound = errors.New("object_not_found")

// SignedUpload is a pre-authorized client-side PUT.
type SignedUpload struct {
	URL   string
	Token string
}

// Store is a path-addressed blob store under a single bucket.
type Store interface {
	// Upload writes an object, overwriting any existing one, and returns a
	// public URL for it.
	Upload(ctx context.Context, path string, body io.Reader, size int64, contentType string) (string, error)
	Download(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	// SignedDownloadURL mints a time-boxed download URL.
	SignedDownloadURL(ctx context.Context, path string, expires time.Duration) (string, error)
	// SignedUploadURL mints a pre-authorized upload URL for a client PUT.
	SignedUploadURL(ctx context.Context, path string, expires time.Duration) (SignedUpload, error)
}
