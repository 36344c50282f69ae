package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	deleted []string
}

type memoryObject struct {
	data        []byte
	contentType string
}

func NewMemory() *MemoryStore {
	return &MemoryStore{objects: map[string]memoryObject{}}
}

func (s *MemoryStore) Upload(ctx context.Context, path string, body io.Reader, size int64, contentType string) (string, error) {
	_ = ctx
	_ = size
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.objects[path] = memoryObject{data: buf.Bytes(), contentType: contentType}
	s.mu.Unlock()
	return "memory://" + path, nil
}

func (s *MemoryStore) Download(ctx context.Context, path string) ([]byte, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[path]; !ok {
		return ErrNotFound
	}
	delete(s.objects, path)
	s.deleted = append(s.deleted, path)
	return nil
}

func (s *MemoryStore) SignedDownloadURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[path]; !ok {
		return "", ErrNotFound
	}
	return fmt.Sprintf("memory://%s?expires=%d", path, int(expires.Seconds())), nil
}

func (s *MemoryStore) SignedUploadURL(ctx context.Context, path string, expires time.Duration) (SignedUpload, error) {
	_ = ctx
	_ = expires
	return SignedUpload{
		URL:   "memory://upload/" + path,
		Token: uuid.NewString(),
	}, nil
}

// Has reports whether an object exists at path.
func (s *MemoryStore) Has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[path]
	return ok
}

// Deleted returns the paths removed so far, in order.
func (s *MemoryStore) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.deleted))
	copy(out, s.deleted)
	return out
}

// Put seeds an object directly.
func (s *MemoryStore) Put(path string, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = memoryObject{data: data, contentType: contentType}
}
