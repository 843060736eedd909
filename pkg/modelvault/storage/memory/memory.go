package memory

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avatarkit/modelvault/pkg/modelvault"
)

const defaultPublicBaseURL = "memory://models"

// Backend is an in-memory implementation of the modelvault.BlobStore
// interface. Intended for tests and single-process development setups.
type Backend struct {
	mu            sync.RWMutex
	objects       map[string][]byte
	updatedAt     map[string]time.Time
	publicBaseURL string
}

// Config options for the in-memory backend
type Config struct {
	PublicBaseURL string // Base for resolved public URLs
}

// New creates a new in-memory storage backend with default configuration
func New() modelvault.BlobStore {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a new in-memory storage backend
func NewWithConfig(config Config) modelvault.BlobStore {
	base := strings.TrimSuffix(config.PublicBaseURL, "/")
	if base == "" {
		base = defaultPublicBaseURL
	}
	return &Backend{
		objects:       make(map[string][]byte),
		updatedAt:     make(map[string]time.Time),
		publicBaseURL: base,
	}
}

// Upload stores content at objectKey. Non-upsert: an existing object at the
// same key is never overwritten.
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; exists {
		return modelvault.ErrBlobExists
	}

	b.objects[objectKey] = data
	b.updatedAt[objectKey] = time.Now().UTC()
	return nil
}

// Download returns the content stored at objectKey
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, modelvault.ErrBlobNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Remove deletes the object at objectKey
func (b *Backend) Remove(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return modelvault.ErrBlobNotFound
	}

	delete(b.objects, objectKey)
	delete(b.updatedAt, objectKey)
	return nil
}

// List returns the keys of all objects under the given prefix, sorted
func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var keys []string
	for key := range b.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// GetObjectMeta retrieves metadata for an object in memory
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*modelvault.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, modelvault.ErrBlobNotFound
	}

	return &modelvault.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(data)),
		ContentType: http.DetectContentType(data),
		UpdatedAt:   b.updatedAt[objectKey],
	}, nil
}

// ResolvePublicURL returns the public address for objectKey. Deterministic;
// does not check that the object exists.
func (b *Backend) ResolvePublicURL(objectKey string) string {
	return b.publicBaseURL + "/" + objectKey
}
