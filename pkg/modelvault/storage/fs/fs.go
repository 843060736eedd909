package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/avatarkit/modelvault/pkg/modelvault"
)

// Backend is a filesystem implementation of the modelvault.BlobStore interface
type Backend struct {
	baseDir       string
	publicBaseURL string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir       string // Base directory for storing files
	PublicBaseURL string // Base for resolved public URLs (e.g. the static-file route serving BaseDir)
}

// New creates a new filesystem storage backend
func New(config Config) (modelvault.BlobStore, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{
		baseDir:       config.BaseDir,
		publicBaseURL: strings.TrimSuffix(config.PublicBaseURL, "/"),
	}, nil
}

// Upload stores content at objectKey. The file is created with O_EXCL so an
// existing object is never overwritten.
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	filePath := filepath.Join(b.baseDir, objectKey)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return modelvault.ErrBlobExists
		}
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// Download returns the content stored at objectKey
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	file, err := os.Open(filepath.Join(b.baseDir, objectKey))
	if os.IsNotExist(err) {
		return nil, modelvault.ErrBlobNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Remove deletes the object at objectKey
func (b *Backend) Remove(ctx context.Context, objectKey string) error {
	filePath := filepath.Join(b.baseDir, objectKey)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return modelvault.ErrBlobNotFound
	}

	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	b.cleanupEmptyDirectories(filepath.Dir(filePath))

	return nil
}

// List returns the keys of all objects under the given prefix
func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(b.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.baseDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return keys, nil
}

// GetObjectMeta retrieves metadata for an object in the filesystem
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*modelvault.ObjectMeta, error) {
	filePath := filepath.Join(b.baseDir, objectKey)

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, modelvault.ErrBlobNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	// Detect content type from the first 512 bytes
	contentType := "application/octet-stream"
	if file, err := os.Open(filePath); err == nil {
		defer file.Close()
		buffer := make([]byte, 512)
		if n, err := file.Read(buffer); err == nil {
			contentType = http.DetectContentType(buffer[:n])
		}
	}

	return &modelvault.ObjectMeta{
		Key:         objectKey,
		Size:        info.Size(),
		ContentType: contentType,
		UpdatedAt:   info.ModTime(),
	}, nil
}

// ResolvePublicURL returns the public address for objectKey. Deterministic;
// does not check that the object exists.
func (b *Backend) ResolvePublicURL(objectKey string) string {
	if b.publicBaseURL == "" {
		return "file://" + filepath.ToSlash(filepath.Join(b.baseDir, objectKey))
	}
	return b.publicBaseURL + "/" + objectKey
}

// cleanupEmptyDirectories recursively removes empty directories up to baseDir
func (b *Backend) cleanupEmptyDirectories(dir string) {
	if dir == b.baseDir {
		return
	}

	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			b.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}
