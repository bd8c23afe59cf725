// Package media processes uploaded images and stores the results.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/inkpress/inkpress/internal/config"
)

// Defaults of the local backend.
const (
	DefaultDir       = "uploads"
	DefaultPublicURL = "/uploads"
)

// ErrInvalidKey is returned for object keys that would escape the storage root.
var ErrInvalidKey = errors.New("invalid object key")

// Storage keeps the encoded files of an upload.
type Storage interface {
	// Put stores r under key and returns the public URL of the object.
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// NewStorage creates the Storage selected by Upload.Backend.
func NewStorage(ctx context.Context, cfg config.Upload) (Storage, error) {
	switch cfg.Backend {
	case config.UploadBackendS3:
		return NewS3Storage(ctx, cfg.S3, cfg.PublicURL)
	case config.UploadBackendLocal, "":
		return NewLocalStorage(cfg.Dir, cfg.PublicURL)
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownUploadBackend, cfg.Backend)
	}
}

func checkKey(key string) error {
	if key == "" || !filepath.IsLocal(filepath.FromSlash(key)) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

// LocalStorage writes objects below a directory which the web server exposes at publicURL.
type LocalStorage struct {
	dir       string
	publicURL string
}

// NewLocalStorage creates the directory if needed and returns a LocalStorage for it.
func NewLocalStorage(dir, publicURL string) (*LocalStorage, error) {
	if dir == "" {
		dir = DefaultDir
	}

	if publicURL == "" {
		publicURL = DefaultPublicURL
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &LocalStorage{dir: dir, publicURL: publicURL}, nil
}

// Dir returns the storage root.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Put implements Storage.
func (s *LocalStorage) Put(_ context.Context, key, _ string, r io.Reader, _ int64) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}

	target := filepath.Join(s.dir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(target)

		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if err = f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return joinURL(s.publicURL, key), nil
}

// Delete implements Storage.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}
