package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStorage implements Storage on local disk. Rendered audio goes to a
// working directory; clips are read from an assets directory.
type LocalStorage struct {
	tempDir   string
	assetsDir string
}

var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates a new LocalStorage instance.
// If tempDir is empty, a "zenpal" directory under os.TempDir() is used.
// The working directory is created if it doesn't exist. assetsDir may be
// empty, in which case every FetchAsset returns ErrAssetNotFound.
func NewLocalStorage(tempDir, assetsDir string) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "zenpal")
	}

	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("storage: create temp directory: %w", err)
	}

	return &LocalStorage{tempDir: tempDir, assetsDir: assetsDir}, nil
}

// TempDir returns the working directory path.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

// AssetsDir returns the assets directory path.
func (s *LocalStorage) AssetsDir() string {
	return s.assetsDir
}

// SaveTemp saves data to a new file and returns its path.
// The name is used as a base for the filename with a unique suffix.
func (s *LocalStorage) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("storage: context cancelled: %w", err)
	}

	f, err := os.CreateTemp(s.tempDir, name+"_*")
	if err != nil {
		return "", fmt.Errorf("storage: create temp file: %w", err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("storage: write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("storage: close temp file: %w", err)
	}

	return fileName, nil
}

// LoadTemp opens a file and returns a reader.
func (s *LocalStorage) LoadTemp(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("storage: context cancelled: %w", err)
	}

	f, err := os.Open(path) // #nosec G304 - path comes from a stored job record
	if err != nil {
		return nil, fmt.Errorf("storage: open temp file: %w", err)
	}

	return f, nil
}

// CleanupTemp removes the given files, returning the first error
// encountered. Missing files are not an error.
func (s *LocalStorage) CleanupTemp(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("storage: context cancelled: %w", err)
		}

		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) && firstErr == nil {
			firstErr = fmt.Errorf("storage: remove temp file %s: %w", p, err)
		}
	}
	return firstErr
}

// UploadToS3 is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) UploadToS3(context.Context, string, string, io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}

// FetchAsset reads a clip from the assets directory.
func (s *LocalStorage) FetchAsset(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("storage: context cancelled: %w", err)
	}
	clean, err := cleanAssetName(name)
	if err != nil {
		return nil, err
	}
	if s.assetsDir == "" {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
	}

	data, err := os.ReadFile(filepath.Join(s.assetsDir, filepath.FromSlash(clean))) // #nosec G304 - name is cleaned above
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read asset %s: %w", name, err)
	}
	return data, nil
}

// cleanAssetName normalizes a slash-separated asset name and rejects names
// that are empty, absolute, or climb out of the assets root.
func cleanAssetName(name string) (string, error) {
	if strings.TrimSpace(name) == "" || strings.Contains(name, `\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	clean := path.Clean(name)
	if path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return clean, nil
}
