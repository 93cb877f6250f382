package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates directory if not exists", func(t *testing.T) {
		tempDir := filepath.Join(t.TempDir(), "work")

		storage, err := NewLocalStorage(tempDir, "")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		if storage.TempDir() != tempDir {
			t.Errorf("TempDir() = %v, want %v", storage.TempDir(), tempDir)
		}

		info, err := os.Stat(tempDir)
		if err != nil {
			t.Fatalf("directory not created: %v", err)
		}
		if !info.IsDir() {
			t.Error("expected directory, got file")
		}
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		storage, err := NewLocalStorage("", "")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		expected := filepath.Join(os.TempDir(), "zenpal")
		if storage.TempDir() != expected {
			t.Errorf("TempDir() = %v, want %v", storage.TempDir(), expected)
		}
	})
}

func TestLocalStorage_SaveAndLoad(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	path, err := storage.SaveTemp(ctx, "med-1", bytes.NewReader([]byte("RIFF....WAVE")))
	if err != nil {
		t.Fatalf("SaveTemp() error = %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "med-1_") {
		t.Errorf("path %s should start with 'med-1_'", path)
	}

	reader, err := storage.LoadTemp(ctx, path)
	if err != nil {
		t.Fatalf("LoadTemp() error = %v", err)
	}
	defer func() { _ = reader.Close() }()

	content, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(content) != "RIFF....WAVE" {
		t.Errorf("got %q", string(content))
	}

	if _, err := storage.LoadTemp(ctx, filepath.Join(storage.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestLocalStorage_ContextCancelled(t *testing.T) {
	storage := setupTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := storage.SaveTemp(ctx, "x", bytes.NewReader(nil)); !errors.Is(err, context.Canceled) {
		t.Errorf("SaveTemp: expected context.Canceled, got %v", err)
	}
	if _, err := storage.LoadTemp(ctx, "/some/path"); !errors.Is(err, context.Canceled) {
		t.Errorf("LoadTemp: expected context.Canceled, got %v", err)
	}
	if err := storage.CleanupTemp(ctx, []string{"/some/path"}); !errors.Is(err, context.Canceled) {
		t.Errorf("CleanupTemp: expected context.Canceled, got %v", err)
	}
	if _, err := storage.FetchAsset(ctx, "intro.wav"); !errors.Is(err, context.Canceled) {
		t.Errorf("FetchAsset: expected context.Canceled, got %v", err)
	}
}

func TestLocalStorage_CleanupTemp(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	var paths []string
	for range 3 {
		path, err := storage.SaveTemp(ctx, "cleanup", bytes.NewReader([]byte("data")))
		if err != nil {
			t.Fatalf("SaveTemp() error = %v", err)
		}
		paths = append(paths, path)
	}
	paths = append(paths, filepath.Join(storage.TempDir(), "never-existed"))

	if err := storage.CleanupTemp(ctx, paths); err != nil {
		t.Fatalf("CleanupTemp() error = %v", err)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("file %s still exists", p)
		}
	}
}

func TestLocalStorage_UploadToS3(t *testing.T) {
	storage := setupTestStorage(t)

	_, err := storage.UploadToS3(context.Background(), "key", "audio/wav", bytes.NewReader([]byte("data")))
	if !errors.Is(err, ErrS3NotConfigured) {
		t.Errorf("expected ErrS3NotConfigured, got %v", err)
	}
}

func TestLocalStorage_FetchAsset(t *testing.T) {
	assets := t.TempDir()
	if err := os.MkdirAll(filepath.Join(assets, "clips"), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(assets, "clips", "intro.wav"), []byte("intro"), 0600); err != nil {
		t.Fatal(err)
	}

	storage, err := NewLocalStorage(t.TempDir(), assets)
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	ctx := context.Background()

	data, err := storage.FetchAsset(ctx, "clips/intro.wav")
	if err != nil {
		t.Fatalf("FetchAsset() error = %v", err)
	}
	if string(data) != "intro" {
		t.Errorf("got %q", data)
	}

	if _, err := storage.FetchAsset(ctx, "clips/outro.wav"); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound, got %v", err)
	}

	for _, bad := range []string{"", "  ", "../secret", "/etc/passwd", "clips/../../x", `clips\intro.wav`} {
		if _, err := storage.FetchAsset(ctx, bad); !errors.Is(err, ErrInvalidAssetName) {
			t.Errorf("FetchAsset(%q): expected ErrInvalidAssetName, got %v", bad, err)
		}
	}
}

func TestLocalStorage_FetchAsset_NoAssetsDir(t *testing.T) {
	storage := setupTestStorage(t)

	_, err := storage.FetchAsset(context.Background(), "intro.wav")
	if !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound, got %v", err)
	}
}

func setupTestStorage(t *testing.T) *LocalStorage {
	t.Helper()

	storage, err := NewLocalStorage(t.TempDir(), "")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return storage
}
