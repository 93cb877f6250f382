package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testS3Config(endpoint string) S3Config {
	return S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}
}

func TestNewS3Storage(t *testing.T) {
	storage, err := NewS3Storage(t.TempDir(), "", testS3Config("http://localhost:4566"))
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	if storage.bucket != "test-bucket" {
		t.Errorf("bucket = %v", storage.bucket)
	}
	if storage.region != "us-east-1" {
		t.Errorf("region = %v", storage.region)
	}
	if storage.assetPrefix != DefaultAssetPrefix {
		t.Errorf("assetPrefix = %v, want %v", storage.assetPrefix, DefaultAssetPrefix)
	}
}

func TestS3Storage_UploadToS3_MockServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT method, got %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/meditations/med-1.wav") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "audio/wav" {
			t.Errorf("Content-Type = %q", ct)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		if string(body) != "wav bytes" {
			t.Errorf("unexpected body: %s", string(body))
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	storage, err := NewS3Storage(t.TempDir(), "", testS3Config(server.URL))
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	url, err := storage.UploadToS3(context.Background(), "meditations/med-1.wav", "audio/wav", bytes.NewReader([]byte("wav bytes")))
	if err != nil {
		t.Fatalf("UploadToS3() error = %v", err)
	}

	expectedURL := "https://test-bucket.s3.us-east-1.amazonaws.com/meditations/med-1.wav"
	if url != expectedURL {
		t.Errorf("url = %v, want %v", url, expectedURL)
	}
}

func TestS3Storage_FetchAsset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET method, got %s", r.Method)
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/assets/intro.wav"):
			w.Header().Set("Content-Type", "audio/wav")
			_, _ = w.Write([]byte("remote intro"))
		default:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
		}
	}))
	defer server.Close()

	assets := t.TempDir()
	if err := os.WriteFile(filepath.Join(assets, "outro.wav"), []byte("local outro"), 0600); err != nil {
		t.Fatal(err)
	}

	storage, err := NewS3Storage(t.TempDir(), assets, testS3Config(server.URL))
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}
	ctx := context.Background()

	t.Run("reads from bucket", func(t *testing.T) {
		data, err := storage.FetchAsset(ctx, "intro.wav")
		if err != nil {
			t.Fatalf("FetchAsset() error = %v", err)
		}
		if string(data) != "remote intro" {
			t.Errorf("got %q", data)
		}
	})

	t.Run("falls back to local assets", func(t *testing.T) {
		data, err := storage.FetchAsset(ctx, "outro.wav")
		if err != nil {
			t.Fatalf("FetchAsset() error = %v", err)
		}
		if string(data) != "local outro" {
			t.Errorf("got %q", data)
		}
	})

	t.Run("missing everywhere", func(t *testing.T) {
		_, err := storage.FetchAsset(ctx, "bell.wav")
		if !errors.Is(err, ErrAssetNotFound) {
			t.Errorf("expected ErrAssetNotFound, got %v", err)
		}
	})

	t.Run("rejects traversal before any request", func(t *testing.T) {
		_, err := storage.FetchAsset(ctx, "../intro.wav")
		if !errors.Is(err, ErrInvalidAssetName) {
			t.Errorf("expected ErrInvalidAssetName, got %v", err)
		}
	})
}
