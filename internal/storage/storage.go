// Package storage keeps the blobs a meditation job touches: rendered audio
// in a working directory, pre-recorded clips in an assets location, and
// optional publication of finished audio to S3.
package storage

import (
	"context"
	"errors"
	"io"
)

// Static errors for storage operations.
var (
	// ErrS3NotConfigured is returned when S3 operations are attempted
	// without proper configuration.
	ErrS3NotConfigured = errors.New("storage: S3 is not configured")
	// ErrAssetNotFound is returned when a named clip does not exist.
	ErrAssetNotFound = errors.New("storage: asset not found")
	// ErrInvalidAssetName is returned for empty names or names that would
	// escape the assets location.
	ErrInvalidAssetName = errors.New("storage: invalid asset name")
)

// Storage is the persistent-store port of the meditation pipeline.
type Storage interface {
	// SaveTemp writes data to a new file in the working directory and
	// returns its path. name is used as a filename prefix.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// LoadTemp opens a file previously written by SaveTemp.
	// The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the given files, continuing past failures.
	CleanupTemp(ctx context.Context, paths []string) error

	// UploadToS3 publishes data under key and returns its URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key, contentType string, data io.Reader) (url string, err error)

	// FetchAsset returns the bytes of a pre-recorded clip such as an intro
	// or outro. Returns ErrAssetNotFound when no such clip exists.
	FetchAsset(ctx context.Context, name string) ([]byte, error)
}
