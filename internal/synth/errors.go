package synth

import (
	"errors"
	"fmt"
)

// Static errors for synthesis operations.
var (
	// ErrVoiceIDRequired is returned when the voice ID is not provided.
	ErrVoiceIDRequired = errors.New("synth: voice ID is required")
	// ErrAPIKeyNotSet is returned when the ELEVENLABS_API_KEY environment variable is not set.
	ErrAPIKeyNotSet = errors.New("synth: ELEVENLABS_API_KEY environment variable is not set")
	// ErrEmptyText is returned when there is nothing to synthesize.
	ErrEmptyText = errors.New("synth: text is empty")
	// ErrEmptyAudio is returned when the engine responds without audio.
	ErrEmptyAudio = errors.New("synth: response contained no audio")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("synth: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("synth: rate limited")
	// ErrRequestFailed is returned when the request fails with any other non-2xx status code.
	ErrRequestFailed = errors.New("synth: request failed")
)

// APIError is a non-2xx response from the synthesis engine.
type APIError struct {
	StatusCode int
	Message    string
	// Code is the engine's status string, when it sends one.
	Code string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("synth: API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("synth: API error %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status code onto the package's sentinel errors.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == 429:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrServerError
	default:
		return ErrRequestFailed
	}
}

// IsRetryable returns true for rate limiting and server errors.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
