// Package server provides the HTTP API for meditation generation and the
// pacing core. It includes handlers, middleware, routes, and DTOs separated
// from domain types.
package server

import (
	"github.com/maauso/zenpal-audio/internal/alignment"
	"github.com/maauso/zenpal-audio/internal/pacing"
)

// CreateMeditationRequest is the HTTP request body for creating a meditation.
type CreateMeditationRequest struct {
	// DurationSeconds is the target length of the finished audio.
	DurationSeconds float64 `json:"duration_seconds" validate:"required,gt=0,lte=3600"`
	// Profile is "sparse" (guided) or "dense" (reflective). Defaults to the server default.
	Profile string `json:"profile" validate:"omitempty,oneof=sparse dense"`
	// Theme steers the script, e.g. "sleep".
	Theme string `json:"theme" validate:"max=200"`
	// Context is free text about the listener.
	Context string `json:"context" validate:"max=2000"`
	// Legacy paces with inline break markup instead of post-synthesis silence.
	Legacy bool `json:"legacy"`
	// IntroClip and OutroClip name pre-recorded clips; give both or neither.
	IntroClip string `json:"intro_clip" validate:"required_with=OutroClip,max=200"`
	OutroClip string `json:"outro_clip" validate:"required_with=IntroClip,max=200"`
	// PushToS3 publishes the finished audio to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// CreateMeditationResponse is the HTTP response after creating a meditation job.
type CreateMeditationResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// MeditationResponse is the HTTP response for a meditation job.
type MeditationResponse struct {
	ID              string  `json:"id"`
	Status          string  `json:"status"`
	Progress        int     `json:"progress"`
	Error           string  `json:"error,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	Profile         string  `json:"profile"`
	Theme           string  `json:"theme,omitempty"`
	Legacy          bool    `json:"legacy,omitempty"`
	CreatedAt       string  `json:"created_at"`
	CompletedAt     string  `json:"completed_at,omitempty"`

	// Result fields, filled once the pipeline has produced them.
	Script                string  `json:"script,omitempty"`
	WordCount             int     `json:"word_count,omitempty"`
	Strategy              string  `json:"strategy,omitempty"`
	Degraded              bool    `json:"degraded,omitempty"`
	Concatenated          bool    `json:"concatenated,omitempty"`
	SpeechSeconds         float64 `json:"speech_seconds,omitempty"`
	SilenceSeconds        float64 `json:"silence_seconds,omitempty"`
	OutputDurationSeconds float64 `json:"output_duration_seconds,omitempty"`
	// AudioURL is the S3 URL, or the audio endpoint of this API.
	AudioURL string `json:"audio_url,omitempty"`
}

// ListMeditationsResponse is the HTTP response for listing jobs.
type ListMeditationsResponse struct {
	Meditations []MeditationResponse `json:"meditations"`
}

// EstimateRequest asks how many words fit a duration.
type EstimateRequest struct {
	DurationSeconds float64 `json:"duration_seconds" validate:"required,gt=0,lte=3600"`
	Profile         string  `json:"profile" validate:"omitempty,oneof=sparse dense"`
	// Text, if given, is measured with the speech-rate estimate.
	Text string `json:"text" validate:"max=100000"`
}

// EstimateResponse is the pacing estimate for a duration.
type EstimateResponse struct {
	Profile                string  `json:"profile"`
	WordsPerMinute         float64 `json:"words_per_minute"`
	TargetWords            int     `json:"target_words"`
	EstimatedSpeechSeconds float64 `json:"estimated_speech_seconds,omitempty"`
}

// MarkupRequest asks for legacy break markup.
type MarkupRequest struct {
	Text            string  `json:"text" validate:"required,max=100000"`
	DurationSeconds float64 `json:"duration_seconds" validate:"required,gt=0,lte=3600"`
}

// MarkupResponse carries the marked-up script and its diagnostics.
type MarkupResponse struct {
	Markup                 string  `json:"markup"`
	TotalChars             int     `json:"total_chars"`
	TotalWords             int     `json:"total_words"`
	AtomCount              int     `json:"atom_count"`
	EstimatedSpeechSeconds float64 `json:"estimated_speech_seconds"`
	RawSilenceBudget       float64 `json:"raw_silence_budget"`
	FinalSilenceBudget     float64 `json:"final_silence_budget"`
	TotalSilenceAdded      float64 `json:"total_silence_added"`
	EstimatedTotalSeconds  float64 `json:"estimated_total_seconds"`
}

// PaceRequest asks the pacing core to stretch synthesized speech.
type PaceRequest struct {
	AudioBase64   string  `json:"audio_base64" validate:"required,base64"`
	TargetSeconds float64 `json:"target_seconds" validate:"required,gt=0,lte=3600"`
	// Alignment, if present, selects the sentence-boundary strategy.
	Alignment *alignment.CharacterAlignment `json:"alignment"`
}

// PaceResponse is the paced audio.
type PaceResponse struct {
	AudioBase64     string             `json:"audio_base64"`
	Format          string             `json:"format"`
	Strategy        string             `json:"strategy"`
	Degraded        bool               `json:"degraded"`
	DurationSeconds float64            `json:"duration_seconds"`
	Plan            *pacing.PacingPlan `json:"plan,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	// Synth is "ok" or the synthesis provider error, when checked.
	Synth string `json:"synth,omitempty"`
}
