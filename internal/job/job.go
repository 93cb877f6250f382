// Package job provides the meditation Job aggregate, its repositories and
// the MeditationService that runs the generation pipeline.
package job

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/maauso/zenpal-audio/internal/audio"
	"github.com/maauso/zenpal-audio/internal/job/id"
	"github.com/maauso/zenpal-audio/internal/pacing"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job is waiting for a processing slot.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the pipeline is working on the job.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the audio is ready.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the pipeline gave up on the job.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the job was cancelled before it finished.
	StatusCancelled Status = "CANCELLED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("job: invalid state transition")

var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusCancelled},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

func canTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Request describes the meditation a caller asked for.
type Request struct {
	// DurationSeconds is the target length of the finished audio.
	DurationSeconds float64 `json:"duration_seconds"`
	// Profile is the narration density used to size the script.
	Profile pacing.Profile `json:"profile"`
	// Theme and Context steer script generation.
	Theme   string `json:"theme,omitempty"`
	Context string `json:"context,omitempty"`
	// Legacy selects the break-markup path instead of post-synthesis pacing.
	Legacy bool `json:"legacy,omitempty"`
	// IntroClip and OutroClip name pre-recorded clips to wrap the speech with.
	IntroClip string `json:"intro_clip,omitempty"`
	OutroClip string `json:"outro_clip,omitempty"`
	// PushToS3 publishes the finished audio to S3.
	PushToS3 bool `json:"push_to_s3,omitempty"`
}

// HasClips reports whether both an intro and an outro were requested.
func (r Request) HasClips() bool {
	return r.IntroClip != "" && r.OutroClip != ""
}

// Result describes what the pipeline produced.
type Result struct {
	Script          string         `json:"script,omitempty"`
	WordCount       int            `json:"word_count"`
	Strategy        audio.Strategy `json:"strategy,omitempty"`
	Degraded        bool           `json:"degraded,omitempty"`
	Concatenated    bool           `json:"concatenated,omitempty"`
	Format          audio.Format   `json:"format,omitempty"`
	SpeechSeconds   float64        `json:"speech_seconds"`
	SilenceSeconds  float64        `json:"silence_seconds"`
	DurationSeconds float64        `json:"duration_seconds"`
	OutputPath      string         `json:"output_path,omitempty"`
	AudioURL        string         `json:"audio_url,omitempty"`
}

// Job is the meditation generation aggregate.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Status is the current job state.
	Status Status
	// Progress is the percentage of completion (0-100).
	Progress int
	// Error contains the failure reason if the job failed.
	Error string
	// Request is what was asked for; it does not change after creation.
	Request Request
	// Result is filled in as the pipeline advances.
	Result Result

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// New creates a new Job with a generated ID and initial IN_QUEUE status.
func New(req Request) *Job {
	return NewWithID(id.Generate(), req)
}

// NewWithID creates a new IN_QUEUE Job with the given ID.
func NewWithID(jobID string, req Request) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Status:    StatusInQueue,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted:
		j.CompletedAt = j.UpdatedAt
		j.Progress = 100
	case StatusFailed, StatusCancelled:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED.
func (j *Job) Complete() error {
	return j.TransitionTo(StatusCompleted)
}

// Fail records errMsg and transitions the job to FAILED.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusFailed)
}

// Cancel transitions the job to CANCELLED.
func (j *Job) Cancel() error {
	return j.TransitionTo(StatusCancelled)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// UpdateProgress sets the progress percentage, clamped to 0-100.
func (j *Job) UpdateProgress(progress int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress = min(max(progress, 0), 100)
	j.UpdatedAt = time.Now()
}

// UpdateResult applies fn to the job's Result under the job lock.
func (j *Job) UpdateResult(fn func(*Result)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(&j.Result)
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(validTransitions[j.Status]) == 0
}

// Clone creates a copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:          j.ID,
		Status:      j.Status,
		Progress:    j.Progress,
		Error:       j.Error,
		Request:     j.Request,
		Result:      j.Result,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}
