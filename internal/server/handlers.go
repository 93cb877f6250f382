package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/zenpal-audio/internal/alignment"
	"github.com/maauso/zenpal-audio/internal/audio"
	"github.com/maauso/zenpal-audio/internal/job"
	"github.com/maauso/zenpal-audio/internal/pacing"
)

// maxPaceBody bounds POST /audio/pace bodies; base64 audio is large.
const maxPaceBody = 64 << 20

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *job.MeditationService
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
	healthCheck        func(ctx context.Context) error
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreateMeditation only creates the job.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// WithHealthCheck sets the dependency probe run by GET /health?deep=true.
func WithHealthCheck(check func(ctx context.Context) error) HandlerOption {
	return func(h *Handlers) {
		h.healthCheck = check
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.MeditationService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	deep, _ := strconv.ParseBool(r.URL.Query().Get("deep"))
	if !deep || h.healthCheck == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.healthCheck(ctx); err != nil {
		h.logger.Warn("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Synth: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Synth: "ok"})
}

// CreateMeditation handles POST /meditations requests.
func (h *Handlers) CreateMeditation(w http.ResponseWriter, r *http.Request) {
	var req CreateMeditationRequest
	if !h.decode(w, r, &req) {
		return
	}

	in := job.Request{
		DurationSeconds: req.DurationSeconds,
		Profile:         pacing.Profile(req.Profile),
		Theme:           req.Theme,
		Context:         req.Context,
		Legacy:          req.Legacy,
		IntroClip:       req.IntroClip,
		OutroClip:       req.OutroClip,
		PushToS3:        req.PushToS3,
	}

	created, err := h.service.CreateJob(r.Context(), in)
	if err != nil {
		if isRequestError(err) {
			writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
			return
		}
		h.logger.Error("failed to create job", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	// The job outlives the request, so processing gets a detached context.
	if h.enableAsyncProcess {
		go func(ctx context.Context, jobID string) {
			if _, err := h.service.ProcessExistingJob(ctx, jobID); err != nil {
				h.logger.Error("background processing failed",
					slog.String("job_id", jobID),
					slog.String("error", err.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), created.ID)
	}

	writeJSON(w, http.StatusAccepted, CreateMeditationResponse{
		ID:     created.ID,
		Status: string(created.Status),
	})
}

// ListMeditations handles GET /meditations requests.
func (h *Handlers) ListMeditations(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_FETCH_FAILED")
		return
	}

	resp := ListMeditationsResponse{Meditations: make([]MeditationResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Meditations = append(resp.Meditations, toMeditationResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetMeditation handles GET /meditations/{id} requests.
func (h *Handlers) GetMeditation(w http.ResponseWriter, r *http.Request) {
	found, ok := h.findJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toMeditationResponse(found))
}

// GetMeditationAudio handles GET /meditations/{id}/audio requests. Audio
// published to S3 is served by redirect.
func (h *Handlers) GetMeditationAudio(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	rc, found, err := h.service.LoadAudio(r.Context(), jobID)
	switch {
	case errors.Is(err, job.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
		return
	case errors.Is(err, job.ErrAudioNotReady):
		writeError(w, http.StatusConflict, "audio is not ready", "AUDIO_NOT_READY")
		return
	case found != nil && found.Result.AudioURL != "":
		if rc != nil {
			_ = rc.Close()
		}
		http.Redirect(w, r, found.Result.AudioURL, http.StatusFound)
		return
	case err != nil:
		h.logger.Error("failed to load audio",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load audio", "AUDIO_FETCH_FAILED")
		return
	}
	defer func() { _ = rc.Close() }()

	format := found.Result.Format
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `inline; filename="`+found.ID+format.Extension()+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("failed to stream audio",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

// DeleteMeditation handles DELETE /meditations/{id} requests.
func (h *Handlers) DeleteMeditation(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	err := h.service.DeleteJob(r.Context(), jobID)
	switch {
	case errors.Is(err, job.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
	case errors.Is(err, job.ErrJobActive):
		writeError(w, http.StatusConflict, "job is still running", "JOB_ACTIVE")
	case err != nil:
		h.logger.Error("failed to delete job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete job", "JOB_DELETE_FAILED")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// EstimatePacing handles POST /pacing/estimate requests.
func (h *Handlers) EstimatePacing(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if !h.decode(w, r, &req) {
		return
	}

	profile := pacing.Profile(req.Profile)
	if profile == "" {
		profile = h.service.DefaultProfile()
	}
	resp := EstimateResponse{
		Profile:        string(profile),
		WordsPerMinute: profile.WordsPerMinute(),
		TargetWords:    h.service.EstimateWords(req.DurationSeconds, profile),
	}
	if req.Text != "" {
		resp.EstimatedSpeechSeconds = h.service.EstimateSpeechSeconds(req.Text)
	}
	writeJSON(w, http.StatusOK, resp)
}

// MarkupScript handles POST /pacing/markup requests.
func (h *Handlers) MarkupScript(w http.ResponseWriter, r *http.Request) {
	var req MarkupRequest
	if !h.decode(w, r, &req) {
		return
	}

	res := h.service.Markup(req.Text, req.DurationSeconds)
	writeJSON(w, http.StatusOK, MarkupResponse{
		Markup:                 res.Markup,
		TotalChars:             res.TotalChars,
		TotalWords:             res.TotalWords,
		AtomCount:              res.AtomCount,
		EstimatedSpeechSeconds: res.EstimatedSpeechSeconds,
		RawSilenceBudget:       res.RawSilenceBudget,
		FinalSilenceBudget:     res.FinalSilenceBudget,
		TotalSilenceAdded:      res.TotalSilenceAdded,
		EstimatedTotalSeconds:  res.EstimatedTotalSeconds,
	})
}

// PaceAudio handles POST /audio/pace requests.
func (h *Handlers) PaceAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPaceBody)

	var req PaceRequest
	if !h.decode(w, r, &req) {
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio_base64 is not valid base64", "VALIDATION_ERROR")
		return
	}

	var in audio.Input = audio.Unaligned{Data: data}
	if req.Alignment != nil {
		if err := req.Alignment.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
			return
		}
		in = audio.Aligned{Data: data, Words: alignment.Normalize(*req.Alignment)}
	}

	out := h.service.Pace(in, req.TargetSeconds)
	if out.Degraded {
		h.logger.Warn("pace request returned original audio", slog.Int("bytes", len(data)))
	}

	writeJSON(w, http.StatusOK, PaceResponse{
		AudioBase64:     base64.StdEncoding.EncodeToString(out.Data),
		Format:          string(out.Format),
		Strategy:        string(out.Strategy),
		Degraded:        out.Degraded,
		DurationSeconds: out.Duration,
		Plan:            out.Plan,
	})
}

// findJob resolves the {id} path value, writing the error response itself
// when the job cannot be returned.
func (h *Handlers) findJob(w http.ResponseWriter, r *http.Request) (*job.Job, bool) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return nil, false
	}

	found, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return nil, false
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return nil, false
	}
	return found, true
}

// decode reads a JSON body into dst and validates it, writing a 400 on failure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "BODY_TOO_LARGE")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

func isRequestError(err error) bool {
	return errors.Is(err, job.ErrInvalidDuration) ||
		errors.Is(err, job.ErrIncompleteClips) ||
		errors.Is(err, pacing.ErrUnknownProfile)
}

func toMeditationResponse(j *job.Job) MeditationResponse {
	resp := MeditationResponse{
		ID:              j.ID,
		Status:          string(j.Status),
		Progress:        j.Progress,
		Error:           j.Error,
		DurationSeconds: j.Request.DurationSeconds,
		Profile:         string(j.Request.Profile),
		Theme:           j.Request.Theme,
		Legacy:          j.Request.Legacy,
		CreatedAt:       j.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !j.CompletedAt.IsZero() {
		resp.CompletedAt = j.CompletedAt.UTC().Format(time.RFC3339)
	}

	res := j.Result
	resp.Script = res.Script
	resp.WordCount = res.WordCount
	resp.Strategy = string(res.Strategy)
	resp.Degraded = res.Degraded
	resp.Concatenated = res.Concatenated
	resp.SpeechSeconds = res.SpeechSeconds
	resp.SilenceSeconds = res.SilenceSeconds
	resp.OutputDurationSeconds = res.DurationSeconds

	if j.Status == job.StatusCompleted {
		resp.AudioURL = res.AudioURL
		if resp.AudioURL == "" {
			resp.AudioURL = "/meditations/" + j.ID + "/audio"
		}
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
