package job

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/maauso/zenpal-audio/internal/audio"
	"github.com/maauso/zenpal-audio/internal/clipcache"
	"github.com/maauso/zenpal-audio/internal/pacing"
	"github.com/maauso/zenpal-audio/internal/script"
	"github.com/maauso/zenpal-audio/internal/storage"
	"github.com/maauso/zenpal-audio/internal/synth"
)

// StrategyBreakMarkup marks audio paced by inline break tags at synthesis
// time rather than by a waveform transform.
const StrategyBreakMarkup audio.Strategy = "break_markup"

// Service errors.
var (
	// ErrInvalidDuration is returned for non-positive target durations.
	ErrInvalidDuration = errors.New("job: target duration must be positive")
	// ErrIncompleteClips is returned when only one of intro and outro is named.
	ErrIncompleteClips = errors.New("job: intro and outro clips must be given together")
	// ErrAudioNotReady is returned by LoadAudio for jobs that have not completed.
	ErrAudioNotReady = errors.New("job: audio is not ready")
	// ErrJobActive is returned when deleting a job that has not finished.
	ErrJobActive = errors.New("job: job is still active")
	// ErrEmptyScript is returned when script generation produced no speakable text.
	ErrEmptyScript = errors.New("job: script has no speakable text")
)

// ServiceConfig tunes the meditation pipeline.
type ServiceConfig struct {
	// MaxConcurrentJobs bounds how many jobs run the pipeline at once.
	MaxConcurrentJobs int
	// DefaultProfile is used when a request names no profile.
	DefaultProfile pacing.Profile
	// Pacing configures estimation and legacy break markup.
	Pacing pacing.Config
	// Concat configures intro/middle/outro joining.
	Concat audio.ConcatOpts
	// ClipAllowanceSeconds is subtracted from the target when sizing the
	// script for a job with intro and outro clips, because the clips are
	// still being fetched while the script is written.
	ClipAllowanceSeconds float64
}

// DefaultServiceConfig returns the default pipeline configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxConcurrentJobs:    2,
		DefaultProfile:       pacing.ProfileSparse,
		Pacing:               pacing.DefaultConfig(),
		Concat:               audio.DefaultConcatOpts(),
		ClipAllowanceSeconds: 30,
	}
}

// Dependencies are the collaborators of the MeditationService.
type Dependencies struct {
	Repo    Repository
	Scripts script.Generator
	Synth   synth.Provider
	Storage storage.Storage
	// Clips caches intro and outro clips. If nil, a cache over
	// Storage.FetchAsset is created.
	Clips *clipcache.Cache
	// Pacer reshapes synthesized speech. If nil, a default Pacer is used.
	Pacer *audio.Pacer
}

// MeditationService turns a meditation request into finished audio:
// script, synthesis, pacing, optional intro/outro concatenation and storage.
type MeditationService struct {
	repo    Repository
	scripts script.Generator
	synth   synth.Provider
	store   storage.Storage
	clips   *clipcache.Cache
	pacer   *audio.Pacer
	cfg     ServiceConfig
	sem     chan struct{}
	logger  *slog.Logger
}

// NewMeditationService creates a new MeditationService.
// If logger is nil, slog.Default() is used.
func NewMeditationService(deps Dependencies, cfg ServiceConfig, logger *slog.Logger) *MeditationService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 1
	}
	if !cfg.DefaultProfile.IsValid() {
		cfg.DefaultProfile = pacing.ProfileSparse
	}
	if cfg.Pacing.CharsPerSecond <= 0 {
		cfg.Pacing = pacing.DefaultConfig()
	}

	clips := deps.Clips
	if clips == nil && deps.Storage != nil {
		clips = clipcache.New(deps.Storage.FetchAsset, logger)
	}
	pacer := deps.Pacer
	if pacer == nil {
		pacer = audio.NewDefaultPacer(logger)
	}

	return &MeditationService{
		repo:    deps.Repo,
		scripts: deps.Scripts,
		synth:   deps.Synth,
		store:   deps.Storage,
		clips:   clips,
		pacer:   pacer,
		cfg:     cfg,
		sem:     make(chan struct{}, cfg.MaxConcurrentJobs),
		logger:  logger,
	}
}

// CreateJob validates req and persists a new IN_QUEUE job.
func (s *MeditationService) CreateJob(ctx context.Context, req Request) (*Job, error) {
	if req.DurationSeconds <= 0 {
		return nil, ErrInvalidDuration
	}
	if req.Profile == "" {
		req.Profile = s.cfg.DefaultProfile
	}
	if !req.Profile.IsValid() {
		return nil, fmt.Errorf("%w: %q", pacing.ErrUnknownProfile, req.Profile)
	}
	if (req.IntroClip == "") != (req.OutroClip == "") {
		return nil, ErrIncompleteClips
	}

	job := New(req)

	s.logger.Info("creating meditation job",
		slog.String("job_id", job.ID),
		slog.Float64("duration_seconds", req.DurationSeconds),
		slog.String("profile", string(req.Profile)),
		slog.Bool("legacy", req.Legacy),
		slog.Bool("clips", req.HasClips()),
	)

	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return job, nil
}

// Process creates a job for req and runs it to completion.
// A job that fails is returned together with the pipeline error.
func (s *MeditationService) Process(ctx context.Context, req Request) (*Job, error) {
	job, err := s.CreateJob(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.ProcessExistingJob(ctx, job.ID)
}

// ProcessExistingJob runs the pipeline for a stored IN_QUEUE job, waiting
// for a free slot first. The final job state is saved and returned.
func (s *MeditationService) ProcessExistingJob(ctx context.Context, jobID string) (*Job, error) {
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return nil, fmt.Errorf("job: waiting for a slot: %w", ctx.Err())
	}

	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := job.Start(); err != nil {
		return nil, fmt.Errorf("job %s: %w", jobID, err)
	}
	s.save(ctx, job)

	start := time.Now()
	runErr := s.run(ctx, job)
	if runErr != nil {
		s.logger.Error("meditation job failed",
			slog.String("job_id", job.ID),
			slog.String("error", runErr.Error()),
		)
		if errors.Is(runErr, context.Canceled) {
			_ = job.Cancel()
		} else {
			_ = job.Fail(runErr.Error())
		}
		s.save(context.WithoutCancel(ctx), job)
		return job, runErr
	}

	if err := job.Complete(); err != nil {
		return job, fmt.Errorf("job %s: %w", jobID, err)
	}
	s.save(ctx, job)

	s.logger.Info("meditation job completed",
		slog.String("job_id", job.ID),
		slog.String("strategy", string(job.Result.Strategy)),
		slog.Float64("duration_seconds", job.Result.DurationSeconds),
		slog.Duration("elapsed", time.Since(start)),
	)
	return job, nil
}

// GetJob retrieves a job by ID.
func (s *MeditationService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns all jobs, oldest first.
func (s *MeditationService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// DeleteJob removes a finished job and its local audio.
// Returns ErrJobActive for jobs that are queued or running.
func (s *MeditationService) DeleteJob(ctx context.Context, id string) error {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !job.IsTerminal() {
		return ErrJobActive
	}
	if job.Result.OutputPath != "" {
		if err := s.store.CleanupTemp(ctx, []string{job.Result.OutputPath}); err != nil {
			s.logger.Warn("failed to remove job audio",
				slog.String("job_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return s.repo.Delete(ctx, id)
}

// LoadAudio opens the finished audio of a completed job.
// The caller is responsible for closing the returned ReadCloser.
func (s *MeditationService) LoadAudio(ctx context.Context, id string) (io.ReadCloser, *Job, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if job.Status != StatusCompleted || job.Result.OutputPath == "" {
		return nil, job, ErrAudioNotReady
	}
	rc, err := s.store.LoadTemp(ctx, job.Result.OutputPath)
	if err != nil {
		return nil, job, err
	}
	return rc, job, nil
}

// Pace runs the strategy dispatch directly on already synthesized speech.
func (s *MeditationService) Pace(in audio.Input, targetSeconds float64) audio.Output {
	return s.pacer.Pace(in, targetSeconds)
}

// EstimateWords returns the script length for a target duration.
func (s *MeditationService) EstimateWords(durationSeconds float64, profile pacing.Profile) int {
	if profile == "" {
		profile = s.cfg.DefaultProfile
	}
	return pacing.TargetWordCount(durationSeconds, profile)
}

// EstimateSpeechSeconds estimates how long text takes to speak.
func (s *MeditationService) EstimateSpeechSeconds(text string) float64 {
	return s.cfg.Pacing.EstimateSpeechDuration(text)
}

// DefaultProfile returns the profile used when a request names none.
func (s *MeditationService) DefaultProfile() pacing.Profile {
	return s.cfg.DefaultProfile
}

// Markup renders the legacy break-markup form of text for a target duration.
func (s *MeditationService) Markup(text string, targetSeconds float64) pacing.MarkupResult {
	return s.cfg.Pacing.Markup(text, targetSeconds)
}

// clip is a fetched and decoded pre-recorded clip.
type clip struct {
	data     []byte
	duration float64
}

type clipResult struct {
	clip *clip
	err  error
}

func (s *MeditationService) prefetch(ctx context.Context, name string) <-chan clipResult {
	ch := make(chan clipResult, 1)
	go func() {
		data, err := s.clips.GetOrLoad(ctx, name)
		if err != nil {
			ch <- clipResult{err: err}
			return
		}
		w, _, err := audio.Decode(data)
		if err != nil {
			ch <- clipResult{err: fmt.Errorf("decode clip %s: %w", name, err)}
			return
		}
		ch <- clipResult{clip: &clip{data: data, duration: w.Duration()}}
	}()
	return ch
}

// awaitClips waits for both prefetches. Any failure drops both clips and
// the job continues with the middle section alone.
func (s *MeditationService) awaitClips(ctx context.Context, log *slog.Logger, introCh, outroCh <-chan clipResult) (*clip, *clip, error) {
	if introCh == nil {
		return nil, nil, nil
	}
	var results [2]clipResult
	for i, ch := range []<-chan clipResult{introCh, outroCh} {
		select {
		case results[i] = <-ch:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	for _, r := range results {
		if r.err != nil {
			log.Warn("intro/outro unavailable, continuing without clips",
				slog.String("error", r.err.Error()),
			)
			return nil, nil, nil
		}
	}
	return results[0].clip, results[1].clip, nil
}

// run is the pipeline body. It mutates job and saves progress as it goes.
func (s *MeditationService) run(ctx context.Context, job *Job) error {
	req := job.Request
	log := s.logger.With(slog.String("job_id", job.ID))

	var introCh, outroCh <-chan clipResult
	scriptSeconds := req.DurationSeconds
	if req.HasClips() && s.clips != nil {
		introCh = s.prefetch(ctx, req.IntroClip)
		outroCh = s.prefetch(ctx, req.OutroClip)
		scriptSeconds = max(req.DurationSeconds-s.cfg.ClipAllowanceSeconds, req.DurationSeconds/2)
	}

	words := pacing.TargetWordCount(scriptSeconds, req.Profile)
	log.Info("generating script", slog.Int("target_words", words))

	text, err := s.scripts.Generate(ctx, script.Request{
		TargetWords: words,
		Theme:       req.Theme,
		Context:     req.Context,
		Profile:     req.Profile,
	})
	if err != nil {
		return fmt.Errorf("generate script: %w", err)
	}
	text = pacing.StripBreakTags(text)
	wordCount := pacing.CountWords(text)
	if wordCount == 0 {
		return ErrEmptyScript
	}
	job.UpdateResult(func(r *Result) {
		r.Script = text
		r.WordCount = wordCount
	})
	job.UpdateProgress(20)
	s.save(ctx, job)

	intro, outro, err := s.awaitClips(ctx, log, introCh, outroCh)
	if err != nil {
		return fmt.Errorf("fetch clips: %w", err)
	}
	middleTarget := req.DurationSeconds
	if intro != nil {
		middleTarget = req.DurationSeconds - intro.duration - outro.duration - s.cfg.Concat.MinGapTotal
	}

	synthReq := synth.Request{Text: text, WithAlignment: true}
	if req.Legacy {
		markup := s.cfg.Pacing.Markup(text, middleTarget)
		synthReq = synth.Request{Text: markup.Markup}
		log.Info("using break markup",
			slog.Float64("silence_added", markup.TotalSilenceAdded),
			slog.Int("atoms", markup.AtomCount),
		)
	}

	speech, err := s.synth.Synthesize(ctx, synthReq)
	if err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}
	job.UpdateProgress(50)
	s.save(ctx, job)

	var (
		middle   audio.Output
		fallback func() audio.Output
	)
	if req.Legacy {
		middle = legacyOutput(speech)
		fallback = func() audio.Output { return middle }
	} else {
		in := synth.PacerInput(speech)
		middle = s.pacer.Pace(in, middleTarget)
		fallback = func() audio.Output { return s.pacer.Pace(in, req.DurationSeconds) }
	}
	if middle.Degraded {
		log.Warn("pacing degraded, keeping synthesized audio as is")
	}

	final, concatenated := middle, false
	if intro != nil {
		final, concatenated = s.concatenate(log, intro, outro, middle, req.DurationSeconds)
		if !concatenated {
			middle = fallback()
			final = middle
		}
	}

	job.UpdateResult(func(r *Result) {
		r.Strategy = middle.Strategy
		r.Degraded = middle.Degraded
		r.Concatenated = concatenated
		r.Format = final.Format
		r.DurationSeconds = final.Duration
		if middle.Plan != nil {
			r.SpeechSeconds = middle.Plan.SpeechDuration
			r.SilenceSeconds = middle.Plan.TotalSilence
		}
	})
	job.UpdateProgress(85)
	s.save(ctx, job)

	return s.persist(ctx, job, final)
}

// concatenate joins intro, middle and outro. It reports false when the
// clips cannot be joined, e.g. because their sample rates differ.
func (s *MeditationService) concatenate(log *slog.Logger, intro, outro *clip, middle audio.Output, target float64) (audio.Output, bool) {
	out, err := audio.Concatenate([][]byte{intro.data, middle.Data, outro.data}, target, s.cfg.Concat)
	if err != nil {
		log.Warn("concatenation failed, using the middle section alone",
			slog.String("error", err.Error()),
			slog.Bool("sample_rate_mismatch", errors.Is(err, audio.ErrSampleRateMismatch)),
		)
		return audio.Output{}, false
	}
	return out, true
}

// legacyOutput wraps markup-paced speech, which needs no waveform transform.
func legacyOutput(speech synth.Speech) audio.Output {
	out := audio.Output{
		Data:     speech.AudioBytes(),
		Format:   speech.AudioFormat(),
		Strategy: StrategyBreakMarkup,
	}
	w, format, err := audio.Decode(out.Data)
	if err != nil {
		out.Degraded = true
		return out
	}
	out.Format = format
	out.Duration = w.Duration()
	// Break tags are rendered inside the speech, so the whole clip counts
	// as speech here.
	out.Plan = &pacing.PacingPlan{
		TargetDuration: out.Duration,
		SpeechDuration: out.Duration,
	}
	return out
}

// persist writes the finished audio and, if asked, publishes it to S3.
func (s *MeditationService) persist(ctx context.Context, job *Job, out audio.Output) error {
	path, err := s.store.SaveTemp(ctx, job.ID, bytes.NewReader(out.Data))
	if err != nil {
		return fmt.Errorf("save audio: %w", err)
	}
	job.UpdateResult(func(r *Result) { r.OutputPath = path })

	if job.Request.PushToS3 {
		key := "meditations/" + job.ID + out.Format.Extension()
		url, err := s.store.UploadToS3(ctx, key, out.Format.ContentType(), bytes.NewReader(out.Data))
		if err != nil {
			return fmt.Errorf("upload audio: %w", err)
		}
		job.UpdateResult(func(r *Result) { r.AudioURL = url })
	}
	return nil
}

// save persists job, logging rather than failing on repository errors so a
// transient store problem does not abort audio that is already rendered.
func (s *MeditationService) save(ctx context.Context, job *Job) {
	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}
