// Package bootstrap provides dependency initialization for the meditation API.
package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/maauso/zenpal-audio/internal/audio"
	"github.com/maauso/zenpal-audio/internal/clipcache"
	"github.com/maauso/zenpal-audio/internal/config"
	"github.com/maauso/zenpal-audio/internal/job"
	"github.com/maauso/zenpal-audio/internal/script"
	"github.com/maauso/zenpal-audio/internal/storage"
	"github.com/maauso/zenpal-audio/internal/synth"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	MeditationService *job.MeditationService
	Synth             synth.Provider

	closers []io.Closer
}

// Close releases the repository and collaborator clients.
func (d *Dependencies) Close() error {
	var errs []error
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	repo, err := initRepository(cfg, logger, deps)
	if err != nil {
		return nil, err
	}

	speech, err := synth.NewElevenLabs(cfg.ElevenLabsVoiceID,
		synth.WithAPIKey(cfg.ElevenLabsAPIKey),
		synth.WithModelID(cfg.ElevenLabsModelID),
		synth.WithOutputFormat(cfg.ElevenLabsOutputFormat),
		synth.WithLogger(logger),
	)
	if err != nil {
		_ = deps.Close()
		return nil, fmt.Errorf("create ElevenLabs client: %w", err)
	}
	deps.Synth = speech
	deps.closers = append(deps.closers, speech)

	scripts := script.WithFallback(initScriptGenerator(cfg, logger), logger)

	svcCfg := job.DefaultServiceConfig()
	svcCfg.MaxConcurrentJobs = cfg.MaxConcurrentJobs
	svcCfg.DefaultProfile = cfg.Profile()
	svcCfg.Pacing.SilenceSafetyBuffer = cfg.SilenceSafetyBuffer

	deps.MeditationService = job.NewMeditationService(job.Dependencies{
		Repo:    repo,
		Scripts: scripts,
		Synth:   speech,
		Storage: store,
		Clips:   clipcache.New(store.FetchAsset, logger),
		Pacer:   audio.NewDefaultPacer(logger),
	}, svcCfg, logger)

	return deps, nil
}

// initScriptGenerator returns the chat client, or nil when no key is set so
// that every job falls back to the demo script.
func initScriptGenerator(cfg *config.Config, logger *slog.Logger) script.Generator {
	if !cfg.ScriptEnabled() {
		logger.Warn("SCRIPT_API_KEY not set, meditations will use the demo script")
		return nil
	}
	client, err := script.NewChatClient(
		script.WithAPIKey(cfg.ScriptAPIKey),
		script.WithBaseURL(cfg.ScriptBaseURL),
		script.WithModel(cfg.ScriptModel),
	)
	if err != nil {
		logger.Warn("script client unavailable, meditations will use the demo script",
			slog.String("error", err.Error()),
		)
		return nil
	}
	logger.Info("script generation configured",
		slog.String("base_url", cfg.ScriptBaseURL),
		slog.String("model", cfg.ScriptModel),
	)
	return client
}

// initRepository opens the SQLite job store when JOB_DB_PATH is set and
// falls back to memory otherwise.
func initRepository(cfg *config.Config, logger *slog.Logger, deps *Dependencies) (job.Repository, error) {
	if cfg.JobDBPath == "" {
		logger.Info("in-memory job repository configured")
		return job.NewMemoryRepository(), nil
	}
	repo, err := job.OpenSQLiteRepository(cfg.JobDBPath)
	if err != nil {
		return nil, fmt.Errorf("open job database: %w", err)
	}
	deps.closers = append(deps.closers, repo)
	logger.Info("SQLite job repository configured",
		slog.String("path", cfg.JobDBPath),
	)
	return repo, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, cfg.AssetsDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir, cfg.AssetsDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
		slog.String("assets_dir", cfg.AssetsDir),
	)
	return localStore, nil
}
