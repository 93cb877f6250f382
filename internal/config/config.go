// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/maauso/zenpal-audio/internal/pacing"
)

// Static errors for configuration validation.
var (
	// ErrElevenLabsAPIKeyRequired is returned when ELEVENLABS_API_KEY is not set.
	ErrElevenLabsAPIKeyRequired = errors.New("config: ELEVENLABS_API_KEY is required")
	// ErrElevenLabsVoiceIDRequired is returned when ELEVENLABS_VOICE_ID is not set.
	ErrElevenLabsVoiceIDRequired = errors.New("config: ELEVENLABS_VOICE_ID is required")
	// ErrInvalidProfile is returned when DEFAULT_PROFILE is not a known profile.
	ErrInvalidProfile = errors.New("config: DEFAULT_PROFILE must be sparse or dense")
	// ErrInvalidSafetyBuffer is returned when SILENCE_SAFETY_BUFFER is below 1.
	ErrInvalidSafetyBuffer = errors.New("config: SILENCE_SAFETY_BUFFER must be >= 1")
	// ErrInvalidConcurrency is returned when MAX_CONCURRENT_JOBS is below 1.
	ErrInvalidConcurrency = errors.New("config: MAX_CONCURRENT_JOBS must be >= 1")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Speech synthesis
	ElevenLabsAPIKey       string `env:"ELEVENLABS_API_KEY, required" json:"-"` // Masked in JSON
	ElevenLabsVoiceID      string `env:"ELEVENLABS_VOICE_ID, required" json:"elevenlabs_voice_id"`
	ElevenLabsModelID      string `env:"ELEVENLABS_MODEL_ID, default=eleven_multilingual_v2" json:"elevenlabs_model_id"`
	ElevenLabsOutputFormat string `env:"ELEVENLABS_OUTPUT_FORMAT, default=mp3_44100_128" json:"elevenlabs_output_format"`

	// Script generation. Without a key every job uses the demo script.
	ScriptAPIKey  string `env:"SCRIPT_API_KEY" json:"-"` // Masked in JSON
	ScriptBaseURL string `env:"SCRIPT_BASE_URL, default=https://openrouter.ai/api/v1" json:"script_base_url"`
	ScriptModel   string `env:"SCRIPT_MODEL, default=openai/gpt-4o-mini" json:"script_model"`

	// Storage settings
	TempDir   string `env:"TEMP_DIR, default=/tmp/zenpal" json:"temp_dir"`
	AssetsDir string `env:"ASSETS_DIR, default=./assets" json:"assets_dir"`
	JobDBPath string `env:"JOB_DB_PATH" json:"job_db_path,omitempty"` // Empty keeps jobs in memory

	// Processing settings
	MaxConcurrentJobs   int     `env:"MAX_CONCURRENT_JOBS, default=2" json:"max_concurrent_jobs"`
	DefaultProfile      string  `env:"DEFAULT_PROFILE, default=sparse" json:"default_profile"`
	SilenceSafetyBuffer float64 `env:"SILENCE_SAFETY_BUFFER, default=1.1" json:"silence_safety_buffer"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat     string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel      string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
	LogFile       string `env:"LOG_FILE" json:"log_file,omitempty"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB, default=64" json:"log_max_size_mb"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS, default=3" json:"log_max_backups"`

	logFile *lumberjack.Logger
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// ScriptEnabled returns true if a script-generation key is configured.
func (c *Config) ScriptEnabled() bool {
	return c.ScriptAPIKey != ""
}

// Profile returns DefaultProfile as a pacing profile.
func (c *Config) Profile() pacing.Profile {
	return pacing.Profile(strings.ToLower(c.DefaultProfile))
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set or values are out
// of range.
func Load() (*Config, error) {
	return load(context.Background(), envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "ELEVENLABS_API_KEY") {
			return nil, ErrElevenLabsAPIKeyRequired
		}
		if strings.Contains(err.Error(), "ELEVENLABS_VOICE_ID") {
			return nil, ErrElevenLabsVoiceIDRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and in range.
func (c *Config) Validate() error {
	if c.ElevenLabsAPIKey == "" {
		return ErrElevenLabsAPIKeyRequired
	}
	if c.ElevenLabsVoiceID == "" {
		return ErrElevenLabsVoiceIDRequired
	}
	if !c.Profile().IsValid() {
		return ErrInvalidProfile
	}
	if c.SilenceSafetyBuffer < 1 {
		return ErrInvalidSafetyBuffer
	}
	if c.MaxConcurrentJobs < 1 {
		return ErrInvalidConcurrency
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs. When LogFile is set, logs
// are also written to a size-rotated file.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}
	out := c.logOutput()

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}

// Close releases the rotating log file, if one was opened.
func (c *Config) Close() error {
	if c.logFile == nil {
		return nil
	}
	return c.logFile.Close()
}

func (c *Config) logOutput() io.Writer {
	if c.LogFile == "" {
		return os.Stdout
	}
	if err := os.MkdirAll(filepath.Dir(c.LogFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "config: log directory unavailable, logging to stdout only: %v\n", err)
		return os.Stdout
	}
	if c.logFile == nil {
		c.logFile = &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    max(c.LogMaxSizeMB, 1),
			MaxBackups: max(c.LogMaxBackups, 0),
			MaxAge:     7,
			Compress:   true,
		}
	}
	return io.MultiWriter(os.Stdout, c.logFile)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, ElevenLabsVoiceID: %s, ElevenLabsModelID: %s, ScriptEnabled: %t, ScriptModel: %s, TempDir: %s, AssetsDir: %s, JobDBPath: %s, MaxConcurrentJobs: %d, DefaultProfile: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.ElevenLabsVoiceID,
		c.ElevenLabsModelID,
		c.ScriptEnabled(),
		c.ScriptModel,
		c.TempDir,
		c.AssetsDir,
		c.JobDBPath,
		c.MaxConcurrentJobs,
		c.DefaultProfile,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
