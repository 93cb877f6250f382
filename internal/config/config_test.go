package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/zenpal-audio/internal/pacing"
)

func loadMap(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return load(context.Background(), envconfig.MapLookuper(env))
}

func requiredEnv() map[string]string {
	return map[string]string{
		"ELEVENLABS_API_KEY":  "test-api-key",
		"ELEVENLABS_VOICE_ID": "test-voice",
	}
}

func TestLoad_RequiredVariables(t *testing.T) {
	t.Run("missing ELEVENLABS_API_KEY returns error", func(t *testing.T) {
		_, err := loadMap(t, map[string]string{"ELEVENLABS_VOICE_ID": "voice"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrElevenLabsAPIKeyRequired)
	})

	t.Run("missing ELEVENLABS_VOICE_ID returns error", func(t *testing.T) {
		_, err := loadMap(t, map[string]string{"ELEVENLABS_API_KEY": "key"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrElevenLabsVoiceIDRequired)
	})

	t.Run("all required variables present succeeds", func(t *testing.T) {
		cfg, err := loadMap(t, requiredEnv())
		require.NoError(t, err)
		assert.Equal(t, "test-api-key", cfg.ElevenLabsAPIKey)
		assert.Equal(t, "test-voice", cfg.ElevenLabsVoiceID)
	})
}

func TestLoad_FromProcessEnv(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "env-key")
	t.Setenv("ELEVENLABS_VOICE_ID", "env-voice")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-voice", cfg.ElevenLabsVoiceID)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadMap(t, requiredEnv())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "eleven_multilingual_v2", cfg.ElevenLabsModelID)
	assert.Equal(t, "mp3_44100_128", cfg.ElevenLabsOutputFormat)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.ScriptBaseURL)
	assert.Equal(t, "/tmp/zenpal", cfg.TempDir)
	assert.Equal(t, "./assets", cfg.AssetsDir)
	assert.Empty(t, cfg.JobDBPath)
	assert.Equal(t, 2, cfg.MaxConcurrentJobs)
	assert.Equal(t, pacing.ProfileSparse, cfg.Profile())
	assert.InDelta(t, 1.1, cfg.SilenceSafetyBuffer, 1e-9)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.S3Enabled())
	assert.False(t, cfg.ScriptEnabled())
}

func TestLoad_CustomValues(t *testing.T) {
	env := requiredEnv()
	env["PORT"] = "3000"
	env["ALLOWED_ORIGINS"] = "https://a.example,https://b.example"
	env["SCRIPT_API_KEY"] = "sk-script"
	env["SCRIPT_MODEL"] = "anthropic/some-model"
	env["TEMP_DIR"] = "/custom/temp"
	env["ASSETS_DIR"] = "/custom/assets"
	env["JOB_DB_PATH"] = "/var/lib/zenpal/jobs.db"
	env["MAX_CONCURRENT_JOBS"] = "4"
	env["DEFAULT_PROFILE"] = "DENSE"
	env["SILENCE_SAFETY_BUFFER"] = "1.25"
	env["S3_BUCKET"] = "my-bucket"
	env["S3_REGION"] = "us-east-1"
	env["AWS_ACCESS_KEY_ID"] = "access-key"
	env["AWS_SECRET_ACCESS_KEY"] = "secret-key"
	env["LOG_FORMAT"] = "json"
	env["LOG_LEVEL"] = "debug"

	cfg, err := loadMap(t, env)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.ScriptEnabled())
	assert.Equal(t, "anthropic/some-model", cfg.ScriptModel)
	assert.Equal(t, "/custom/temp", cfg.TempDir)
	assert.Equal(t, "/custom/assets", cfg.AssetsDir)
	assert.Equal(t, "/var/lib/zenpal/jobs.db", cfg.JobDBPath)
	assert.Equal(t, 4, cfg.MaxConcurrentJobs)
	assert.Equal(t, pacing.ProfileDense, cfg.Profile())
	assert.InDelta(t, 1.25, cfg.SilenceSafetyBuffer, 1e-9)
	assert.True(t, cfg.S3Enabled())
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want error
	}{
		{"non-numeric port", "PORT", "not-a-number", nil},
		{"unknown profile", "DEFAULT_PROFILE", "chatty", ErrInvalidProfile},
		{"buffer below one", "SILENCE_SAFETY_BUFFER", "0.9", ErrInvalidSafetyBuffer},
		{"zero concurrency", "MAX_CONCURRENT_JOBS", "0", ErrInvalidConcurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := requiredEnv()
			env[tt.key] = tt.val

			_, err := loadMap(t, env)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{S3Bucket: tt.bucket, S3Region: tt.region}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		Port:               8080,
		ElevenLabsAPIKey:   "secret-key",
		ElevenLabsVoiceID:  "voice-123",
		ScriptAPIKey:       "sk-script-secret",
		TempDir:            "/tmp/test",
		S3Bucket:           "bucket",
		S3Region:           "region",
		AWSSecretAccessKey: "aws-secret",
		LogFormat:          "json",
		LogLevel:           "info",
	}

	str := cfg.String()

	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "voice-123")
	assert.Contains(t, str, "/tmp/test")
	assert.Contains(t, str, "ScriptEnabled: true")

	assert.NotContains(t, str, "secret-key")
	assert.NotContains(t, str, "sk-script-secret")
	assert.NotContains(t, str, "aws-secret")
}

func TestConfig_NewLogger(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		t.Run(format, func(t *testing.T) {
			cfg := &Config{LogFormat: format, LogLevel: "warn"}

			logger := cfg.NewLogger()
			require.NotNil(t, logger)
			assert.False(t, logger.Enabled(context.Background(), -4))
			assert.True(t, logger.Enabled(context.Background(), 4))
			assert.NoError(t, cfg.Close())
		})
	}
}

func TestConfig_NewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "zenpal.log")
	cfg := &Config{LogFormat: "json", LogLevel: "info", LogFile: path, LogMaxSizeMB: 1, LogMaxBackups: 1}

	logger := cfg.NewLogger()
	logger.Info("rotating sink", "job_id", "med-1")
	require.NoError(t, cfg.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"rotating sink"`)
	assert.Contains(t, string(data), `"job_id":"med-1"`)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"debug", "DEBUG"},
		{"DEBUG", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"ERROR", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input).String())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ElevenLabsAPIKey:    "key",
			ElevenLabsVoiceID:   "voice",
			DefaultProfile:      "sparse",
			SilenceSafetyBuffer: 1.1,
			MaxConcurrentJobs:   1,
		}
	}

	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing API key", func(t *testing.T) {
		cfg := valid()
		cfg.ElevenLabsAPIKey = ""
		assert.ErrorIs(t, cfg.Validate(), ErrElevenLabsAPIKeyRequired)
	})

	t.Run("missing voice ID", func(t *testing.T) {
		cfg := valid()
		cfg.ElevenLabsVoiceID = ""
		assert.ErrorIs(t, cfg.Validate(), ErrElevenLabsVoiceIDRequired)
	})
}
