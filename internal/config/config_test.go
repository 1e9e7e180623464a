package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredKeys(t *testing.T) {
	t.Setenv("LLM_API_KEY", "llm-key")
	t.Setenv("TTS_API_KEY", "tts-key")
	t.Setenv("IMAGE_API_KEY", "img-key")
}

func TestNewFromEnv_Defaults(t *testing.T) {
	setRequiredKeys(t)

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "/tmp/jobs", cfg.Store.JobsDir)
	assert.Equal(t, "/tmp/jobs/term-cache.db", cfg.Store.TermCacheDB)
	assert.Equal(t, 60, cfg.Store.CleanupAfterMinutes)
	assert.Equal(t, "gpt-4-turbo-preview", cfg.LLM.Model)
	assert.Equal(t, "https://sumo.or.jp", cfg.Asset.ReadingLookupURL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestNewFromEnv_LogLevel(t *testing.T) {
	setRequiredKeys(t)
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestNewFromEnv_MissingRequired(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("TTS_API_KEY", "tts-key")
	t.Setenv("IMAGE_API_KEY", "img-key")

	_, err := NewFromEnv()
	assert.Error(t, err)
}

func TestNewFromEnv_Overrides(t *testing.T) {
	setRequiredKeys(t)
	t.Setenv("JOBS_DIR", "/data/jobs")
	t.Setenv("CLEANUP_AFTER_MINUTES", "5")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/data/jobs", cfg.Store.JobsDir)
	assert.Equal(t, 5, cfg.Store.CleanupAfterMinutes)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
}

func TestNewFromEnv_InvalidCleanupDelay(t *testing.T) {
	setRequiredKeys(t)
	t.Setenv("CLEANUP_AFTER_MINUTES", "-1")

	_, err := NewFromEnv()
	assert.Error(t, err)
}

func TestNewFromEnv_Options(t *testing.T) {
	setRequiredKeys(t)

	cfg, err := NewFromEnv(func(c *Config) {
		c.HTTP.Addr = ":9999"
	})
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
}
