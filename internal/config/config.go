package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sumochan15/agentworkflow/pkg/log"
)

// Config holds all application configuration.
// Every value can be supplied through environment variables with sensible
// defaults; only the API keys are required.
//
// Environment Variables:
// LLM Configuration:
// - LLM_API_KEY: API key for the LLM provider (required)
// - LLM_API_URL: API endpoint URL (default: https://api.openai.com/v1)
// - LLM_MODEL: Model used for scenario generation (default: gpt-4-turbo-preview)
// - LLM_READING_MODEL: Model used for reading extraction (default: gpt-4o)
// - LLM_KANA_MODEL: Model used for whole-text kana conversion (default: gpt-4o-mini)
// - LLM_MAX_TOKENS / LLM_TEMPERATURE / LLM_TIMEOUT: request tuning
//
// Speech Configuration:
// - TTS_API_KEY: speech synthesis API key (required)
// - TTS_API_URL: base URL (default: https://api.elevenlabs.io/v1)
// - TTS_VOICE_ID: default voice
// - TRANSCRIBE_API_URL: speech-to-text endpoint (defaults to the LLM host)
//
// Image Configuration:
// - IMAGE_API_KEY: image generation API key (required)
// - IMAGE_API_URL: base URL (default: https://generativelanguage.googleapis.com/v1beta)
// - IMAGE_MODEL: image model (default: gemini-3-pro-image-preview)
//
// Store Configuration:
// - REDIS_ADDR / REDIS_DB: job store; empty addr falls back to the filesystem
// - JOBS_DIR: root for job records and artifacts (default: /tmp/jobs)
// - TERM_CACHE_DB: sqlite path for the reading cache (default: <JOBS_DIR>/term-cache.db)
// - CLEANUP_AFTER_MINUTES: delay before a finished job is deleted (default: 60)
// - JANITOR_CRON: sweep schedule for the filesystem fallback (default: @every 10m)
//
// HTTP Configuration:
// - HTTP_ADDR: listen address (default: :8080)
//
// Logging:
// - LOG_LEVEL: debug, info, warn, error or fatal (default: info)
//
// Assets:
// - REFERENCE_IMAGE_PATH: default character reference image
// - BGM_PATH: default background music file
// - READING_LOOKUP_URL: authoritative furigana site (default: https://sumo.or.jp)
type Config struct {
	LLM   LLMConfig   `json:"llm"`
	TTS   TTSConfig   `json:"tts"`
	Image ImageConfig `json:"image"`
	Store StoreConfig `json:"store"`
	HTTP  HTTPConfig  `json:"http"`
	Asset AssetConfig `json:"asset"`
	Log   LogConfig   `json:"log"`
}

// LLMConfig holds the configuration for the language model client.
// Any OpenAI-compatible provider works.
type LLMConfig struct {
	APIKey       string  `json:"api_key"`
	APIURL       string  `json:"api_url"`
	Model        string  `json:"model"`
	ReadingModel string  `json:"reading_model"`
	KanaModel    string  `json:"kana_model"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
	Timeout      int     `json:"timeout"`
}

// TTSConfig holds speech synthesis and transcription settings.
type TTSConfig struct {
	APIKey        string `json:"api_key"`
	APIURL        string `json:"api_url"`
	VoiceID       string `json:"voice_id"`
	TranscribeURL string `json:"transcribe_url"`
}

// ImageConfig holds image generation settings.
type ImageConfig struct {
	APIKey string `json:"api_key"`
	APIURL string `json:"api_url"`
	Model  string `json:"model"`
}

// StoreConfig holds job persistence settings.
type StoreConfig struct {
	RedisAddr           string `json:"redis_addr"`
	RedisDB             int    `json:"redis_db"`
	JobsDir             string `json:"jobs_dir"`
	TermCacheDB         string `json:"term_cache_db"`
	CleanupAfterMinutes int    `json:"cleanup_after_minutes"`
	JanitorCron         string `json:"janitor_cron"`
}

type HTTPConfig struct {
	Addr string `json:"addr"`
}

// LogConfig holds the logger verbosity.
type LogConfig struct {
	Level string `json:"level"`
}

// AssetConfig holds default media assets used by the pipeline.
type AssetConfig struct {
	ReferenceImagePath string `json:"reference_image_path"`
	BGMPath            string `json:"bgm_path"`
	ReadingLookupURL   string `json:"reading_lookup_url"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment
// variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	jobsDir := getEnvString("JOBS_DIR", "/tmp/jobs")

	config := &Config{
		LLM: LLMConfig{
			APIKey:       getEnvString("LLM_API_KEY", ""),
			APIURL:       getEnvString("LLM_API_URL", "https://api.openai.com/v1"),
			Model:        getEnvString("LLM_MODEL", "gpt-4-turbo-preview"),
			ReadingModel: getEnvString("LLM_READING_MODEL", "gpt-4o"),
			KanaModel:    getEnvString("LLM_KANA_MODEL", "gpt-4o-mini"),
			MaxTokens:    getEnvInt("LLM_MAX_TOKENS", 4000),
			Temperature:  getEnvFloat("LLM_TEMPERATURE", 0.7),
			Timeout:      getEnvInt("LLM_TIMEOUT", 120),
		},
		TTS: TTSConfig{
			APIKey:        getEnvString("TTS_API_KEY", ""),
			APIURL:        getEnvString("TTS_API_URL", "https://api.elevenlabs.io/v1"),
			VoiceID:       getEnvString("TTS_VOICE_ID", ""),
			TranscribeURL: getEnvString("TRANSCRIBE_API_URL", "https://api.openai.com/v1/audio/transcriptions"),
		},
		Image: ImageConfig{
			APIKey: getEnvString("IMAGE_API_KEY", ""),
			APIURL: getEnvString("IMAGE_API_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Model:  getEnvString("IMAGE_MODEL", "gemini-3-pro-image-preview"),
		},
		Store: StoreConfig{
			RedisAddr:           getEnvString("REDIS_ADDR", ""),
			RedisDB:             getEnvInt("REDIS_DB", 0),
			JobsDir:             jobsDir,
			TermCacheDB:         getEnvString("TERM_CACHE_DB", jobsDir+"/term-cache.db"),
			CleanupAfterMinutes: getEnvInt("CLEANUP_AFTER_MINUTES", 60),
			JanitorCron:         getEnvString("JANITOR_CRON", "@every 10m"),
		},
		HTTP: HTTPConfig{
			Addr: getEnvString("HTTP_ADDR", ":8080"),
		},
		Asset: AssetConfig{
			ReferenceImagePath: getEnvString("REFERENCE_IMAGE_PATH", ""),
			BGMPath:            getEnvString("BGM_PATH", ""),
			ReadingLookupURL:   getEnvString("READING_LOOKUP_URL", "https://sumo.or.jp"),
		},
		Log: LogConfig{
			Level: getEnvString("LOG_LEVEL", "info"),
		},
	}

	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config loaded: http=%s jobs=%s redis=%q", config.HTTP.Addr, config.Store.JobsDir, config.Store.RedisAddr)

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.TTS.APIKey == "" {
		return fmt.Errorf("TTS_API_KEY is required")
	}
	if c.Image.APIKey == "" {
		return fmt.Errorf("IMAGE_API_KEY is required")
	}
	if c.Store.CleanupAfterMinutes <= 0 {
		return fmt.Errorf("CLEANUP_AFTER_MINUTES must be positive")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
