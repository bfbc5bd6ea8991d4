// Package config loads server configuration from environment variables.
// A .env file, when present, is loaded by the binary before Load is called.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration for the ad server.
type Config struct {
	Port           int
	AllowedOrigins []string

	// Empty disables origin verification (local dev).
	OriginVerifySecret     string
	OriginVerifySSMParam   string
	MediaBucket            string
	SettingsTable          string
	UploadDir              string
	MaxUploadBytes         int64
	PresignExpiry          time.Duration
	GraphBaseURL           string
	GraphRequestsPerSecond float64
	GraphTimeout           time.Duration
	TranscodePollInterval  time.Duration
	TranscodeTimeout       time.Duration
	SubmitAttempts         int
	SubmitBaseDelay        time.Duration
	JobTimeout             time.Duration
	JobTTL                 time.Duration
	HTTPReadTimeout        time.Duration
	HTTPWriteTimeout       time.Duration
	HTTPIdleTimeout        time.Duration
	ShutdownTimeout        time.Duration
}

// DefaultGraphBaseURL is the Marketing API version the server is written against.
const DefaultGraphBaseURL = "https://graph.facebook.com/v21.0"

// Load reads configuration from the environment and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                   getEnvInt("PORT", 8080),
		AllowedOrigins:         getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		OriginVerifySecret:     os.Getenv("ORIGIN_VERIFY_SECRET"),
		OriginVerifySSMParam:   os.Getenv("SSM_ORIGIN_VERIFY_PARAM"),
		MediaBucket:            os.Getenv("MEDIA_BUCKET_NAME"),
		SettingsTable:          os.Getenv("SETTINGS_TABLE_NAME"),
		UploadDir:              getEnv("UPLOAD_DIR", os.TempDir()),
		MaxUploadBytes:         int64(getEnvInt("MAX_UPLOAD_MB", 1024)) << 20,
		PresignExpiry:          getEnvDuration("PRESIGN_EXPIRY", 15*time.Minute),
		GraphBaseURL:           strings.TrimRight(getEnv("GRAPH_API_BASE_URL", DefaultGraphBaseURL), "/"),
		GraphRequestsPerSecond: getEnvFloat("GRAPH_REQUESTS_PER_SECOND", 10),
		GraphTimeout:           getEnvDuration("GRAPH_TIMEOUT", 5*time.Minute),
		TranscodePollInterval:  getEnvDuration("TRANSCODE_POLL_INTERVAL", 5*time.Second),
		TranscodeTimeout:       getEnvDuration("TRANSCODE_TIMEOUT", 5*time.Minute),
		SubmitAttempts:         getEnvInt("SUBMIT_ATTEMPTS", 3),
		SubmitBaseDelay:        getEnvDuration("SUBMIT_BASE_DELAY", time.Second),
		JobTimeout:             getEnvDuration("JOB_TIMEOUT", 15*time.Minute),
		JobTTL:                 getEnvDuration("JOB_TTL", 5*time.Minute),
		HTTPReadTimeout:        getEnvDuration("HTTP_READ_TIMEOUT", 5*time.Minute),
		HTTPWriteTimeout:       getEnvDuration("HTTP_WRITE_TIMEOUT", 0),
		HTTPIdleTimeout:        getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:        getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT out of range: %d", cfg.Port)
	}
	if cfg.SubmitAttempts < 1 {
		return nil, fmt.Errorf("SUBMIT_ATTEMPTS must be at least 1, got %d", cfg.SubmitAttempts)
	}
	if cfg.TranscodePollInterval <= 0 || cfg.TranscodeTimeout <= 0 {
		return nil, fmt.Errorf("TRANSCODE_POLL_INTERVAL and TRANSCODE_TIMEOUT must be positive")
	}
	if cfg.JobTTL <= 0 {
		return nil, fmt.Errorf("JOB_TTL must be positive")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration syntax ("90s", "5m") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
