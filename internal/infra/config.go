package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DIDAPIKey        string
	DIDBaseURL       string
	AvatarSourceURL  string
	DefaultVoiceID   string
	ResultFormat     string
	PollInterval     time.Duration
	PollTimeout      time.Duration
	JobRetention     time.Duration
	GeoIPDBPath      string
	AllowedOrigins   []string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults
// where needed. A missing D-ID credential is not an error here: the provider
// client reports it per request so the UI can surface the misconfiguration.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		DIDAPIKey:       strings.TrimSpace(os.Getenv("D_ID_API_KEY")),
		DIDBaseURL:      getEnv("D_ID_BASE_URL", "https://api.d-id.com"),
		AvatarSourceURL: getEnv("AVATAR_SOURCE_URL", "https://cdn.d-id.com/images/predefined_laura.jpg"),
		DefaultVoiceID:  getEnv("DEFAULT_VOICE_ID", "en-US-JennyNeural"),
		ResultFormat:    getEnv("RESULT_FORMAT", "mp4"),
		PollInterval:    time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 10)),
		PollTimeout:     time.Second * time.Duration(getEnvInt("POLL_TIMEOUT_SECONDS", 600)),
		JobRetention:    time.Minute * time.Duration(getEnvInt("JOB_RETENTION_MINUTES", 60)),
		GeoIPDBPath:     os.Getenv("GEOIP_DB_PATH"),
		AllowedOrigins:  splitList(os.Getenv("ALLOWED_ORIGINS")),
		// Write timeout defaults to 0 (disabled): event streams hold the
		// response open for the life of a job.
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 0)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DIDAPIKey == "" {
		if path := strings.TrimSpace(os.Getenv("D_ID_API_KEY_FILE")); path != "" {
			key, err := readSecretFile(path)
			if err != nil {
				return nil, err
			}
			cfg.DIDAPIKey = key
		}
	}

	return cfg, nil
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read secret file %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
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
