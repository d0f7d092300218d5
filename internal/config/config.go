package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Port                 string
	StoreBackend         string
	DatabaseURL          string
	RedisURL             string
	SessionSecret        string
	SessionIssuer        string
	SessionTTLSeconds    int64
	IdentitySecret       string
	IdentityIssuer       string
	IdentityAudience     string
	PermanentAdminEmail  string
	AppVersion           string
	Features             map[string]bool
	ChatHistoryLimit     int
	ReadWarnSeconds      int
	ReconnectDelayMs     int
	OfflineWindowMs      int
	MetricsDiskPath      string
	MetricsSampleSeconds int
	MetricsRetention     int
	CorsOrigins          []string
	LogDir               string
	LogRetentionDays     int
	LogLevel             string
}

func Load() Config {
	cfg := Config{
		Port:                 envOr("PORT", "8080"),
		StoreBackend:         strings.ToLower(envOr("STORE_BACKEND", StoreMemory)),
		DatabaseURL:          envOr("DATABASE_URL", ""),
		RedisURL:             envOr("REDIS_URL", ""),
		SessionSecret:        mustEnv("SESSION_SECRET"),
		SessionIssuer:        envOr("SESSION_ISSUER", "kknotes"),
		SessionTTLSeconds:    int64(envOrInt("SESSION_TTL_SECONDS", 86400)),
		IdentitySecret:       mustEnv("IDENTITY_SECRET"),
		IdentityIssuer:       envOr("IDENTITY_ISSUER", ""),
		IdentityAudience:     envOr("IDENTITY_AUDIENCE", ""),
		PermanentAdminEmail:  mustEnv("PERMANENT_ADMIN_EMAIL"),
		AppVersion:           envOr("APP_VERSION", "1.0.0"),
		Features:             parseFeatures(envOr("FEATURES", "chat,videos")),
		ChatHistoryLimit:     envOrInt("CHAT_HISTORY_LIMIT", 50),
		ReadWarnSeconds:      envOrInt("READ_WARN_SECONDS", 5),
		ReconnectDelayMs:     envOrInt("RECONNECT_DELAY_MS", 2000),
		OfflineWindowMs:      envOrInt("OFFLINE_WINDOW_MS", 1000),
		MetricsDiskPath:      envOr("METRICS_DISK_PATH", "."),
		MetricsSampleSeconds: envOrInt("METRICS_SAMPLE_INTERVAL", 5),
		MetricsRetention:     envOrInt("METRICS_RETENTION", 720),
		CorsOrigins:          parseCSV(envOr("CORS_ORIGINS", "")),
		LogDir:               envOr("LOG_DIR", "storage/logs"),
		LogRetentionDays:     envOrInt("LOG_RETENTION_DAYS", 7),
		LogLevel:             strings.ToLower(envOr("LOG_LEVEL", "info")),
	}
	if cfg.StoreBackend == StorePostgres && cfg.DatabaseURL == "" {
		panic("missing env var: DATABASE_URL")
	}
	if cfg.LogRetentionDays < 1 || cfg.LogRetentionDays > 7 {
		cfg.LogRetentionDays = 7
	}
	return cfg
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

func (c Config) ReadWarnAfter() time.Duration {
	return time.Duration(c.ReadWarnSeconds) * time.Second
}

func (c Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMs) * time.Millisecond
}

func (c Config) OfflineWindow() time.Duration {
	return time.Duration(c.OfflineWindowMs) * time.Millisecond
}

func (c Config) MetricsInterval() time.Duration {
	if c.MetricsSampleSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.MetricsSampleSeconds) * time.Second
}

func mustEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		panic("missing env var: " + key)
	}
	return value
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}

// parseFeatures reads "chat,videos=false" style flag lists. A bare name
// means enabled.
func parseFeatures(raw string) map[string]bool {
	features := map[string]bool{}
	for _, item := range parseCSV(raw) {
		name, value, found := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		enabled := true
		if found {
			parsed, err := strconv.ParseBool(strings.TrimSpace(value))
			if err != nil {
				continue
			}
			enabled = parsed
		}
		features[name] = enabled
	}
	return features
}
