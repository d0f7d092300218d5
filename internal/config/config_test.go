package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("SESSION_SECRET", "session")
	t.Setenv("IDENTITY_SECRET", "identity")
	t.Setenv("PERMANENT_ADMIN_EMAIL", "owner@kknotes.dev")
	for _, key := range []string{"PORT", "STORE_BACKEND", "FEATURES", "CORS_ORIGINS", "LOG_RETENTION_DAYS", "CHAT_HISTORY_LIMIT", "SESSION_TTL_SECONDS", "READ_WARN_SECONDS", "RECONNECT_DELAY_MS", "OFFLINE_WINDOW_MS"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL())
	assert.Equal(t, 5*time.Second, cfg.ReadWarnAfter())
	assert.Equal(t, 2*time.Second, cfg.ReconnectDelay())
	assert.Equal(t, time.Second, cfg.OfflineWindow())
	assert.Equal(t, 50, cfg.ChatHistoryLimit)
	assert.Equal(t, map[string]bool{"chat": true, "videos": true}, cfg.Features)
	assert.Nil(t, cfg.CorsOrigins)
	assert.Equal(t, 7, cfg.LogRetentionDays)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/kknotes")
	t.Setenv("FEATURES", "chat, videos=false, beta=nope, =true")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("LOG_RETENTION_DAYS", "30")
	t.Setenv("CHAT_HISTORY_LIMIT", "abc")
	t.Setenv("METRICS_SAMPLE_INTERVAL", "0")

	cfg := Load()
	assert.Equal(t, StorePostgres, cfg.StoreBackend)
	assert.Equal(t, map[string]bool{"chat": true, "videos": false}, cfg.Features)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CorsOrigins)
	assert.Equal(t, 7, cfg.LogRetentionDays)
	assert.Equal(t, 50, cfg.ChatHistoryLimit)
	assert.Equal(t, 5*time.Second, cfg.MetricsInterval())
}

func TestLoadRequiresSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_SECRET", "")
	require.Panics(t, func() { Load() })
}

func TestLoadPostgresNeedsDatabaseURL(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	require.Panics(t, func() { Load() })
}
