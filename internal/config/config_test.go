package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("PUSH_TTL_SECONDS", "")
	t.Setenv("BROADCAST_WORKERS", "")
	t.Setenv("TRUST_PROXY_HEADERS", "")

	cfg := Load()

	assert.False(t, cfg.TrustProxyHeaders)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 24*time.Hour, cfg.Push.TTL)
	assert.Equal(t, 5*time.Second, cfg.Push.Timeout)
	assert.Equal(t, 1, cfg.Push.BroadcastWorkers)
	assert.Equal(t, 365*24*time.Hour, cfg.Push.SubscriptionTTL)
	assert.Equal(t, "general", cfg.Push.Defaults.Tag)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("BROADCAST_WORKERS", "8")
	t.Setenv("LOG_JSON", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg := Load()

	assert.True(t, cfg.TrustProxyHeaders)
	assert.Equal(t, "redis", cfg.StoreBackend)
	assert.Equal(t, 8, cfg.Push.BroadcastWorkers)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestGetEnvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("PUSH_TIMEOUT_SECONDS", "soon")
	assert.Equal(t, 5, getEnvInt("PUSH_TIMEOUT_SECONDS", 5))
}
