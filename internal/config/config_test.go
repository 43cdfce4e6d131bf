package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, "redis", cfg.QueueBackend)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 5*time.Minute, cfg.ReportCacheTTL)
	assert.False(t, cfg.Production())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("SEED_FILE", "seed.json")
	t.Setenv("QUEUE_BACKEND", "memory")
	t.Setenv("SCHOOL_TZ", "Europe/London")
	t.Setenv("RATE_LIMIT_PER_MIN", "30")
	t.Setenv("ACCESS_TTL", "not-a-duration")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Production())
	assert.Equal(t, "Europe/London", cfg.Location.String())
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.Equal(t, 12*time.Hour, cfg.AccessTTL, "bad duration falls back")
}

func TestFromEnvRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown zone", env: map[string]string{"SCHOOL_TZ": "Mars/Olympus"}},
		{name: "unknown store", env: map[string]string{"STORE_BACKEND": "sqlite"}},
		{name: "unknown queue", env: map[string]string{"QUEUE_BACKEND": "kafka"}},
		{name: "memory without seed", env: map[string]string{"STORE_BACKEND": "memory"}},
		{name: "shared keys", env: map[string]string{"JWT_SIGNING_KEY": "same", "QR_SIGNING_KEY": "same"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
