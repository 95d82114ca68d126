package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"PORT", "STORAGE_TYPE", "REDIS_URL", "DATABASE_URL", "NATS_URL", "LEXICON_URL",
	"DICTIONARY_PATH", "SCORING_CONFIG", "STARTING_CLOCK", "TICK_INTERVAL", "LOG_LEVEL", "CORS_ORIGINS",
}

func clearEnv(t *testing.T) {
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StorageMemory, cfg.StorageType)
	assert.Equal(t, "data/words.tsv", cfg.DictionaryPath)
	assert.Equal(t, 3*time.Minute, cfg.StartingClock)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.CORSOrigins)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.NATSURL)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_TYPE", "redis")
	t.Setenv("REDIS_URL", "redis://cache:6379")
	t.Setenv("DATABASE_URL", "postgres://localhost/wordchain")
	t.Setenv("NATS_URL", "nats://bus:4222")
	t.Setenv("STARTING_CLOCK", "90")
	t.Setenv("TICK_INTERVAL", "250ms")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, StorageRedis, cfg.StorageType)
	assert.Equal(t, "redis://cache:6379", cfg.RedisURL)
	assert.Equal(t, "postgres://localhost/wordchain", cfg.DatabaseURL)
	assert.Equal(t, "nats://bus:4222", cfg.NATSURL)
	assert.Equal(t, 90*time.Second, cfg.StartingClock)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "redis without url",
			env:  map[string]string{"STORAGE_TYPE": "redis"},
			want: "REDIS_URL is required",
		},
		{
			name: "unknown storage",
			env:  map[string]string{"STORAGE_TYPE": "sqlite"},
			want: "invalid STORAGE_TYPE",
		},
		{
			name: "bad port",
			env:  map[string]string{"PORT": "http"},
			want: "invalid PORT",
		},
		{
			name: "port out of range",
			env:  map[string]string{"PORT": "70000"},
			want: "invalid PORT",
		},
		{
			name: "bad clock",
			env:  map[string]string{"STARTING_CLOCK": "soon"},
			want: "invalid STARTING_CLOCK",
		},
		{
			name: "zero tick",
			env:  map[string]string{"TICK_INTERVAL": "0"},
			want: "TICK_INTERVAL must be positive",
		},
		{
			name: "bad log level",
			env:  map[string]string{"LOG_LEVEL": "loud"},
			want: "invalid LOG_LEVEL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGetDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "")
	d, err := getDuration("TEST_DURATION", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	t.Setenv("TEST_DURATION", "2m30s")
	d, err = getDuration("TEST_DURATION", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 150*time.Second, d)
}
