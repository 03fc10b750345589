package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadAppConfigFromEnv_Defaults(t *testing.T) {
	// Arrange
	for _, key := range []string{"SP_ENVIRONMENT", "SP_SCHEMA_PATH", "QUERY_DEBOUNCE", "STORAGE_DEFAULT",
		"STORAGE_MAX_BYTES", "SESSION_STORAGE_MAX_BYTES", "STORAGE_DB_PATH", "HTTP_ADDR", "LOG_OUTPUT"} {
		t.Setenv(key, "")
	}

	// Act
	cfg := LoadAppConfigFromEnv()

	// Assert
	assert.Equal(t, "./lists.yaml", cfg.SchemaPath)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 100*time.Millisecond, cfg.Query.Debounce)
	assert.Equal(t, "local", cfg.Storage.Default)
	assert.Equal(t, int64(5*1024*1024), cfg.Storage.LocalMaxBytes)
	assert.Equal(t, "./spmodel.db", cfg.Database.Path)
	assert.Equal(t, "stderr", cfg.Logging.Output)
}

func TestLoadAppConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("SP_ENVIRONMENT", "production")
	t.Setenv("QUERY_DEBOUNCE", "250ms")
	t.Setenv("STORAGE_DEFAULT", "Session")
	t.Setenv("SESSION_STORAGE_MAX_BYTES", "1024")
	t.Setenv("SESSION_STORAGE_TTL", "30m")
	t.Setenv("DB_ENABLE_WAL", "off")

	cfg := LoadAppConfigFromEnv()

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 250*time.Millisecond, cfg.Query.Debounce)
	assert.Equal(t, "session", cfg.Storage.Default)
	assert.Equal(t, int64(1024), cfg.Storage.SessionMaxBytes)
	assert.Equal(t, 30*time.Minute, cfg.Storage.SessionTTL)
	assert.False(t, cfg.Database.EnableWAL)
}

func TestEnvHelpers_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		name  string
		value string
		check func(t *testing.T)
	}{
		{"int", "abc", func(t *testing.T) { assert.Equal(t, 7, getEnvIntWithDefault("TEST_VALUE", 7)) }},
		{"int64", "1.5", func(t *testing.T) { assert.Equal(t, int64(9), getEnvInt64WithDefault("TEST_VALUE", 9)) }},
		{"duration", "soon", func(t *testing.T) {
			assert.Equal(t, time.Second, getEnvDurationWithDefault("TEST_VALUE", time.Second))
		}},
		{"bool", "maybe", func(t *testing.T) { assert.True(t, getEnvBoolWithDefault("TEST_VALUE", true)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_VALUE", tt.value)
			tt.check(t)
		})
	}
}
