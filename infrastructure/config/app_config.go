package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"spmodel/database"
	"spmodel/logging"
)

// AppConfig holds application-wide system configuration.
// SharePoint credentials are loaded separately by spauth.
type AppConfig struct {
	Environment string
	SiteURL     string
	SchemaPath  string
	HTTPAddr    string
	HTTPLogPath string
	Query       *QueryConfig
	Storage     *StorageConfig
	Database    *database.Config
	Logging     *logging.Config
}

// QueryConfig holds the defaults applied to every registered query.
type QueryConfig struct {
	Debounce          time.Duration
	StorageExpiration time.Duration
	// Location names the time zone used for DateTime values without one.
	Location string
}

// StorageConfig selects and sizes the snapshot storage backends.
type StorageConfig struct {
	// Default is "local", "session" or "none".
	Default         string
	LocalMaxBytes   int64
	SessionMaxBytes int64
	SessionTTL      time.Duration
}

// LoadAppConfigFromEnv loads complete application configuration from environment variables.
func LoadAppConfigFromEnv() *AppConfig {
	return &AppConfig{
		Environment: getEnvWithDefault("SP_ENVIRONMENT", ""),
		SiteURL:     getEnvWithDefault("SP_SITE_URL", ""),
		SchemaPath:  getEnvWithDefault("SP_SCHEMA_PATH", "./lists.yaml"),
		HTTPAddr:    getEnvWithDefault("HTTP_ADDR", ":8080"),
		HTTPLogPath: getEnvWithDefault("HTTP_LOG_PATH", ""),
		Query:       LoadQueryConfigFromEnv(),
		Storage:     LoadStorageConfigFromEnv(),
		Database:    LoadDatabaseConfigFromEnv(),
		Logging:     LoadLoggingConfigFromEnv(),
	}
}

// LoadQueryConfigFromEnv loads query defaults from environment variables.
func LoadQueryConfigFromEnv() *QueryConfig {
	return &QueryConfig{
		Debounce:          getEnvDurationWithDefault("QUERY_DEBOUNCE", 100*time.Millisecond),
		StorageExpiration: getEnvDurationWithDefault("QUERY_STORAGE_EXPIRATION", 0),
		Location:          getEnvWithDefault("SP_TIME_ZONE", "UTC"),
	}
}

// LoadStorageConfigFromEnv loads snapshot storage configuration from environment variables.
func LoadStorageConfigFromEnv() *StorageConfig {
	return &StorageConfig{
		Default:         strings.ToLower(getEnvWithDefault("STORAGE_DEFAULT", "local")),
		LocalMaxBytes:   getEnvInt64WithDefault("STORAGE_MAX_BYTES", 5*1024*1024),
		SessionMaxBytes: getEnvInt64WithDefault("SESSION_STORAGE_MAX_BYTES", 5*1024*1024),
		SessionTTL:      getEnvDurationWithDefault("SESSION_STORAGE_TTL", 0),
	}
}

// LoadDatabaseConfigFromEnv loads database configuration from environment variables.
func LoadDatabaseConfigFromEnv() *database.Config {
	return &database.Config{
		Path:              getEnvWithDefault("STORAGE_DB_PATH", "./spmodel.db"),
		MaxOpenConns:      getEnvIntWithDefault("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:      getEnvIntWithDefault("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:   getEnvDurationWithDefault("DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime:   getEnvDurationWithDefault("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
		BusyTimeoutMs:     getEnvIntWithDefault("DB_BUSY_TIMEOUT_MS", 5000),
		EnableForeignKeys: getEnvBoolWithDefault("DB_ENABLE_FOREIGN_KEYS", true),
		EnableWAL:         getEnvBoolWithDefault("DB_ENABLE_WAL", true),
	}
}

// LoadLoggingConfigFromEnv loads logging configuration from environment variables.
func LoadLoggingConfigFromEnv() *logging.Config {
	return &logging.Config{
		Level:  getEnvWithDefault("LOG_LEVEL", "info"),
		Format: getEnvWithDefault("LOG_FORMAT", "json"),
		Output: getEnvWithDefault("LOG_OUTPUT", "stderr"),
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(v string, def bool) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// Helper functions for environment variable parsing.
func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return parseBool(value, defaultValue)
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
