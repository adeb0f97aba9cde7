package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseFile  string        // Optional: path to SQLite database file (default: ./secgroups.db)
	Env           string        // Environment (dev, staging, prod) (default: dev)
	LogLevel      string        // Log level (debug, info, warn, error) (default: info)
	LogFormat     string        // Log format (json, text) (default: json)
	MaxHops       int           // Defensive resolution traversal bound (default: 512)
	GraphCacheTTL time.Duration // Bounded staleness of graph snapshots; 0 disables caching (default: 2s)
}

func LoadConfig() Config {
	return Config{
		DatabaseFile:  getEnvOrDefault("SECGROUPS_DATABASE_FILE", "secgroups.db"),
		Env:           getEnvOrDefault("ENV", "dev"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:     getEnvOrDefault("LOG_FORMAT", "json"),
		MaxHops:       getEnvIntOrDefault("SECGROUPS_RESOLUTION_MAX_HOPS", 512),
		GraphCacheTTL: getEnvDurationOrDefault("SECGROUPS_GRAPH_CACHE_TTL", 2*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "2s", "500ms")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
