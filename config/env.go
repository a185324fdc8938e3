package config

import (
	"os"
	"strconv"
	"time"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "MICRO_SERVER_"

// applyEnv overrides cfg fields from the environment. Unparseable values
// are ignored, keeping the flag/default value.
func applyEnv(cfg *Config) {
	cfg.Port = envInt("PORT", cfg.Port)
	cfg.Env = envString("ENV", cfg.Env)
	cfg.Workers = envInt("WORKERS", cfg.Workers)
	cfg.KeepAliveTimeout = envDuration("KEEP_ALIVE", cfg.KeepAliveTimeout)
	cfg.DrainTimeout = envDuration("DRAIN_TIMEOUT", cfg.DrainTimeout)
	cfg.MaxConnections = envInt("MAX_CONNECTIONS", cfg.MaxConnections)
}

func envString(key, fallback string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
