package config

import (
	"flag"
	"runtime"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port int
	Env  string

	// Workers is the worker process count spawned by the primary.
	// 0 serves from the current process with no supervision.
	Workers int

	// KeepAliveTimeout is the fixed keep-alive/idle window per connection
	// and the value advertised in the Keep-Alive response header.
	KeepAliveTimeout time.Duration

	// DrainTimeout bounds shutdown draining; connections still open when
	// it elapses are forcibly closed.
	DrainTimeout time.Duration

	MaxConnections int

	// Body buffer pool geometry
	BufferSlots int
	BufferSize  int

	// RouteCacheSize bounds the observed-URL route cache.
	RouteCacheSize int
}

// Default returns the configuration used when no flags are parsed.
func Default() *Config {
	return &Config{
		Port:             8080,
		Env:              "development",
		Workers:          runtime.NumCPU(),
		KeepAliveTimeout: 5 * time.Second,
		DrainTimeout:     10 * time.Second,
		MaxConnections:   10000,
		BufferSlots:      1000,
		BufferSize:       16 * 1024,
		RouteCacheSize:   4096,
	}
}

// New loads configuration from flags, then applies environment overrides.
func New() *Config {
	cfg := Default()

	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.Env, "env", cfg.Env, "Environment (development/production)")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Worker process count (0 = serve in-process)")
	flag.DurationVar(&cfg.KeepAliveTimeout, "keep-alive", cfg.KeepAliveTimeout, "Connection keep-alive window")
	flag.DurationVar(&cfg.DrainTimeout, "drain-timeout", cfg.DrainTimeout, "Shutdown drain deadline")
	flag.IntVar(&cfg.MaxConnections, "max-connections", cfg.MaxConnections, "Concurrent connection cap")

	flag.Parse()

	applyEnv(cfg)
	return cfg
}
