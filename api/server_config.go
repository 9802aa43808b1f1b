package api

import (
	"log/slog"
	"time"
)

const (
	DefaultListenAddr               = "127.0.0.1:8080"
	DefaultGracefulShutdownDuration = 30 * time.Second
	DefaultReadTimeout              = 60 * time.Second
	DefaultWriteTimeout             = 30 * time.Second
)

// HTTPServerConfig configures the serve mode listener and its companion
// metrics listener.
type HTTPServerConfig struct {
	// ListenAddr is where the secrets API is served.
	ListenAddr string

	// MetricsAddr serves /metrics. Empty disables the metrics listener.
	MetricsAddr string

	// EnablePprof mounts the profiler under /debug.
	EnablePprof bool

	Log *slog.Logger

	// DrainDuration is how long /drain keeps reporting not ready before
	// the drain is considered complete.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds how long Shutdown waits for
	// in-flight requests.
	GracefulShutdownDuration time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// WithDefaults returns a copy of cfg with unset fields filled in.
func (cfg HTTPServerConfig) WithDefaults() HTTPServerConfig {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.GracefulShutdownDuration <= 0 {
		cfg.GracefulShutdownDuration = DefaultGracefulShutdownDuration
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	return cfg
}
