package config

import "time"

// TimeoutConfig holds timeout settings for the HTTP front-end.
type TimeoutConfig struct {
	// ReadTimeout bounds reading a request including its form body. Default: 15s
	ReadTimeout time.Duration

	// IdleTimeout is how long keep-alive connections stay open between requests.
	// Default: 120s
	IdleTimeout time.Duration

	// Request is the per-request deadline applied by the router. It must be
	// larger than the procedure timeout or slow procedures are cut off early.
	// Default: 90s
	Request time.Duration

	// Shutdown is how long in-flight requests get to finish on SIGINT/SIGTERM.
	// Default: 30s
	Shutdown time.Duration
}

// DefaultTimeoutConfig returns the default timeout configuration
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 120 * time.Second,
		Request:     90 * time.Second,
		Shutdown:    30 * time.Second,
	}
}

// global instance that can be set at startup
var globalTimeouts = DefaultTimeoutConfig()

// SetGlobalTimeouts sets the global timeout configuration
func SetGlobalTimeouts(cfg *TimeoutConfig) {
	globalTimeouts = cfg
}

// GetTimeouts returns the global timeout configuration
func GetTimeouts() *TimeoutConfig {
	return globalTimeouts
}
