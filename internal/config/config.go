// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of New().
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: auto, text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// APIURL is the base URL of the prediction service. /predict is appended.
	APIURL string `koanf:"api_url"`

	// AnalyzeTimeoutMS bounds one prediction round trip. Zero disables the bound.
	AnalyzeTimeoutMS int `koanf:"analyze_timeout_ms"`

	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory analysis queue.
	QueueSize int `koanf:"queue_size"`

	// SessionTTLMinutes evicts browser sessions idle for longer than this.
	SessionTTLMinutes int `koanf:"session_ttl_minutes"`

	// CSRFKey authenticates form tokens. Must be 32 bytes when set; an
	// ephemeral key is generated at startup otherwise.
	CSRFKey string `koanf:"csrf_key"`

	// CSRFSecure marks the CSRF cookie Secure. Disable for plain HTTP.
	CSRFSecure bool `koanf:"csrf_secure"`
}

// DefaultAPIURL is used when api_url is not configured.
const DefaultAPIURL = "http://localhost:5000/api"

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "auto",
		Addr:              ":8080",
		APIURL:            DefaultAPIURL,
		AnalyzeTimeoutMS:  0,
		WorkerCount:       runtime.NumCPU() * 2,
		QueueSize:         1024,
		SessionTTLMinutes: 60,
		CSRFSecure:        false,
	}
}

// AnalyzeTimeout returns the prediction timeout, zero meaning none.
func (c *Config) AnalyzeTimeout() time.Duration {
	return time.Duration(c.AnalyzeTimeoutMS) * time.Millisecond
}

// SessionTTL returns the idle session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}
