// Package config provides configuration loading and parsing for scangate.
package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/dmid-labs/scangate/internal/health"
)

// RuntimeConfigGetter defines the interface for accessing runtime
// configuration that supports hot-reload. Components that need to
// observe config changes should use this interface instead of holding
// a direct *Config pointer, which would become stale after hot-reload.
type RuntimeConfigGetter interface {
	Get() *Config
}

// Auth mode constants.
const (
	// ModeAPIKey selects X-API-Key header authentication only.
	ModeAPIKey = "api_key"
	// ModeBearer selects bearer token authentication only, with the
	// /token exchange endpoint enabled.
	ModeBearer = "bearer"
	// ModeBoth enables both strategies in a chain.
	ModeBoth = "both"
)

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Config represents the complete scangate configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Auth       AuthConfig       `yaml:"auth" toml:"auth"`
	Downstream DownstreamConfig `yaml:"downstream" toml:"downstream"`
	Limits     LimitsConfig     `yaml:"limits" toml:"limits"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
	Probe      health.Config    `yaml:"probe" toml:"probe"`
}

// ServerConfig defines server-level settings.
type ServerConfig struct {
	Listen        string `yaml:"listen" toml:"listen"`
	MaxConcurrent int    `yaml:"max_concurrent" toml:"max_concurrent"`
	MaxBodyBytes  int64  `yaml:"max_body_bytes" toml:"max_body_bytes"`
	EnableHTTP2   bool   `yaml:"enable_http2" toml:"enable_http2"` // HTTP/2 cleartext (h2c) support
}

// GetMaxConcurrentOption returns the max concurrent setting as an Option.
// Returns None if MaxConcurrent is zero (unlimited).
func (s *ServerConfig) GetMaxConcurrentOption() mo.Option[int] {
	if s.MaxConcurrent <= 0 {
		return mo.None[int]()
	}
	return mo.Some(s.MaxConcurrent)
}

// AuthConfig defines the credential configuration for the gate.
// It is loaded once at startup and treated as read-only afterwards;
// hot-reload swaps in a whole new Config.
type AuthConfig struct {
	// Mode selects the credential-extraction strategy:
	// api_key (default), bearer, or both.
	Mode string `yaml:"mode" toml:"mode"`

	// Keys is the static API key to username mapping for the api_key
	// strategy. Values support ${ENV_VAR} expansion.
	Keys []KeyConfig `yaml:"keys" toml:"keys"`

	// Users are the password credentials for the bearer strategy
	// (/token exchange). Only bcrypt hashes are stored here.
	Users []UserConfig `yaml:"users" toml:"users"`

	// SigningSecret signs issued access tokens. Process-wide; rotating
	// it invalidates all outstanding tokens.
	SigningSecret string `yaml:"signing_secret" toml:"signing_secret"`

	// TokenTTLMinutes is the access token lifetime. Default: 30.
	TokenTTLMinutes int `yaml:"token_ttl_minutes" toml:"token_ttl_minutes"`

	// TestMode swaps in the fixed test credential set. Also enabled by
	// the TESTING environment variable.
	TestMode bool `yaml:"test_mode" toml:"test_mode"`
}

// KeyConfig is a single static API key entry.
type KeyConfig struct {
	Key      string `yaml:"key" toml:"key"`
	Username string `yaml:"username" toml:"username"`
	Disabled bool   `yaml:"disabled" toml:"disabled"`
}

// UserConfig is a single password credential entry.
type UserConfig struct {
	Username     string `yaml:"username" toml:"username"`
	PasswordHash string `yaml:"password_hash" toml:"password_hash"`
	Disabled     bool   `yaml:"disabled" toml:"disabled"`
}

// GetEffectiveMode returns the auth mode with default fallback.
func (a *AuthConfig) GetEffectiveMode() string {
	if a.Mode == "" {
		return ModeAPIKey
	}
	return a.Mode
}

// IsBearerEnabled returns true if bearer token authentication (and the
// /token exchange endpoint) is enabled.
func (a *AuthConfig) IsBearerEnabled() bool {
	mode := a.GetEffectiveMode()
	return mode == ModeBearer || mode == ModeBoth
}

// IsAPIKeyEnabled returns true if X-API-Key authentication is enabled.
func (a *AuthConfig) IsAPIKeyEnabled() bool {
	mode := a.GetEffectiveMode()
	return mode == ModeAPIKey || mode == ModeBoth
}

// GetTokenTTL returns the configured token lifetime.
// Returns None if the default should apply.
func (a *AuthConfig) GetTokenTTL() mo.Option[time.Duration] {
	if a.TokenTTLMinutes <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(a.TokenTTLMinutes) * time.Minute)
}

// DownstreamConfig defines the downstream AI scan endpoint.
type DownstreamConfig struct {
	// URL is the downstream scan endpoint. Supports ${ENV_VAR} expansion.
	URL string `yaml:"url" toml:"url"`

	// TimeoutMS bounds each downstream call. Default: 30000.
	TimeoutMS int `yaml:"timeout_ms" toml:"timeout_ms"`
}

// DefaultDownstreamTimeout bounds downstream calls when no timeout is
// configured.
const DefaultDownstreamTimeout = 30 * time.Second

// GetTimeout returns the downstream call timeout with default fallback.
func (d *DownstreamConfig) GetTimeout() time.Duration {
	if d.TimeoutMS <= 0 {
		return DefaultDownstreamTimeout
	}
	return time.Duration(d.TimeoutMS) * time.Millisecond
}

// GetTimeoutOption returns the configured timeout as an Option.
// Returns None when the default applies.
func (d *DownstreamConfig) GetTimeoutOption() mo.Option[time.Duration] {
	if d.TimeoutMS <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(d.TimeoutMS) * time.Millisecond)
}

// LimitsConfig defines optional per-principal request limits.
type LimitsConfig struct {
	// RPM is the allowed requests per minute per principal.
	// Zero disables rate limiting.
	RPM int `yaml:"rpm" toml:"rpm"`

	// Burst is the rate limiter burst size. Defaults to RPM.
	Burst int `yaml:"burst" toml:"burst"`
}

// GetBurst returns the burst size with default fallback.
func (l *LimitsConfig) GetBurst() int {
	if l.Burst > 0 {
		return l.Burst
	}
	return l.RPM
}

// IsEnabled returns true if per-principal rate limiting is configured.
func (l *LimitsConfig) IsEnabled() bool {
	return l.RPM > 0
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json, console
	Output string `yaml:"output" toml:"output"` // stdout, stderr, or file path
	Pretty bool   `yaml:"pretty" toml:"pretty"` // enable colored console output
}

// ParseLevel converts a string log level to zerolog.Level.
// Returns zerolog.InfoLevel if the level string is invalid.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
