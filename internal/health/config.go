// Package health provides a circuit breaker and readiness probe for the
// downstream scan service.
//
// The package implements:
//   - Circuit breaker state machine (CLOSED -> OPEN -> HALF-OPEN -> CLOSED)
//   - Periodic downstream connectivity probes with configurable interval
//   - A readiness signal derived from the circuit state
//
// The circuit opens after consecutive downstream failures, marking the
// gateway not-ready until the downstream recovers.
package health

import "time"

// Default configuration values.
const (
	DefaultFailureThreshold = 5     // consecutive failures to open circuit
	DefaultOpenDurationMS   = 30000 // 30 seconds before half-open
	DefaultHalfOpenProbes   = 3     // probes allowed in half-open state
	DefaultProbeIntervalMS  = 10000 // 10 seconds between probes
	DefaultProbeTimeoutMS   = 5000  // 5 second probe request timeout
	DefaultProbeEnabled     = true  // probing enabled by default
)

// CircuitConfig defines circuit breaker behavior.
type CircuitConfig struct {
	// FailureThreshold is the number of consecutive failures before opening
	// the circuit. Default: 5
	FailureThreshold int `yaml:"failure_threshold" toml:"failure_threshold"`

	// OpenDurationMS is the duration in milliseconds the circuit stays open
	// before transitioning to half-open state. Default: 30000 (30 seconds)
	OpenDurationMS int `yaml:"open_duration_ms" toml:"open_duration_ms"`

	// HalfOpenProbes is the number of requests allowed in half-open state.
	// If all succeed, the circuit closes. If any fails, it reopens.
	// Default: 3
	HalfOpenProbes int `yaml:"half_open_probes" toml:"half_open_probes"`
}

// GetFailureThreshold returns the configured failure threshold or default 5.
func (c *CircuitConfig) GetFailureThreshold() int {
	if c.FailureThreshold <= 0 {
		return DefaultFailureThreshold
	}
	return c.FailureThreshold
}

// GetOpenDuration returns the open duration as time.Duration.
// Returns default 30s if not set or negative.
func (c *CircuitConfig) GetOpenDuration() time.Duration {
	if c.OpenDurationMS <= 0 {
		return time.Duration(DefaultOpenDurationMS) * time.Millisecond
	}
	return time.Duration(c.OpenDurationMS) * time.Millisecond
}

// GetHalfOpenProbes returns the configured half-open probe count or default 3.
func (c *CircuitConfig) GetHalfOpenProbes() int {
	if c.HalfOpenProbes <= 0 {
		return DefaultHalfOpenProbes
	}
	return c.HalfOpenProbes
}

// Config combines probe and circuit breaker configuration.
type Config struct {
	// Enabled controls whether the background probe runs.
	// Defaults to true when unset.
	Enabled *bool `yaml:"enabled" toml:"enabled"`

	// IntervalMS is the milliseconds between downstream probes.
	// Default: 10000 (10 seconds)
	IntervalMS int `yaml:"interval_ms" toml:"interval_ms"`

	// TimeoutMS is the per-probe request timeout in milliseconds.
	// Default: 5000 (5 seconds)
	TimeoutMS int `yaml:"timeout_ms" toml:"timeout_ms"`

	Circuit CircuitConfig `yaml:"circuit" toml:"circuit"`
}

// IsEnabled returns whether the background probe is enabled.
// Returns true by default if not explicitly set.
func (c *Config) IsEnabled() bool {
	if c.Enabled == nil {
		return DefaultProbeEnabled
	}
	return *c.Enabled
}

// GetInterval returns the probe interval as time.Duration.
// Returns default 10s if not set or negative.
func (c *Config) GetInterval() time.Duration {
	if c.IntervalMS <= 0 {
		return time.Duration(DefaultProbeIntervalMS) * time.Millisecond
	}
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// GetTimeout returns the per-probe timeout as time.Duration.
// Returns default 5s if not set or negative.
func (c *Config) GetTimeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return time.Duration(DefaultProbeTimeoutMS) * time.Millisecond
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}
