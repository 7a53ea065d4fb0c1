package health

import "errors"

// Sentinel errors for downstream health tracking.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open and
	// rejecting requests.
	ErrCircuitOpen = errors.New("health: circuit breaker is open")

	// ErrProbeFailed is returned when a downstream connectivity probe fails.
	ErrProbeFailed = errors.New("health: downstream probe failed")
)
