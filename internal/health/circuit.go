package health

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// State represents the circuit breaker state.
type State = gobreaker.State

// Circuit breaker state constants.
const (
	StateClosed   = gobreaker.StateClosed
	StateOpen     = gobreaker.StateOpen
	StateHalfOpen = gobreaker.StateHalfOpen
)

// CircuitBreaker wraps sony/gobreaker TwoStepCircuitBreaker for downstream
// health tracking.
type CircuitBreaker struct {
	cb   *gobreaker.TwoStepCircuitBreaker[struct{}]
	name string
}

// NewCircuitBreaker creates a new CircuitBreaker with the given configuration.
func NewCircuitBreaker(name string, cfg CircuitConfig, logger *zerolog.Logger) *CircuitBreaker {
	halfOpenProbes := cfg.GetHalfOpenProbes()
	failureThreshold := cfg.GetFailureThreshold()

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(halfOpenProbes), //nolint:gosec // GetHalfOpenProbes returns > 0
		Timeout:     cfg.GetOpenDuration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failureThreshold) //nolint:gosec // GetFailureThreshold returns > 0
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger == nil {
				return
			}
			event := logger.Info()
			if to == gobreaker.StateOpen {
				event = logger.Warn()
			}
			event.
				Str("circuit", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &CircuitBreaker{
		cb:   gobreaker.NewTwoStepCircuitBreaker[struct{}](settings),
		name: name,
	}
}

// Allow checks if a request is allowed through the circuit breaker.
func (c *CircuitBreaker) Allow() (done func(err error), err error) {
	d, err := c.cb.Allow()
	if err != nil {
		return nil, ErrCircuitOpen
	}
	return d, nil
}

// State returns the current circuit breaker state.
func (c *CircuitBreaker) State() State {
	return c.cb.State()
}

// Name returns the circuit breaker's name.
func (c *CircuitBreaker) Name() string {
	return c.name
}

// ReportSuccess reports a successful operation to the circuit breaker.
// Returns true if the success was recorded, false if skipped.
//
// When the circuit is OPEN, gobreaker blocks all requests via Allow(), so
// successes cannot be recorded until the open duration expires and the
// circuit transitions to HALF-OPEN.
func (c *CircuitBreaker) ReportSuccess() bool {
	done, err := c.Allow()
	if err != nil {
		return false
	}
	done(nil)
	return true
}

// ReportFailure reports a failed operation to the circuit breaker.
// Returns true if the failure was recorded, false if skipped.
func (c *CircuitBreaker) ReportFailure(err error) bool {
	done, allowErr := c.Allow()
	if allowErr != nil {
		return false
	}
	done(err)
	return true
}

// ShouldCountAsFailure determines whether a downstream response should count
// as a circuit breaker failure. Client errors (4xx) mean the downstream is
// reachable and responding, so only transport errors and 5xx count.
func ShouldCountAsFailure(statusCode int, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	return statusCode >= 500
}
