package health

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Check defines a downstream connectivity check.
// Implementations should be lightweight and fast, not full scan calls.
type Check interface {
	// Check performs a connectivity check against the downstream.
	// Returns nil if reachable, error if not.
	Check(ctx context.Context) error
}

// HTTPCheck performs connectivity checks via HTTP request.
// Any response, including 4xx, proves the downstream is reachable;
// only transport errors and 5xx responses count as failures.
type HTTPCheck struct {
	url    string
	client *http.Client
	method string
}

// NewHTTPCheck creates an HTTP-based connectivity check against url.
func NewHTTPCheck(url string, client *http.Client) *HTTPCheck {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPCheck{
		url:    url,
		client: client,
		method: http.MethodGet,
	}
}

// Check performs the HTTP connectivity check.
func (h *HTTPCheck) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, h.method, h.url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrProbeFailed, resp.StatusCode)
	}
	return nil
}

// Probe tracks downstream health behind a circuit breaker and runs a
// periodic background connectivity check.
//
// Scan traffic feeds the circuit through RecordSuccess and RecordFailure;
// the background check keeps the readiness signal live when no traffic
// flows, and detects recovery while the circuit is open.
type Probe struct {
	ctx     context.Context
	cancel  context.CancelFunc
	circuit *CircuitBreaker
	check   Check
	logger  *zerolog.Logger
	config  Config
	wg      sync.WaitGroup
	mu      sync.Mutex
	lastErr error
}

// NewProbe creates a Probe for the given downstream check.
func NewProbe(check Check, cfg Config, logger *zerolog.Logger) *Probe {
	ctx, cancel := context.WithCancel(context.Background())
	return &Probe{
		ctx:     ctx,
		cancel:  cancel,
		circuit: NewCircuitBreaker("downstream", cfg.Circuit, logger),
		check:   check,
		logger:  logger,
		config:  cfg,
	}
}

// Start begins periodic background checking. Should be called once.
func (p *Probe) Start() {
	if !p.config.IsEnabled() {
		if p.logger != nil {
			p.logger.Info().Msg("downstream probe disabled")
		}
		return
	}

	interval := p.config.GetInterval()
	// Jitter (0-2s) to avoid probing in lockstep across replicas
	jitter := cryptoRandDuration(2 * time.Second)
	ticker := time.NewTicker(interval + jitter)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer ticker.Stop()

		if p.logger != nil {
			p.logger.Info().
				Dur("interval", interval).
				Dur("jitter", jitter).
				Msg("downstream probe started")
		}

		for {
			select {
			case <-p.ctx.Done():
				if p.logger != nil {
					p.logger.Info().Msg("downstream probe stopped")
				}
				return
			case <-ticker.C:
				p.runCheck()
			}
		}
	}()
}

// Stop stops the background probe and waits for the goroutine to finish.
func (p *Probe) Stop() {
	p.cancel()
	p.wg.Wait()
}

// runCheck performs one connectivity check and records the outcome.
func (p *Probe) runCheck() {
	ctx, cancel := context.WithTimeout(p.ctx, p.config.GetTimeout())
	err := p.check.Check(ctx)
	cancel()

	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()

	if err != nil {
		if p.logger != nil {
			p.logger.Debug().Err(err).Msg("downstream probe failed")
		}
		p.circuit.ReportFailure(err)
		return
	}
	p.circuit.ReportSuccess()
}

// RecordSuccess records a successful downstream call.
func (p *Probe) RecordSuccess() {
	p.circuit.ReportSuccess()
}

// RecordFailure records a failed downstream call.
func (p *Probe) RecordFailure(err error) {
	p.circuit.ReportFailure(err)
}

// Ready reports whether the downstream is considered reachable.
// The gateway is ready unless the circuit is OPEN.
func (p *Probe) Ready() bool {
	return p.circuit.State() != StateOpen
}

// State returns the current circuit state.
func (p *Probe) State() State {
	return p.circuit.State()
}

// LastError returns the error from the most recent background check,
// or nil if it succeeded or no check has run yet.
func (p *Probe) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// cryptoRandDuration returns a random duration between 0 and maxDur.
func cryptoRandDuration(maxDur time.Duration) time.Duration {
	if maxDur <= 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	n := binary.LittleEndian.Uint64(b[:])
	//nolint:gosec // maxDur is positive, safe conversion
	return time.Duration(n % uint64(maxDur))
}
