package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dmid-labs/scangate/internal/config"
	"github.com/dmid-labs/scangate/internal/health"
)

// ErrDownstreamUnavailable is returned when the downstream scan call
// fails at the transport level (connection refused, DNS failure,
// timeout). The underlying error is wrapped for logging but never
// exposed to callers.
var ErrDownstreamUnavailable = errors.New("proxy: downstream unavailable")

// DownstreamResponse is the raw outcome of a downstream scan call.
// Body is the full downstream body, unmodified.
type DownstreamResponse struct {
	StatusCode int
	Body       []byte
}

// IsSuccess reports whether the downstream returned a 2xx status.
func (r *DownstreamResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DownstreamClient forwards scan payloads to the downstream endpoint.
//
// Each call is a single attempt bounded by the configured timeout, and
// inherits the inbound request context so a dropped caller connection
// abandons the downstream call.
type DownstreamClient struct {
	client *http.Client
	cfg    config.RuntimeConfigGetter
	probe  *health.Probe
}

// NewDownstreamClient creates a client for the configured downstream
// endpoint. The probe is optional; when set, call outcomes feed the
// readiness circuit.
func NewDownstreamClient(cfg config.RuntimeConfigGetter, probe *health.Probe) *DownstreamClient {
	return &DownstreamClient{
		// Per-call deadlines come from the request context, not the
		// client, so the configured timeout can hot-reload.
		client: &http.Client{},
		cfg:    cfg,
		probe:  probe,
	}
}

// Scan forwards the exact payload to the downstream endpoint as an
// HTTP POST. No retry: transport failures surface immediately as
// ErrDownstreamUnavailable. Any HTTP response, success or not, is
// returned with its full body for the handler to map.
func (c *DownstreamClient) Scan(ctx context.Context, payload []byte) (*DownstreamResponse, error) {
	downstream := c.cfg.Get().Downstream

	ctx, cancel := context.WithTimeout(ctx, downstream.GetTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, downstream.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build downstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.recordOutcome(0, err)
		zerolog.Ctx(ctx).Error().Err(err).
			Str("downstream_url", downstream.URL).
			Msg("downstream call failed")
		return nil, fmt.Errorf("%w: %w", ErrDownstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordOutcome(0, err)
		zerolog.Ctx(ctx).Error().Err(err).
			Str("downstream_url", downstream.URL).
			Msg("downstream body read failed")
		return nil, fmt.Errorf("%w: %w", ErrDownstreamUnavailable, err)
	}

	c.recordOutcome(resp.StatusCode, nil)

	return &DownstreamResponse{
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

// recordOutcome feeds the readiness circuit, if one is wired.
func (c *DownstreamClient) recordOutcome(statusCode int, err error) {
	if c.probe == nil {
		return
	}
	if health.ShouldCountAsFailure(statusCode, err) {
		c.probe.RecordFailure(err)
		return
	}
	c.probe.RecordSuccess()
}
