package proxy

import (
	"net/http"

	"github.com/dmid-labs/scangate/internal/config"
	"github.com/dmid-labs/scangate/internal/health"
)

// SetupRoutes creates the HTTP handler with all routes configured.
// Routes:
//   - POST /scan - forward scan requests downstream (auth required)
//   - POST /token - exchange username/password for an access token
//   - GET /health - liveness check (no auth)
//   - GET /health/ready - downstream readiness (no auth)
//
// Middleware on /scan, outermost first: request ID, logging,
// concurrency cap, body cap, auth gate, per-principal rate limit.
// The /token exchange skips the gate; it is how callers obtain a
// credential in the first place.
func SetupRoutes(
	cfg config.RuntimeConfigGetter,
	store *AuthStateStore,
	client *DownstreamClient,
	limiter *ConcurrencyLimiter,
	rateLimiter *RateLimiter,
	probe *health.Probe,
) http.Handler {
	mux := http.NewServeMux()

	maxBody := func() int64 { return cfg.Get().Server.MaxBodyBytes }

	var scanHandler http.Handler = NewScanHandler(client)
	scanHandler = RateLimitMiddleware(rateLimiter)(scanHandler)
	scanHandler = AuthMiddleware(store)(scanHandler)
	scanHandler = MaxBodyBytesMiddleware(maxBody)(scanHandler)
	scanHandler = ConcurrencyMiddleware(limiter)(scanHandler)
	scanHandler = LoggingMiddleware()(scanHandler)
	scanHandler = RequestIDMiddleware()(scanHandler)
	mux.Handle("POST /scan", scanHandler)

	// Registered unconditionally; the handler itself rejects when the
	// bearer strategy is disabled, which tracks hot reloads.
	var tokenHandler http.Handler = NewTokenHandler(store)
	tokenHandler = MaxBodyBytesMiddleware(maxBody)(tokenHandler)
	tokenHandler = LoggingMiddleware()(tokenHandler)
	tokenHandler = RequestIDMiddleware()(tokenHandler)
	mux.Handle("POST /token", tokenHandler)

	// Liveness: fixed contract, no auth.
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // Health check write error is non-critical
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Readiness: reflects the downstream circuit.
	mux.HandleFunc("GET /health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if probe != nil && !probe.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			//nolint:errcheck // Health check write error is non-critical
			w.Write([]byte(`{"status":"not_ready"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // Health check write error is non-critical
		w.Write([]byte(`{"status":"ready"}`))
	})

	return mux
}
