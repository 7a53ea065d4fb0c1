package proxy

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/dmid-labs/scangate/internal/auth"
	"github.com/dmid-labs/scangate/internal/config"
	"github.com/dmid-labs/scangate/internal/identity"
)

// Context keys for gate results.
const (
	principalKey ctxKey = "principal"
	authTypeKey  ctxKey = "auth_type"
)

// withPrincipal stores the authenticated principal in the context.
func withPrincipal(ctx context.Context, p identity.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the authenticated principal from the
// context. The second return is false if the request never passed the
// auth gate.
func PrincipalFromContext(ctx context.Context) (identity.Principal, bool) {
	p, ok := ctx.Value(principalKey).(identity.Principal)
	return p, ok
}

// withAuthType stores the authentication strategy that admitted the
// request.
func withAuthType(ctx context.Context, t auth.Type) context.Context {
	return context.WithValue(ctx, authTypeKey, t)
}

// AuthTypeFromContext retrieves the authentication strategy that
// admitted the request. Returns auth.TypeNone if the request never
// passed the gate.
func AuthTypeFromContext(ctx context.Context) auth.Type {
	if t, ok := ctx.Value(authTypeKey).(auth.Type); ok {
		return t
	}
	return auth.TypeNone
}

// RequestIDMiddleware adds X-Request-ID header and logger with request ID to context.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requestID := request.Header.Get("X-Request-ID")
			ctx := AddRequestID(request.Context(), requestID)

			if requestID == "" {
				requestID = GetRequestID(ctx)
			}
			writer.Header().Set("X-Request-ID", requestID)

			request = request.WithContext(ctx)

			next.ServeHTTP(writer, request)
		})
	}
}

// LoggingMiddleware logs each request with method, path, status, and duration.
func LoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: writer,
				statusCode:     http.StatusOK,
			}

			requestID := GetRequestID(request.Context())
			shortID := requestID
			if len(shortID) > 8 {
				shortID = shortID[:8]
			}

			logRequestStart(request.Context(), request, shortID)

			next.ServeHTTP(wrapped, request)

			logRequestCompletion(request.Context(), request, wrapped, time.Since(start), shortID)
		})
	}
}

func withRequestFields(ctx context.Context, r *http.Request, shortID string) zerolog.Context {
	return zerolog.Ctx(ctx).With().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("req_id", shortID)
}

func logRequestStart(ctx context.Context, request *http.Request, shortID string) {
	logger := withRequestFields(ctx, request, shortID).Logger()
	logger.Info().Msgf("%s %s", request.Method, request.URL.Path)
}

func logRequestCompletion(
	ctx context.Context,
	request *http.Request,
	wrapped *responseWriter,
	duration time.Duration,
	shortID string,
) {
	durationStr := formatDuration(duration)
	completionMsg := statusSymbol(wrapped.statusCode) + " " +
		http.StatusText(wrapped.statusCode) + " (" + durationStr + ")"

	logCtx := withRequestFields(ctx, request, shortID).
		Int("status", wrapped.statusCode).
		Str("duration", durationStr)

	if principal, ok := PrincipalFromContext(request.Context()); ok {
		logCtx = logCtx.Str("principal", principal.Username)
	}

	logger := logCtx.Logger()
	switch {
	case wrapped.statusCode >= 500:
		logger.Error().Msg(completionMsg)
	case wrapped.statusCode >= 400:
		logger.Warn().Msg(completionMsg)
	default:
		logger.Info().Msg(completionMsg)
	}
}

func statusSymbol(statusCode int) string {
	switch {
	case statusCode >= 500:
		return "✗"
	case statusCode >= 400:
		return "⚠"
	default:
		return "✓"
	}
}

// formatDuration formats duration in a human-readable form with microsecond precision.
// Uses dynamic units so very fast requests show in µs while longer ones show in ms/s.
func formatDuration(duration time.Duration) string {
	if duration <= 0 {
		return "0s"
	}
	duration = duration.Round(time.Microsecond)
	switch {
	case duration < time.Millisecond:
		return fmt.Sprintf("%dµs", duration.Microseconds())
	case duration < time.Second:
		return fmt.Sprintf("%.2fms", float64(duration)/float64(time.Millisecond))
	case duration < time.Minute:
		return fmt.Sprintf("%.2fs", duration.Seconds())
	default:
		return duration.Truncate(time.Second).String()
	}
}

// AuthMiddleware enforces the credential gate using the live auth
// state. The authenticator chain is rebuilt when credential config
// changes. On success the principal is stored in the request context;
// on failure the request terminates with 401 and a short reason.
func AuthMiddleware(store *AuthStateStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			result := store.Current().Chain.Validate(request)

			if !result.Valid {
				zerolog.Ctx(request.Context()).Warn().
					Str("auth_type", string(result.Type)).
					AnErr("cause", result.Err).
					Str("reason", result.Reason).
					Msg("authentication failed")
				WriteError(writer, http.StatusUnauthorized, result.Reason)
				return
			}

			zerolog.Ctx(request.Context()).Debug().
				Str("auth_type", string(result.Type)).
				Str("principal", result.Principal.Username).
				Msg("authentication succeeded")

			ctx := withPrincipal(request.Context(), result.Principal)
			ctx = withAuthType(ctx, result.Type)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// ConcurrencyLimiter enforces a global maximum number of concurrent requests.
// It uses an atomic counter with a configurable limit that supports hot-reload.
// When the limit is reached, new requests receive 503 Service Unavailable.
type ConcurrencyLimiter struct {
	limit   atomic.Int64
	current atomic.Int64
}

// NewConcurrencyLimiter creates a new concurrency limiter with the given max limit.
// A limit of 0 or negative means unlimited.
func NewConcurrencyLimiter(maxLimit int64) *ConcurrencyLimiter {
	limiter := &ConcurrencyLimiter{}
	limiter.limit.Store(maxLimit)
	return limiter
}

// SetLimit updates the concurrency limit for hot-reload support.
// A limit of 0 or negative means unlimited.
func (l *ConcurrencyLimiter) SetLimit(maxLimit int64) {
	l.limit.Store(maxLimit)
}

// GetLimit returns the current configured limit.
func (l *ConcurrencyLimiter) GetLimit() int64 {
	return l.limit.Load()
}

// CurrentInFlight returns the current number of in-flight requests.
func (l *ConcurrencyLimiter) CurrentInFlight() int64 {
	return l.current.Load()
}

// TryAcquire attempts to acquire a slot for a request.
// Returns true if the request can proceed, false if the limit is reached.
// If limit is 0 or negative, always returns true (unlimited).
func (l *ConcurrencyLimiter) TryAcquire() bool {
	limit := l.limit.Load()
	if limit <= 0 {
		// Unlimited: still track the in-flight count
		l.current.Add(1)
		return true
	}

	for {
		current := l.current.Load()
		if current >= limit {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
		// CAS failed, retry
	}
}

// Release releases a slot after request completion.
// Must be called after a successful TryAcquire.
func (l *ConcurrencyLimiter) Release() {
	l.current.Add(-1)
}

// ConcurrencyMiddleware creates middleware that enforces a global concurrency limit.
// Uses the provided ConcurrencyLimiter which supports hot-reload via SetLimit.
func ConcurrencyMiddleware(limiter *ConcurrencyLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if !limiter.TryAcquire() {
				zerolog.Ctx(request.Context()).Warn().
					Int64("limit", limiter.GetLimit()).
					Int64("current", limiter.CurrentInFlight()).
					Msg("request rejected: concurrency limit reached")
				WriteError(writer, http.StatusServiceUnavailable,
					"server is at maximum capacity, please retry later")
				return
			}
			defer limiter.Release()
			next.ServeHTTP(writer, request)
		})
	}
}

// MaxBodyBytesMiddleware creates middleware that limits request body size.
// Uses http.MaxBytesReader to enforce the limit efficiently.
// The limitProvider is called per-request to support hot-reload.
func MaxBodyBytesMiddleware(limitProvider func() int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			limit := limitProvider()
			if limit > 0 && request.Body != nil {
				request.Body = http.MaxBytesReader(writer, request.Body, limit)
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// RateLimiter tracks per-principal token buckets. Bucket parameters
// follow live configuration; changing them discards existing buckets.
type RateLimiter struct {
	cfg      config.RuntimeConfigGetter
	limiters map[string]*rate.Limiter
	rpm      int
	burst    int
	mu       sync.Mutex
}

// NewRateLimiter creates a rate limiter backed by live configuration.
func NewRateLimiter(cfg config.RuntimeConfigGetter) *RateLimiter {
	return &RateLimiter{
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}
}

// reserve returns a reservation for one request by the given principal,
// or nil when rate limiting is disabled.
func (rl *RateLimiter) reserve(username string) *rate.Reservation {
	limits := rl.cfg.Get().Limits
	if !limits.IsEnabled() {
		return nil
	}

	rpm := limits.RPM
	burst := limits.GetBurst()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.rpm != rpm || rl.burst != burst {
		rl.limiters = make(map[string]*rate.Limiter)
		rl.rpm = rpm
		rl.burst = burst
	}

	lim, ok := rl.limiters[username]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
		rl.limiters[username] = lim
	}

	return lim.Reserve()
}

// RateLimitMiddleware creates middleware enforcing per-principal request
// rates. Must run after AuthMiddleware so the principal is known.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			principal, ok := PrincipalFromContext(request.Context())
			if !ok {
				next.ServeHTTP(writer, request)
				return
			}

			res := rl.reserve(principal.Username)
			if res == nil {
				next.ServeHTTP(writer, request)
				return
			}

			if delay := res.Delay(); delay > 0 {
				res.Cancel()
				zerolog.Ctx(request.Context()).Warn().
					Str("principal", principal.Username).
					Dur("retry_after", delay).
					Msg("request rejected: rate limit reached")
				WriteRateLimitError(writer, delay)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
