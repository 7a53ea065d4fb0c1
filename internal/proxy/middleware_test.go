package proxy

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmid-labs/scangate/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	t.Parallel()

	var captured string
	handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, captured)
	assert.Equal(t, captured, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDMiddleware_PreservesInboundID(t *testing.T) {
	t.Parallel()

	var captured string
	handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "inbound-id-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "inbound-id-42", captured)
	assert.Equal(t, "inbound-id-42", rec.Header().Get("X-Request-ID"))
}

func TestConcurrencyLimiter_TryAcquire(t *testing.T) {
	t.Parallel()

	limiter := NewConcurrencyLimiter(2)

	require.True(t, limiter.TryAcquire())
	require.True(t, limiter.TryAcquire())
	assert.False(t, limiter.TryAcquire())

	limiter.Release()
	assert.True(t, limiter.TryAcquire())
}

func TestConcurrencyLimiter_Unlimited(t *testing.T) {
	t.Parallel()

	limiter := NewConcurrencyLimiter(0)

	for range 100 {
		require.True(t, limiter.TryAcquire())
	}
	assert.Equal(t, int64(100), limiter.CurrentInFlight())
}

func TestConcurrencyMiddleware_RejectsAtCapacity(t *testing.T) {
	t.Parallel()

	limiter := NewConcurrencyLimiter(1)

	entered := make(chan struct{})
	release := make(chan struct{})
	slow := ConcurrencyMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusOK)
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec := httptest.NewRecorder()
		slow.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scan", nil))
	}()

	<-entered

	rec := httptest.NewRecorder()
	slow.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scan", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	close(release)
	wg.Wait()

	// Slot released after completion.
	rec = httptest.NewRecorder()
	okOnly := ConcurrencyMiddleware(limiter)(okHandler())
	okOnly.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scan", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMaxBodyBytesMiddleware(t *testing.T) {
	t.Parallel()

	downstream := mockDownstream(t, http.StatusOK, `{"result":"x"}`)
	cfg := testConfig(t, downstream.URL)
	cfg.Server.MaxBodyBytes = 64
	router := testRouter(cfg)

	small := doScan(t, router, `{"code":"x"}`, withAPIKey(testKeyUser1))
	assert.Equal(t, http.StatusOK, small.Code)

	big := doScan(t, router, `{"code":"`+strings.Repeat("a", 200)+`"}`, withAPIKey(testKeyUser1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, big.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	downstream := mockDownstream(t, http.StatusOK, `{"result":"x"}`)
	cfg := testConfig(t, downstream.URL)
	cfg.Limits = config.LimitsConfig{RPM: 1, Burst: 2}
	router := testRouter(cfg)

	// Burst allows the first two, the third is limited.
	for range 2 {
		rec := doScan(t, router, `{"code":"x"}`, withAPIKey(testKeyUser1))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doScan(t, router, `{"code":"x"}`, withAPIKey(testKeyUser1))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Distinct principals have independent buckets.
	other := doScan(t, router, `{"code":"x"}`, withAPIKey(testKeyUser2))
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	t.Parallel()

	downstream := mockDownstream(t, http.StatusOK, `{"result":"x"}`)
	router := testRouter(testConfig(t, downstream.URL))

	for range 20 {
		rec := doScan(t, router, `{"code":"x"}`, withAPIKey(testKeyUser1))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestAuthMiddleware_PrincipalInContext(t *testing.T) {
	t.Parallel()

	downstream := mockDownstream(t, http.StatusOK, `{"result":"x"}`)
	cfg := testConfig(t, downstream.URL)
	runtime := config.NewRuntime(cfg)
	store := NewAuthStateStore(runtime, nil)

	var gotUser string
	var sawPrincipal atomic.Bool
	handler := AuthMiddleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := PrincipalFromContext(r.Context()); ok {
			gotUser = p.Username
			sawPrincipal.Store(true)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/scan", nil)
	req.Header.Set("X-API-Key", testKeyUser2)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, sawPrincipal.Load())
	assert.Equal(t, "user2", gotUser)
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   time.Duration
		want string
	}{
		{name: "zero", in: 0, want: "0s"},
		{name: "micros", in: 250 * time.Microsecond, want: "250µs"},
		{name: "millis", in: 12500 * time.Microsecond, want: "12.50ms"},
		{name: "seconds", in: 1500 * time.Millisecond, want: "1.50s"},
		{name: "minutes", in: 90 * time.Second, want: "1m30s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, formatDuration(tt.in))
		})
	}
}
