package proxy

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dmid-labs/scangate/internal/config"
	"github.com/dmid-labs/scangate/internal/identity"
)

const (
	testKeyUser1   = "secret-key-123"
	testKeyUser2   = "secret-key-456"
	testPassword   = "pass1"
	testSigningKey = "test-signing-secret"
)

var (
	testHashOnce sync.Once
	testHash     string
)

// testPasswordHash returns a bcrypt hash of testPassword, computed once
// per test binary since bcrypt is deliberately slow.
func testPasswordHash(t *testing.T) string {
	t.Helper()
	testHashOnce.Do(func() {
		h, err := identity.HashPassword(testPassword)
		if err != nil {
			t.Fatalf("hash test password: %v", err)
		}
		testHash = h
	})
	return testHash
}

// testConfig returns a both-modes config pointing at the given
// downstream URL.
func testConfig(t *testing.T, downstreamURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{Listen: ":0"},
		Auth: config.AuthConfig{
			Mode: config.ModeBoth,
			Keys: []config.KeyConfig{
				{Key: testKeyUser1, Username: "user1"},
				{Key: testKeyUser2, Username: "user2"},
			},
			Users: []config.UserConfig{
				{Username: "user1", PasswordHash: testPasswordHash(t)},
			},
			SigningSecret: testSigningKey,
		},
		Downstream: config.DownstreamConfig{URL: downstreamURL},
	}
}

// testRouter wires the full middleware stack around the given config.
func testRouter(cfg *config.Config) http.Handler {
	runtime := config.NewRuntime(cfg)
	store := NewAuthStateStore(runtime, nil)
	client := NewDownstreamClient(runtime, nil)
	return SetupRoutes(runtime, store, client,
		NewConcurrencyLimiter(int64(cfg.Server.MaxConcurrent)),
		NewRateLimiter(runtime), nil)
}

// mockDownstream returns a test server responding with the given
// status and body to every request.
func mockDownstream(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}
