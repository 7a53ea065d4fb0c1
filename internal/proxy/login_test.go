package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmid-labs/scangate/internal/config"
)

func doTokenExchange(t *testing.T, router http.Handler, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestToken_Exchange(t *testing.T) {
	t.Parallel()

	downstream := mockDownstream(t, http.StatusOK, `{"result":"x"}`)
	router := testRouter(testConfig(t, downstream.URL))

	rec := doTokenExchange(t, router, "user1", testPassword)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
}

func TestToken_BadCredentials(t *testing.T) {
	t.Parallel()

	downstream := mockDownstream(t, http.StatusOK, `{"result":"x"}`)
	router := testRouter(testConfig(t, downstream.URL))

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "unknown user", username: "nobody", password: testPassword},
		{name: "wrong password", username: "user1", password: "wrong"},
		{name: "empty credentials", username: "", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := doTokenExchange(t, router, tt.username, tt.password)

			require.Equal(t, http.StatusUnauthorized, rec.Code)

			// Unknown user and wrong password are indistinguishable.
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "incorrect username or password", resp.Detail)
		})
	}
}

func TestToken_DisabledWhenAPIKeyOnly(t *testing.T) {
	t.Parallel()

	downstream := mockDownstream(t, http.StatusOK, `{"result":"x"}`)
	cfg := testConfig(t, downstream.URL)
	cfg.Auth.Mode = config.ModeAPIKey
	router := testRouter(cfg)

	rec := doTokenExchange(t, router, "user1", testPassword)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestToken_FullBearerFlow exchanges credentials for a token and uses
// it on /scan.
func TestToken_FullBearerFlow(t *testing.T) {
	t.Parallel()

	downstream := mockDownstream(t, http.StatusOK, `{"result":"x"}`)
	router := testRouter(testConfig(t, downstream.URL))

	rec := doTokenExchange(t, router, "user1", testPassword)
	require.Equal(t, http.StatusOK, rec.Code)

	var tokenResp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokenResp))

	scanRec := doScan(t, router, `{"code":"x","language":"go"}`, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tokenResp.AccessToken)
	})

	require.Equal(t, http.StatusOK, scanRec.Code)

	var scanResp ScanResponse
	require.NoError(t, json.Unmarshal(scanRec.Body.Bytes(), &scanResp))
	assert.Equal(t, "user1", scanResp.UserID)
}

// TestToken_BearerScanRequiresLanguage: bearer callers use the strict
// request shape.
func TestToken_BearerScanRequiresLanguage(t *testing.T) {
	t.Parallel()

	downstream := mockDownstream(t, http.StatusOK, `{"result":"x"}`)
	router := testRouter(testConfig(t, downstream.URL))

	rec := doTokenExchange(t, router, "user1", testPassword)
	require.Equal(t, http.StatusOK, rec.Code)

	var tokenResp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokenResp))

	scanRec := doScan(t, router, `{"code":"x"}`, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tokenResp.AccessToken)
	})

	assert.Equal(t, http.StatusBadRequest, scanRec.Code)
}
