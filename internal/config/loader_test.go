package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmid-labs/scangate/internal/identity"
)

const yamlConfig = `
server:
  listen: "127.0.0.1:8000"
auth:
  mode: both
  signing_secret: "unit-secret"
  token_ttl_minutes: 15
  keys:
    - key: "secret-key-123"
      username: user1
    - key: "secret-key-456"
      username: user2
  users:
    - username: user1
      password_hash: "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
downstream:
  url: "https://scan.example.com/v1/scan"
  timeout_ms: 10000
logging:
  level: debug
  format: json
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoad_YAML loads a YAML config file.
func TestLoad_YAML(t *testing.T) {
	t.Setenv(EnvTesting, "")
	path := writeConfig(t, "config.yaml", yamlConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8000", cfg.Server.Listen)
	assert.Equal(t, ModeBoth, cfg.Auth.Mode)
	assert.Equal(t, "unit-secret", cfg.Auth.SigningSecret)
	assert.Equal(t, 15, cfg.Auth.TokenTTLMinutes)
	assert.Len(t, cfg.Auth.Keys, 2)
	assert.Equal(t, "user1", cfg.Auth.Keys[0].Username)
	assert.Equal(t, "https://scan.example.com/v1/scan", cfg.Downstream.URL)
	assert.Equal(t, 10000, cfg.Downstream.TimeoutMS)
	require.NoError(t, cfg.Validate())
}

// TestLoad_TOML loads a TOML config file selected by extension.
func TestLoad_TOML(t *testing.T) {
	tomlConfig := `
[server]
listen = "127.0.0.1:9000"

[auth]
mode = "api_key"

[[auth.keys]]
key = "secret-key-123"
username = "user1"

[downstream]
url = "https://scan.example.com/v1/scan"
`
	path := writeConfig(t, "config.toml", tomlConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
	require.Len(t, cfg.Auth.Keys, 1)
	assert.Equal(t, "secret-key-123", cfg.Auth.Keys[0].Key)
}

// TestLoad_EnvExpansion verifies ${VAR} expansion inside config files.
func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("SCANGATE_TEST_KEY", "expanded-key-value")

	content := `
server:
  listen: ":8000"
auth:
  keys:
    - key: "${SCANGATE_TEST_KEY}"
      username: user1
downstream:
  url: "https://scan.example.com/v1/scan"
`
	path := writeConfig(t, "config.yaml", content)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Auth.Keys, 1)
	assert.Equal(t, "expanded-key-value", cfg.Auth.Keys[0].Key)
}

// TestLoad_MissingFile returns a wrapped error.
func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

// TestLoad_BadYAML returns a parse error.
func TestLoad_BadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", "server: [unclosed")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config YAML")
}

// TestLoadFromReader parses YAML from a reader.
func TestLoadFromReader(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(yamlConfig))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8000", cfg.Server.Listen)
}

// TestLoad_TestMode swaps in the fixed test credential set.
func TestLoad_TestMode(t *testing.T) {
	t.Setenv(EnvTesting, "true")
	t.Setenv(EnvKeyTestUser, "test-api-key")

	path := writeConfig(t, "config.yaml", yamlConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Auth.Keys, 1)
	assert.Equal(t, "test-api-key", cfg.Auth.Keys[0].Key)
	assert.Equal(t, "test_user", cfg.Auth.Keys[0].Username)
	assert.True(t, cfg.Auth.TestMode)

	// The test user's password hash verifies against the default
	// test password.
	require.Len(t, cfg.Auth.Users, 1)
	store := identity.NewPasswordStore([]identity.UserEntry{{
		Username:     cfg.Auth.Users[0].Username,
		PasswordHash: cfg.Auth.Users[0].PasswordHash,
		Active:       true,
	}})
	_, err = store.Authenticate("test_user", "test123")
	assert.NoError(t, err)
}

// TestFromEnv builds configuration from the documented env surface.
func TestFromEnv(t *testing.T) {
	t.Setenv(EnvDownstreamURL, "https://scan.example.com/v1/scan")
	t.Setenv(EnvKeyUser1, "env-key-1")
	t.Setenv(EnvTokenTTLMinutes, "45")
	t.Setenv(EnvTesting, "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://scan.example.com/v1/scan", cfg.Downstream.URL)
	assert.Equal(t, 45, cfg.Auth.TokenTTLMinutes)
	require.Len(t, cfg.Auth.Keys, 2)
	assert.Equal(t, "env-key-1", cfg.Auth.Keys[0].Key)
	assert.Equal(t, "user1", cfg.Auth.Keys[0].Username)
	assert.Equal(t, "user2", cfg.Auth.Keys[1].Username)
}

// TestFromEnv_TestMode enables both protocols so the swapped-in test
// credential works for key auth and the token exchange alike.
func TestFromEnv_TestMode(t *testing.T) {
	t.Setenv(EnvTesting, "true")
	t.Setenv(EnvDownstreamURL, "https://scan.example.com/v1/scan")
	t.Setenv(EnvSigningSecret, "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ModeBoth, cfg.Auth.GetEffectiveMode())
	assert.True(t, cfg.Auth.IsBearerEnabled())
	assert.NotEmpty(t, cfg.Auth.SigningSecret)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Auth.Users, 1)
	store := identity.NewPasswordStore([]identity.UserEntry{{
		Username:     cfg.Auth.Users[0].Username,
		PasswordHash: cfg.Auth.Users[0].PasswordHash,
		Active:       true,
	}})
	_, err = store.Authenticate("test_user", "test123")
	assert.NoError(t, err)
}

// TestFromEnv_BadTTL rejects a malformed TTL value.
func TestFromEnv_BadTTL(t *testing.T) {
	t.Setenv(EnvTokenTTLMinutes, "soon")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvTokenTTLMinutes)
}
