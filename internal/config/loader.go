package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dmid-labs/scangate/internal/identity"
)

// Environment variable names forming the documented configuration
// surface. They are honored both inside config files (via ${VAR}
// expansion) and by FromEnv when no config file is present.
const (
	// EnvTesting enables test mode, swapping in the fixed test credential.
	EnvTesting = "TESTING"
	// EnvDownstreamURL is the downstream AI scan endpoint.
	EnvDownstreamURL = "PUBLIC_AI_API_URL"
	// EnvKeyUser1 and EnvKeyUser2 are the static API keys of the two
	// default principals.
	EnvKeyUser1 = "API_KEY_USER1"
	EnvKeyUser2 = "API_KEY_USER2"
	// EnvKeyTestUser is the API key of the test-mode principal.
	EnvKeyTestUser = "API_KEY_TEST_USER"
	// EnvPasswordTestUser is the password of the test-mode principal.
	EnvPasswordTestUser = "API_PASSWORD_TEST_USER"
	// EnvSigningSecret is the token signing secret.
	EnvSigningSecret = "SCANGATE_SIGNING_SECRET"
	// EnvTokenTTLMinutes is the token lifetime in minutes.
	EnvTokenTTLMinutes = "SCANGATE_TOKEN_TTL_MINUTES"
	// EnvListen is the server listen address.
	EnvListen = "SCANGATE_LISTEN"
)

// Built-in defaults mirroring the documented surface.
const (
	defaultListen        = ":8000"
	defaultDownstreamURL = "https://api.example.com/scan"
	defaultTestUser      = "test_user"
	defaultTestKey       = "test-api-key"
	defaultTestPassword  = "test123"
	defaultTestSecret    = "test-signing-secret"
)

// Load reads and parses a configuration file from the given path.
// The format is selected by extension (.toml for TOML, anything else
// YAML). Environment variables in the format ${VAR_NAME} are expanded
// before parsing, and test mode is resolved.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(content))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.resolveTestMode(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromReader reads and parses YAML configuration from an io.Reader.
// Environment variables in the format ${VAR_NAME} are expanded before
// parsing.
func LoadFromReader(r io.Reader) (*Config, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := os.ExpandEnv(string(content))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := cfg.resolveTestMode(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnv builds a configuration purely from environment variables,
// used when no config file is present. The credential mapping matches
// the documented surface: two static keys (API_KEY_USER1/2) or, in
// test mode, the single fixed test credential.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Listen: envOr(EnvListen, defaultListen),
		},
		Downstream: DownstreamConfig{
			URL: envOr(EnvDownstreamURL, defaultDownstreamURL),
		},
		Auth: AuthConfig{
			Mode:          ModeAPIKey,
			SigningSecret: os.Getenv(EnvSigningSecret),
			Keys: []KeyConfig{
				{Key: envOr(EnvKeyUser1, "secret-key-123"), Username: "user1"},
				{Key: envOr(EnvKeyUser2, "secret-key-456"), Username: "user2"},
			},
		},
	}

	if ttl := os.Getenv(EnvTokenTTLMinutes); ttl != "" {
		minutes, err := strconv.Atoi(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvTokenTTLMinutes, err)
		}
		cfg.Auth.TokenTTLMinutes = minutes
	}

	if err := cfg.resolveTestMode(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveTestMode swaps in the fixed test credential set when test
// mode is requested via config or the TESTING environment variable.
// Both protocols are enabled so the test principal works with its API
// key and through the /token exchange; a fixed signing secret is
// defaulted when none is configured.
func (c *Config) resolveTestMode() error {
	if !c.Auth.TestMode && os.Getenv(EnvTesting) == "" {
		return nil
	}
	c.Auth.TestMode = true
	c.Auth.Mode = ModeBoth
	if c.Auth.SigningSecret == "" {
		c.Auth.SigningSecret = defaultTestSecret
	}

	c.Auth.Keys = []KeyConfig{
		{Key: envOr(EnvKeyTestUser, defaultTestKey), Username: defaultTestUser},
	}

	hash, err := identity.HashPassword(envOr(EnvPasswordTestUser, defaultTestPassword))
	if err != nil {
		return fmt.Errorf("failed to hash test credential: %w", err)
	}
	c.Auth.Users = []UserConfig{
		{Username: defaultTestUser, PasswordHash: hash},
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
