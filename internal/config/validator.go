package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Valid auth modes.
var validAuthModes = map[string]bool{
	"":         true, // Empty defaults to api_key
	ModeAPIKey: true,
	ModeBearer: true,
	ModeBoth:   true,
}

// Valid logging levels.
var validLogLevels = map[string]bool{
	"":      true, // Empty defaults to info
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Valid logging formats.
var validLogFormats = map[string]bool{
	"":        true, // Empty defaults to json
	"json":    true,
	"console": true,
	"pretty":  true,
}

// Validate checks the configuration for errors.
// It validates all required fields, valid values, and cross-field
// constraints. Returns a ValidationError containing all errors found,
// or nil if valid.
func (c *Config) Validate() error {
	errs := &ValidationError{}

	validateServer(c, errs)
	validateAuth(c, errs)
	validateDownstream(c, errs)
	validateLimits(c, errs)
	validateLogging(c, errs)

	return errs.ToError()
}

// validateServer validates the server configuration section.
func validateServer(c *Config, errs *ValidationError) {
	if c.Server.Listen == "" {
		errs.Add("server.listen is required")
	} else {
		validateListenAddress(c.Server.Listen, errs)
	}

	if c.Server.MaxConcurrent < 0 {
		errs.Add("server.max_concurrent must be >= 0")
	}
	if c.Server.MaxBodyBytes < 0 {
		errs.Add("server.max_body_bytes must be >= 0")
	}
}

// validateListenAddress validates a listen address in host:port format.
func validateListenAddress(addr string, errs *ValidationError) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		errs.Addf("server.listen must be in host:port format (got %q)", addr)
		return
	}

	// Host can be empty (listen on all interfaces) or a valid IP/hostname
	if host != "" {
		if ip := net.ParseIP(host); ip == nil {
			if strings.ContainsAny(host, " \t\n") {
				errs.Add("server.listen host contains invalid characters")
			}
		}
	}

	if port == "" {
		errs.Add("server.listen port is required")
	}
}

// validateAuth validates the credential configuration section.
func validateAuth(c *Config, errs *ValidationError) {
	a := &c.Auth

	if !validAuthModes[a.Mode] {
		errs.Addf("auth.mode is invalid (got %q, valid: api_key, bearer, both)", a.Mode)
		return
	}

	if a.IsAPIKeyEnabled() && len(a.Keys) == 0 {
		errs.Add("auth.keys is required when api_key authentication is enabled")
	}

	seenKeys := make(map[string]bool)
	for i, key := range a.Keys {
		if key.Key == "" {
			errs.Addf("auth.keys[%d].key is required", i)
		} else if seenKeys[key.Key] {
			errs.Addf("auth.keys[%d] duplicates an earlier key", i)
		} else {
			seenKeys[key.Key] = true
		}
		if key.Username == "" {
			errs.Addf("auth.keys[%d].username is required", i)
		}
	}

	if a.IsBearerEnabled() {
		if a.SigningSecret == "" {
			errs.Add("auth.signing_secret is required when bearer authentication is enabled")
		}
		if len(a.Users) == 0 {
			errs.Add("auth.users is required when bearer authentication is enabled")
		}
	}

	seenUsers := make(map[string]bool)
	for i, user := range a.Users {
		prefix := func(field string) string {
			if user.Username != "" {
				return fmt.Sprintf("auth.users[%s].%s", user.Username, field)
			}
			return fmt.Sprintf("auth.users[%d].%s", i, field)
		}

		if user.Username == "" {
			errs.Addf("auth.users[%d].username is required", i)
		} else if seenUsers[user.Username] {
			errs.Addf("duplicate auth user: %s", user.Username)
		} else {
			seenUsers[user.Username] = true
		}

		if user.PasswordHash == "" {
			errs.Addf("%s is required", prefix("password_hash"))
		} else if !strings.HasPrefix(user.PasswordHash, "$2") {
			errs.Addf("%s must be a bcrypt hash", prefix("password_hash"))
		}
	}

	if a.TokenTTLMinutes < 0 {
		errs.Add("auth.token_ttl_minutes must be >= 0")
	}
}

// validateDownstream validates the downstream endpoint section.
func validateDownstream(c *Config, errs *ValidationError) {
	if c.Downstream.URL == "" {
		errs.Add("downstream.url is required")
		return
	}

	u, err := url.Parse(c.Downstream.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs.Addf("downstream.url must be an absolute http(s) URL (got %q)", c.Downstream.URL)
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		errs.Addf("downstream.url scheme must be http or https (got %q)", u.Scheme)
	}

	if c.Downstream.TimeoutMS < 0 {
		errs.Add("downstream.timeout_ms must be >= 0")
	}
}

// validateLimits validates the rate limit section.
func validateLimits(c *Config, errs *ValidationError) {
	if c.Limits.RPM < 0 {
		errs.Add("limits.rpm must be >= 0")
	}
	if c.Limits.Burst < 0 {
		errs.Add("limits.burst must be >= 0")
	}
}

// validateLogging validates the logging configuration section.
func validateLogging(c *Config, errs *ValidationError) {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs.Addf("logging.level is invalid (got %q, valid: debug, info, warn, error)", c.Logging.Level)
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		errs.Addf("logging.format is invalid (got %q, valid: json, console, pretty)", c.Logging.Format)
	}
}
