package proxy

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"

	"github.com/dmid-labs/scangate/internal/auth"
	"github.com/dmid-labs/scangate/internal/config"
	"github.com/dmid-labs/scangate/internal/identity"
	"github.com/dmid-labs/scangate/internal/token"
)

// AuthState bundles everything built from the credential configuration:
// the authenticator chain for the gate, and the password store and
// token service behind the /token exchange. A state is immutable; hot
// reload swaps in a whole new one.
type AuthState struct {
	// Chain validates inbound request credentials.
	Chain auth.Authenticator
	// Passwords checks /token exchange credentials. Nil unless the
	// bearer strategy is enabled.
	Passwords identity.PasswordAuthenticator
	// Tokens issues and verifies access tokens. Nil unless the bearer
	// strategy is enabled.
	Tokens *token.Service
}

type authStateCache struct {
	state       *AuthState
	fingerprint string
}

// AuthStateStore derives the current AuthState from live configuration.
// It rebuilds the state only when credential-related config values
// change, detected by fingerprint rather than config pointer equality.
type AuthStateStore struct {
	cfg         config.RuntimeConfigGetter
	verifyCache *token.VerifyCache
	cache       atomic.Value
	mu          sync.Mutex
}

// NewAuthStateStore creates a store backed by live configuration.
// The verify cache is optional and shared across rebuilds.
func NewAuthStateStore(cfg config.RuntimeConfigGetter, verifyCache *token.VerifyCache) *AuthStateStore {
	return &AuthStateStore{
		cfg:         cfg,
		verifyCache: verifyCache,
	}
}

// Current returns the AuthState for the configuration as of now.
func (s *AuthStateStore) Current() *AuthState {
	authCfg := s.cfg.Get().Auth
	fp := authFingerprint(&authCfg)

	// Fast path: check cache without lock.
	if c := s.cached(fp); c != nil {
		return c.state
	}

	// Slow path: acquire lock and rebuild.
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring lock.
	if c := s.cached(fp); c != nil {
		return c.state
	}

	state := buildAuthState(&authCfg, s.verifyCache)
	s.cache.Store(&authStateCache{state: state, fingerprint: fp})
	return state
}

func (s *AuthStateStore) cached(fingerprint string) *authStateCache {
	if v := s.cache.Load(); v != nil {
		if c, ok := v.(*authStateCache); ok && c.fingerprint == fingerprint {
			return c
		}
	}
	return nil
}

// buildAuthState constructs identity stores, token service, and the
// authenticator chain from credential configuration.
func buildAuthState(authCfg *config.AuthConfig, verifyCache *token.VerifyCache) *AuthState {
	state := &AuthState{}

	var authenticators []auth.Authenticator

	// Bearer first: an Authorization header is more specific than a
	// static key header.
	if authCfg.IsBearerEnabled() {
		users := lo.Map(authCfg.Users, func(u config.UserConfig, _ int) identity.UserEntry {
			return identity.UserEntry{
				Username:     u.Username,
				PasswordHash: u.PasswordHash,
				Active:       !u.Disabled,
			}
		})
		store := identity.NewPasswordStore(users)

		ttl := authCfg.GetTokenTTL().OrElse(token.DefaultTTL)
		var opts []token.Option
		if verifyCache != nil {
			opts = append(opts, token.WithVerifyCache(verifyCache))
		}
		svc := token.NewService(authCfg.SigningSecret, ttl, store, opts...)

		state.Passwords = store
		state.Tokens = svc
		authenticators = append(authenticators, auth.NewBearerAuthenticator(svc))
	}

	if authCfg.IsAPIKeyEnabled() {
		keys := lo.Map(authCfg.Keys, func(k config.KeyConfig, _ int) identity.KeyEntry {
			return identity.KeyEntry{
				Key:      k.Key,
				Username: k.Username,
				Active:   !k.Disabled,
			}
		})
		authenticators = append(authenticators, auth.NewAPIKeyAuthenticator(identity.NewKeyring(keys)))
	}

	switch len(authenticators) {
	case 1:
		state.Chain = authenticators[0]
	default:
		state.Chain = auth.NewChainAuthenticator(authenticators...)
	}

	return state
}

// authFingerprint computes a small fingerprint of credential-related
// config fields, used for cache invalidation across hot reloads.
// Length-prefixed format avoids delimiter collision in secrets.
func authFingerprint(a *config.AuthConfig) string {
	buf := make([]byte, 0, 64)

	appendField := func(s string) {
		buf = strconv.AppendInt(buf, int64(len(s)), 10)
		buf = append(buf, ':')
		buf = append(buf, s...)
		buf = append(buf, '|')
	}
	appendBool := func(b bool) {
		if b {
			buf = append(buf, '1')
		} else {
			buf = append(buf, '0')
		}
		buf = append(buf, '|')
	}

	appendField(a.GetEffectiveMode())
	appendField(a.SigningSecret)
	buf = strconv.AppendInt(buf, int64(a.TokenTTLMinutes), 10)
	buf = append(buf, '|')

	for _, k := range a.Keys {
		appendField(k.Key)
		appendField(k.Username)
		appendBool(k.Disabled)
	}
	for _, u := range a.Users {
		appendField(u.Username)
		appendField(u.PasswordHash)
		appendBool(u.Disabled)
	}

	return string(buf)
}
