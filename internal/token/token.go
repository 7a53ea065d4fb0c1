// Package token issues and verifies signed, time-limited bearer tokens
// for password-authenticated principals. Tokens are self-contained
// HS256 JWTs carrying the subject and expiry; there is no server-side
// session store. The signing key is process-wide configuration, loaded
// once at startup. Rotating it invalidates all outstanding tokens,
// which is acceptable because tokens are short-lived.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmid-labs/scangate/internal/identity"
)

// DefaultTTL is the token lifetime used when none is configured.
const DefaultTTL = 30 * time.Minute

// tokenIssuer is the iss claim stamped on every issued token.
const tokenIssuer = "scangate"

// Verification errors.
var (
	// ErrInvalidSignature is returned when the token is malformed or
	// its signature does not verify.
	ErrInvalidSignature = errors.New("token: invalid signature")

	// ErrExpired is returned when the token's expiry is in the past.
	ErrExpired = errors.New("token: expired")

	// ErrUnknownSubject is returned when the asserted subject does not
	// resolve to a known, active principal.
	ErrUnknownSubject = errors.New("token: unknown subject")
)

// Claims is the JWT payload for scangate access tokens.
// The subject carries the principal's username.
type Claims struct {
	jwt.RegisteredClaims
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source. Used by expiry boundary tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithVerifyCache attaches a cache of successful signature
// verifications. The cache only short-circuits the HMAC check; expiry
// and subject resolution still run on every Verify call.
func WithVerifyCache(cache *VerifyCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// Service issues and verifies access tokens.
// The zero value is not usable; construct with NewService.
type Service struct {
	secret   []byte
	ttl      time.Duration
	resolver identity.SubjectResolver
	cache    *VerifyCache
	now      func() time.Time
}

// NewService creates a token service signing with the given secret.
// The ttl is the default token lifetime; zero or negative selects
// DefaultTTL. The resolver is consulted on every Verify so that
// principal deactivation takes effect immediately.
func NewService(secret string, ttl time.Duration, resolver identity.SubjectResolver, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{
		secret:   []byte(secret),
		ttl:      ttl,
		resolver: resolver,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the default token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue produces a signed token asserting the principal as subject,
// expiring ttl from now. A zero or negative ttl selects the service
// default.
func (s *Service) Issue(principal identity.Principal, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.Username,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token: signing failed: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and expiry, then re-resolves the
// asserted subject against the live credential store. The returned
// principal comes from the store, never from the token body.
func (s *Service) Verify(tokenString string) (identity.Principal, error) {
	subject, expiresAt, err := s.verifySignature(tokenString)
	if err != nil {
		return identity.Principal{}, err
	}

	// Expiry is rechecked here because the signature check may have
	// been answered from cache.
	if !s.now().Before(expiresAt) {
		return identity.Principal{}, ErrExpired
	}

	principal, err := s.resolver.ResolveSubject(subject)
	if err != nil {
		return identity.Principal{}, fmt.Errorf("%w: %s", ErrUnknownSubject, subject)
	}
	return principal, nil
}

// verifySignature validates the token cryptographically and returns
// its subject and expiry, consulting the verify cache first.
func (s *Service) verifySignature(tokenString string) (string, time.Time, error) {
	if entry, ok := s.cache.Lookup(s.secret, tokenString); ok {
		return entry.Subject, entry.ExpiresAt, nil
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", time.Time{}, ErrExpired
		}
		return "", time.Time{}, ErrInvalidSignature
	}

	if claims.ExpiresAt == nil || claims.Subject == "" {
		return "", time.Time{}, ErrInvalidSignature
	}

	expiresAt := claims.ExpiresAt.Time
	s.cache.Store(s.secret, tokenString, claims.Subject, expiresAt, s.now())

	return claims.Subject, expiresAt, nil
}
