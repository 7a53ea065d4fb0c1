// Package identity resolves presented credentials to principals.
// It provides two credential stores: a static keyring mapping API keys
// to usernames, and a password store backed by bcrypt hashes. Both are
// built once at startup from configuration and are read-only afterwards.
package identity

import "errors"

// Credential resolution errors. All of them surface to callers as the
// same "invalid credential" rejection; the distinction exists only for
// server-side logging.
var (
	// ErrInvalidCredential is returned when a credential does not
	// resolve to any principal (unknown key, unknown user, or wrong
	// password).
	ErrInvalidCredential = errors.New("identity: invalid credential")

	// ErrInactivePrincipal is returned when a credential resolves to a
	// principal that has been deactivated.
	ErrInactivePrincipal = errors.New("identity: principal inactive")
)

// Principal is the authenticated identity associated with a request.
// Principals are created transiently per request and never persisted.
type Principal struct {
	// Username is the unique identifier of the principal.
	Username string
	// Active indicates whether the principal may authenticate.
	// Inactive principals are rejected even with valid credentials.
	Active bool
}

// KeyResolver resolves a static API key to a principal.
type KeyResolver interface {
	// ResolveKey returns the principal owning the given key, or
	// ErrInvalidCredential / ErrInactivePrincipal.
	ResolveKey(key string) (Principal, error)
}

// PasswordAuthenticator checks a username/password pair.
type PasswordAuthenticator interface {
	// Authenticate returns the principal on success. Unknown usernames
	// and wrong passwords are indistinguishable failures.
	Authenticate(username, password string) (Principal, error)
}

// SubjectResolver resolves a token subject to a current principal.
// Token verification re-resolves the subject against live store state
// rather than trusting the token body, so deactivation takes effect
// immediately.
type SubjectResolver interface {
	// ResolveSubject returns the principal for the given username, or
	// ErrInvalidCredential / ErrInactivePrincipal.
	ResolveSubject(username string) (Principal, error)
}
