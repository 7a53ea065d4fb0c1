package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmid-labs/scangate/internal/identity"
)

// TokenVerifier verifies a bearer token and resolves its subject.
type TokenVerifier interface {
	Verify(tokenString string) (identity.Principal, error)
}

// BearerAuthenticator validates Authorization: Bearer token
// authentication. Tokens are verified by the injected token service,
// which re-resolves the subject against the live credential store.
type BearerAuthenticator struct {
	tokens TokenVerifier
}

// NewBearerAuthenticator creates a new Bearer token authenticator.
func NewBearerAuthenticator(tokens TokenVerifier) *BearerAuthenticator {
	return &BearerAuthenticator{tokens: tokens}
}

// Validate checks the Authorization header for a valid Bearer token.
func (a *BearerAuthenticator) Validate(r *http.Request) Result {
	authHeader := r.Header.Get("Authorization")

	if authHeader == "" {
		return Result{
			Valid:   false,
			Missing: true,
			Type:    TypeBearer,
			Reason:  ReasonMissing,
			Err:     errors.New("missing authorization header"),
		}
	}

	// Check for "Bearer " prefix (case insensitive)
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:6], "bearer") {
		return Result{
			Valid:  false,
			Type:   TypeBearer,
			Reason: ReasonInvalid,
			Err:    errors.New("invalid authorization scheme"),
		}
	}

	tokenString := strings.TrimSpace(authHeader[7:])
	if tokenString == "" {
		return Result{
			Valid:  false,
			Type:   TypeBearer,
			Reason: ReasonInvalid,
			Err:    errors.New("empty bearer token"),
		}
	}

	principal, err := a.tokens.Verify(tokenString)
	if err != nil {
		// Forged, expired, and unknown-subject tokens all collapse to
		// the same caller-facing reason. The specific failure is kept
		// in Err for server-side logs.
		return Result{
			Valid:  false,
			Type:   TypeBearer,
			Reason: ReasonInvalid,
			Err:    err,
		}
	}

	return Result{
		Valid:     true,
		Type:      TypeBearer,
		Principal: principal,
	}
}

// Type returns the authentication type (bearer).
func (a *BearerAuthenticator) Type() Type {
	return TypeBearer
}
