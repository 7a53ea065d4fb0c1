// Package auth provides the authentication gate for scangate.
// It supports two interchangeable credential-extraction strategies:
// static API keys presented in the X-API-Key header, and bearer access
// tokens presented in the Authorization header. Strategies are selected
// by configuration and may be chained.
package auth

import (
	"net/http"

	"github.com/dmid-labs/scangate/internal/identity"
)

// Type represents the authentication method used.
type Type string

const (
	// TypeAPIKey represents X-API-Key header authentication.
	TypeAPIKey Type = "api_key"
	// TypeBearer represents Authorization: Bearer token authentication.
	TypeBearer Type = "bearer"
	// TypeNone represents no authentication or failed auth with no valid type.
	TypeNone Type = "none"
)

// Caller-facing rejection reasons. These are interface contract: the
// missing and invalid cases must stay distinguishable, and no failure
// may reveal which part of the check failed beyond that.
const (
	// ReasonMissing is returned when no credential was presented.
	ReasonMissing = "credential required"
	// ReasonInvalid is returned when a credential was presented but did
	// not resolve to an active principal.
	ReasonInvalid = "invalid credential"
)

// Result contains the outcome of an authentication attempt.
// A Result is always conclusive: either Valid with a concrete
// Principal, or invalid with a caller-facing Reason.
type Result struct {
	// Principal is the authenticated identity. Only set when Valid.
	Principal identity.Principal
	// Type indicates which authentication method was used (or attempted).
	Type Type
	// Reason is the caller-facing rejection reason if authentication failed.
	Reason string
	// Err is the underlying failure, for server-side logging only.
	// It must never be written to a response.
	Err error
	// Valid indicates whether authentication succeeded.
	Valid bool
	// Missing indicates no credential was presented at all.
	Missing bool
}

// Authenticator defines the interface for authentication strategies.
type Authenticator interface {
	// Validate extracts a credential from the request and resolves it.
	// Returns a Result with Valid=true if authentication succeeds.
	Validate(r *http.Request) Result

	// Type returns the authentication type this authenticator handles.
	Type() Type
}

// ValidationError wraps authentication failure details.
type ValidationError struct {
	Type    Type
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError with the given type and message.
func NewValidationError(authType Type, message string) *ValidationError {
	return &ValidationError{
		Type:    authType,
		Message: message,
	}
}
