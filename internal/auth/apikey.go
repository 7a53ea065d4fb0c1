package auth

import (
	"errors"
	"net/http"

	"github.com/dmid-labs/scangate/internal/identity"
)

// HeaderName is the request header carrying static API keys.
const HeaderName = "X-API-Key"

// APIKeyAuthenticator validates X-API-Key header authentication
// against an injected keyring. Key comparison is constant-time; see
// identity.Keyring.
type APIKeyAuthenticator struct {
	keys identity.KeyResolver
}

// NewAPIKeyAuthenticator creates a new API key authenticator backed by
// the given keyring.
func NewAPIKeyAuthenticator(keys identity.KeyResolver) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{keys: keys}
}

// Validate checks the X-API-Key header and resolves it to a principal.
func (a *APIKeyAuthenticator) Validate(r *http.Request) Result {
	providedKey := r.Header.Get(HeaderName)

	if providedKey == "" {
		return Result{
			Valid:   false,
			Missing: true,
			Type:    TypeAPIKey,
			Reason:  ReasonMissing,
			Err:     errors.New("missing " + HeaderName + " header"),
		}
	}

	principal, err := a.keys.ResolveKey(providedKey)
	if err != nil {
		// Unknown key and deactivated principal are indistinguishable
		// to the caller.
		return Result{
			Valid:  false,
			Type:   TypeAPIKey,
			Reason: ReasonInvalid,
			Err:    err,
		}
	}

	return Result{
		Valid:     true,
		Type:      TypeAPIKey,
		Principal: principal,
		// The key itself is never carried in the result.
	}
}

// Type returns the authentication type (api_key).
func (a *APIKeyAuthenticator) Type() Type {
	return TypeAPIKey
}
