package auth

import (
	"net/http"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// ChainAuthenticator tries multiple authenticators in order.
// The first authenticator to succeed is used. If all fail, the request
// is rejected as missing only when no strategy saw a credential at
// all; otherwise the rejection reason is the invalid-credential one.
type ChainAuthenticator struct {
	authenticators []Authenticator
}

// NewChainAuthenticator creates a chain of authenticators.
// Authenticators are tried in order; first success wins.
func NewChainAuthenticator(authenticators ...Authenticator) *ChainAuthenticator {
	return &ChainAuthenticator{
		authenticators: authenticators,
	}
}

// Validate tries each authenticator in order until one succeeds.
func (c *ChainAuthenticator) Validate(r *http.Request) Result {
	if len(c.authenticators) == 0 {
		return Result{
			Valid:   false,
			Missing: true,
			Type:    TypeNone,
			Reason:  ReasonMissing,
		}
	}

	// Fold over the chain: a valid result short-circuits; otherwise
	// keep the most informative failure (a presented-but-invalid
	// credential beats an absent one).
	result := lo.Reduce(c.authenticators, func(acc Result, authn Authenticator, _ int) Result {
		if acc.Valid {
			return acc
		}
		next := authn.Validate(r)
		if next.Valid {
			return next
		}
		if acc.Reason == "" || (acc.Missing && !next.Missing) {
			return next
		}
		return acc
	}, Result{Valid: false, Type: TypeNone})

	return result
}

// Type returns TypeNone since this is a meta-authenticator.
func (c *ChainAuthenticator) Type() Type {
	return TypeNone
}

// ValidateResult tries each authenticator and returns the result as
// mo.Result[Result], for Railway-Oriented composition.
func (c *ChainAuthenticator) ValidateResult(r *http.Request) mo.Result[Result] {
	result := c.Validate(r)
	if result.Valid {
		return mo.Ok(result)
	}
	return mo.Err[Result](NewValidationError(result.Type, result.Reason))
}
