package proxy

import (
	"net/http"

	"github.com/rs/zerolog"
)

// TokenResponse is the successful /token exchange payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// TokenHandler exchanges username/password form credentials for an
// access token. Unknown usernames and wrong passwords produce the same
// rejection.
type TokenHandler struct {
	store *AuthStateStore
}

// NewTokenHandler creates the /token handler.
func NewTokenHandler(store *AuthStateStore) *TokenHandler {
	return &TokenHandler{store: store}
}

// ServeHTTP handles POST /token with form-encoded username and password.
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state := h.store.Current()
	if state.Passwords == nil || state.Tokens == nil {
		// Bearer auth was disabled by a config reload.
		WriteError(w, http.StatusNotFound, "not found")
		return
	}

	if err := r.ParseForm(); err != nil {
		if IsBodyTooLargeError(err) {
			WriteBodyTooLargeError(w)
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	principal, err := state.Passwords.Authenticate(username, password)
	if err != nil {
		zerolog.Ctx(ctx).Warn().
			Str("username", username).
			AnErr("cause", err).
			Msg("token exchange rejected")
		WriteError(w, http.StatusUnauthorized, DetailBadCredentials)
		return
	}

	tokenString, err := state.Tokens.Issue(principal, state.Tokens.TTL())
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("token issuance failed")
		WriteError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	zerolog.Ctx(ctx).Info().
		Str("principal", principal.Username).
		Msg("access token issued")

	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: tokenString,
		TokenType:   "bearer",
	})
}
