package proxy

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/dmid-labs/scangate/internal/auth"
)

// ScanResponse is the caller-facing success envelope. Result carries
// the full downstream body unchanged.
type ScanResponse struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
	UserID string          `json:"user_id"`
}

// ScanHandler accepts scan requests, forwards them downstream, and
// maps the outcome to the caller-facing contract.
type ScanHandler struct {
	client *DownstreamClient
}

// NewScanHandler creates the /scan handler.
func NewScanHandler(client *DownstreamClient) *ScanHandler {
	return &ScanHandler{client: client}
}

// ServeHTTP handles POST /scan. The auth gate has already run; the
// principal is taken from the request context.
func (h *ScanHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		WriteError(w, http.StatusUnauthorized, auth.ReasonMissing)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		if IsBodyTooLargeError(err) {
			WriteBodyTooLargeError(w)
			return
		}
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to read scan request body")
		WriteError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	// Bearer callers use the stricter request shape.
	requireLanguage := AuthTypeFromContext(ctx) == auth.TypeBearer
	if detail := validateScanBody(body, requireLanguage); detail != "" {
		WriteError(w, http.StatusBadRequest, detail)
		return
	}

	// Redacted summary only; the full payload may be megabytes and is
	// never logged.
	zerolog.Ctx(ctx).Info().
		Str("principal", principal.Username).
		RawJSON("scan_request", []byte(ScanLogPreview(body))).
		Msg("forwarding scan request")

	resp, err := h.client.Scan(ctx, body)
	if err != nil {
		if !errors.Is(err, ErrDownstreamUnavailable) {
			zerolog.Ctx(ctx).Error().Err(err).Msg("scan request could not be built")
		}
		WriteError(w, http.StatusInternalServerError, DetailUnavailable)
		return
	}

	if !resp.IsSuccess() {
		zerolog.Ctx(ctx).Warn().
			Int("downstream_status", resp.StatusCode).
			Msg("downstream returned error status")
		WriteError(w, resp.StatusCode, DetailDownstreamErr)
		return
	}

	// Either the full downstream body comes back inside result, or no
	// result at all.
	if !json.Valid(resp.Body) {
		zerolog.Ctx(ctx).Error().
			Int("downstream_status", resp.StatusCode).
			Msg("downstream returned unparseable success body")
		WriteError(w, http.StatusInternalServerError, DetailUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, ScanResponse{
		Status: "success",
		Result: json.RawMessage(resp.Body),
		UserID: principal.Username,
	})
}

// validateScanBody checks the inbound scan request shape. Returns a
// caller-facing detail string, or empty if the body is acceptable.
// Key callers may send any JSON object containing code; bearer callers
// must send string code and language fields.
func validateScanBody(body []byte, requireLanguage bool) string {
	if !gjson.ValidBytes(body) {
		return "request body must be a JSON object"
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return "request body must be a JSON object"
	}

	code := parsed.Get("code")
	if !code.Exists() {
		return "code is required"
	}

	if requireLanguage {
		if code.Type != gjson.String {
			return "code must be a string"
		}
		lang := parsed.Get("language")
		if !lang.Exists() || lang.Type != gjson.String {
			return "language is required"
		}
	}

	return ""
}
