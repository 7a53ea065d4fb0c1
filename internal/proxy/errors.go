// Package proxy implements the HTTP gateway server for scangate.
package proxy

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Caller-facing error details. The downstream outcome mapping and the
// credential exchange both commit to these exact strings.
const (
	DetailUnavailable    = "AI service unavailable"
	DetailDownstreamErr  = "AI service error"
	DetailBadCredentials = "incorrect username or password"
)

// ErrorResponse is the JSON error envelope returned to callers.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// WriteError writes a JSON error response with the given status and detail.
func WriteError(w http.ResponseWriter, statusCode int, detail string) {
	writeJSON(w, statusCode, ErrorResponse{Detail: detail})
}

// IsBodyTooLargeError checks if an error is from http.MaxBytesReader.
func IsBodyTooLargeError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

// WriteBodyTooLargeError writes a 413 Request Entity Too Large response.
func WriteBodyTooLargeError(w http.ResponseWriter) {
	WriteError(w, http.StatusRequestEntityTooLarge,
		"request body exceeds the maximum allowed size")
}

// WriteRateLimitError writes a 429 Too Many Requests response.
// The retryAfter parameter specifies when capacity will be available.
func WriteRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	// Retry-After header (RFC 6585)
	seconds := int(retryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))

	WriteError(w, http.StatusTooManyRequests, "rate limit exceeded, please retry later")
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
