package handler

// RESPONSE HELPERS:
// These functions standardise how responses are written.
//
// RESPONSE SHAPES (part of the public contract):
//
//	200/201  → the contact (or array of contacts) as JSON
//	400/413  → {"message":"Bad Request","errors":["\"firstName\" is required", ...]}
//	404/409  → status only, empty body
//	500      → {"message":"Internal Server Error"}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/address-book/internal/apperror"
)

// ValidationErrorResponse is the body of every 400 response.
type ValidationErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// ErrorResponse is the body of a 500 response. It never carries the
// underlying error: that may contain SQL or connection details.
type ErrorResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be written before the body: once Encode writes,
// later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent, so all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeStatus sends a status code with an empty body.
func writeStatus(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}

// WriteValidationError sends the error envelope with the given status
// (400, or 413 for oversized bodies). The validation middleware uses it too,
// so both paths produce byte-identical responses.
func WriteValidationError(w http.ResponseWriter, status int, messages []string) {
	if messages == nil {
		messages = []string{}
	}
	writeJSON(w, status, ValidationErrorResponse{
		Message: http.StatusText(status),
		Errors:  messages,
	})
}

// writeError maps a domain error to the appropriate HTTP response.
//
// ERROR MAPPING:
// The service layer returns apperror values and never knows about HTTP.
// This is the one place they become status codes. errors.Is walks the whole
// chain, so wrapping with fmt.Errorf("...: %w", err) keeps the mapping
// intact.
func (h *ContactHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		WriteValidationError(w, http.StatusBadRequest, apperror.DetailsOf(err))
	case errors.Is(err, apperror.ErrNotFound):
		writeStatus(w, http.StatusNotFound)
	case errors.Is(err, apperror.ErrConflict):
		writeStatus(w, http.StatusConflict)
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Message: http.StatusText(http.StatusInternalServerError),
		})
	}
}
