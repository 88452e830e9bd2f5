// Package httputil centralizes JSON encoding and domain error translation
// for HTTP handlers.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "gatekeeper/pkg/domain-errors"
)

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into a JSON error envelope. Internal
// errors omit the description so infrastructure detail never reaches the
// caller.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		if de, ok := err.(dErrors.DomainError); ok {
			body["error_description"] = de.Message
		}
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

// Decode parses the JSON request body into T, answering 400 itself when the
// body is malformed. The second return is false when the handler should
// stop.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if logger != nil {
			logger.WarnContext(r.Context(), "malformed request body", "error", err, "path", r.URL.Path)
		}
		WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed JSON body"))
		var zero T
		return zero, false
	}
	return v, true
}
