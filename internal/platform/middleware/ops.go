package middleware

import (
	"log/slog"
	"net/http"

	"gatekeeper/pkg/requestcontext"
	"gatekeeper/pkg/secrets"
)

// RequireOpsKey guards operations endpoints with a bcrypt-verified shared
// key. An empty hash disables the endpoints entirely rather than leaving
// them open.
func RequireOpsKey(keyHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			key := r.Header.Get("X-Ops-Key")
			if err := secrets.Verify(key, keyHash); err != nil {
				logger.WarnContext(r.Context(), "ops key rejected",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"ops key required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
