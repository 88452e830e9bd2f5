package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gatekeeper/internal/platform/middleware"
)

// RouterConfig carries the transport-level knobs.
type RouterConfig struct {
	// OpsKeyHash guards the operations endpoints. Empty disables them.
	OpsKeyHash string
	// RequestTimeout bounds every request except /metrics.
	RequestTimeout time.Duration
}

// NewRouter mounts all endpoints with the shared middleware chain.
func NewRouter(h *Handler, logger *slog.Logger, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", h.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Use(middleware.ContentTypeJSON)

		r.Post("/query", h.HandleQuery)
		r.Post("/sessions", h.HandleCreateSession)
		r.Delete("/sessions/{sessionID}", h.HandleInvalidateSession)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireOpsKey(cfg.OpsKeyHash, logger))
			r.Delete("/users/{userID}/data", h.HandleDeleteUserData)
			r.Get("/security/status", h.HandleSecurityStatus)
			r.Get("/security/report", h.HandleSecurityReport)
		})
	})

	return r
}
