// Package httptransport is the thin HTTP layer over the gatekeeper service.
// Handlers decode, delegate, and encode; admission logic lives in the
// service.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gatekeeper/internal/audit"
	"gatekeeper/internal/gatekeeper"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/httputil"
	"gatekeeper/pkg/requestcontext"
)

// Service is the pipeline surface the transport depends on.
type Service interface {
	ProcessQuery(ctx context.Context, req gatekeeper.Request) gatekeeper.Decision
	CreateSession(ctx context.Context, userID, rawUserAgent, ip string) (string, error)
	InvalidateSession(ctx context.Context, sessionID, ip string) error
	DeleteUserData(ctx context.Context, userID, ip string) bool
	SecurityStatus(ctx context.Context) gatekeeper.Status
	SecurityReport(ctx context.Context, recentN int) (audit.Report, error)
}

// Handler wires gatekeeper endpoints to the pipeline service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs the HTTP handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type queryRequest struct {
	Query     string `json:"query"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
}

// HandleQuery handles POST /v1/query.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[queryRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.UserID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "user_id is required"))
		return
	}

	decision := h.service.ProcessQuery(ctx, gatekeeper.Request{
		Query:     req.Query,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		IP:        requestcontext.ClientIP(ctx),
	})
	httputil.WriteJSON(w, statusForDecision(decision), decision)
}

// statusForDecision maps the pipeline verdict onto a transport status. The
// body is always the full Decision; the status is a convenience for clients
// that branch before parsing.
func statusForDecision(d gatekeeper.Decision) int {
	switch d.SecurityLevel {
	case gatekeeper.LevelSecure:
		return http.StatusOK
	case gatekeeper.LevelBlocked:
		if d.Reason == gatekeeper.MsgRateLimited {
			return http.StatusTooManyRequests
		}
		return http.StatusForbidden
	default:
		if d.Reason == gatekeeper.ReasonInternalFailure {
			return http.StatusInternalServerError
		}
		return http.StatusBadGateway
	}
}

type createSessionRequest struct {
	UserID string `json:"user_id"`
}

// HandleCreateSession handles POST /v1/sessions.
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[createSessionRequest](w, r, h.logger)
	if !ok {
		return
	}

	sessionID, err := h.service.CreateSession(ctx, req.UserID,
		requestcontext.UserAgent(ctx), requestcontext.ClientIP(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "session created",
		"user_id", req.UserID,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"session_id": sessionID})
}

// HandleInvalidateSession handles DELETE /v1/sessions/{sessionID}.
func (h *Handler) HandleInvalidateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.service.InvalidateSession(ctx, sessionID, requestcontext.ClientIP(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteUserData handles DELETE /v1/users/{userID}/data.
func (h *Handler) HandleDeleteUserData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	deleted := h.service.DeleteUserData(ctx, userID, requestcontext.ClientIP(ctx))
	status := http.StatusOK
	if !deleted {
		status = http.StatusInternalServerError
	}
	httputil.WriteJSON(w, status, map[string]bool{"deleted": deleted})
}

// HandleSecurityStatus handles GET /v1/security/status.
func (h *Handler) HandleSecurityStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.SecurityStatus(r.Context()))
}

// HandleSecurityReport handles GET /v1/security/report.
func (h *Handler) HandleSecurityReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recentN := 10
	if raw := r.URL.Query().Get("recent"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "recent must be a non-negative integer"))
			return
		}
		recentN = n
	}

	report, err := h.service.SecurityReport(ctx, recentN)
	if err != nil {
		h.logger.ErrorContext(ctx, "security report failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
