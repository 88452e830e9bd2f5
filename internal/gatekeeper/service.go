package gatekeeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gatekeeper/internal/audit"
	"gatekeeper/internal/executor"
	"gatekeeper/internal/policy"
	"gatekeeper/internal/privacy"
	ratelimit "gatekeeper/internal/ratelimit/service"
	"gatekeeper/internal/session"
	"gatekeeper/internal/validator"
	dErrors "gatekeeper/pkg/domain-errors"
)

// User-facing messages. Internal detail never leaks through these; blocked
// and errored requests get a fixed phrase, not the underlying error text.
const (
	MsgRateLimited     = "rate limit exceeded"
	MsgSessionExpired  = "session expired"
	MsgUnsafeInput     = "unsafe content, please rephrase"
	MsgOutOfScope      = "out of scope for this assistant"
	MsgExecutorFailed  = "I apologize, but I could not process your request right now. Please try again later."
	MsgInternalFailure = "Something went wrong while handling your request. Please try again."

	// ReasonInternalFailure marks decisions produced by the panic boundary
	// rather than a failing executor.
	ReasonInternalFailure = "internal failure"
)

// Consent metadata recorded on a user's first admitted query.
var consentDataTypes = []string{"queries", "session_metadata"}

const consentPurpose = "query processing"

const defaultExecutorTimeout = 30 * time.Second

// Service runs the ordered admission pipeline: rate, session, input,
// policy, then delegation and post-processing. One instance serves all
// requests concurrently; every mutable resource it touches lives behind a
// component that manages its own locking.
type Service struct {
	limiter     *ratelimit.Limiter
	sessions    *session.Registry
	validator   *validator.Validator
	policy      *policy.Gate
	privacy     *privacy.Ledger
	recorder    *audit.Recorder
	executor    executor.Executor
	execTimeout time.Duration
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer
}

// Config carries the Service's collaborators. All components are required;
// Metrics is optional.
type Config struct {
	Limiter         *ratelimit.Limiter
	Sessions        *session.Registry
	Validator       *validator.Validator
	Policy          *policy.Gate
	Privacy         *privacy.Ledger
	Recorder        *audit.Recorder
	Executor        executor.Executor
	ExecutorTimeout time.Duration
	Logger          *slog.Logger
	Metrics         *Metrics
}

// New constructs the pipeline service.
func New(cfg Config) (*Service, error) {
	switch {
	case cfg.Limiter == nil:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "rate limiter is required")
	case cfg.Sessions == nil:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "session registry is required")
	case cfg.Validator == nil:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "input validator is required")
	case cfg.Policy == nil:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "policy gate is required")
	case cfg.Privacy == nil:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "privacy ledger is required")
	case cfg.Recorder == nil:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "audit recorder is required")
	case cfg.Executor == nil:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "query executor is required")
	}
	if cfg.ExecutorTimeout <= 0 {
		cfg.ExecutorTimeout = defaultExecutorTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		limiter:     cfg.Limiter,
		sessions:    cfg.Sessions,
		validator:   cfg.Validator,
		policy:      cfg.Policy,
		privacy:     cfg.Privacy,
		recorder:    cfg.Recorder,
		executor:    cfg.Executor,
		execTimeout: cfg.ExecutorTimeout,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		tracer:      otel.Tracer("gatekeeper"),
	}, nil
}

// ProcessQuery runs one request through the pipeline. The first failing
// check short-circuits; a request admitted past the rate check keeps its
// consumed quota slot even if the executor later fails, which dampens
// retry storms. Panics from any stage are converted to a generic error
// decision at this boundary.
func (s *Service) ProcessQuery(ctx context.Context, req Request) (decision Decision) {
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "gatekeeper.ProcessQuery",
		trace.WithAttributes(attribute.String("gatekeeper.user_id", req.UserID)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "pipeline panic recovered",
				"panic", fmt.Sprint(r),
				"user_id", req.UserID,
			)
			s.recorder.Append(ctx, audit.EventPipelineFailure, audit.SeverityCritical, req.UserID,
				map[string]any{"panic": fmt.Sprint(r)}, req.IP)
			decision = Decision{
				Response:       MsgInternalFailure,
				SecurityLevel:  LevelError,
				Reason:         ReasonInternalFailure,
				ProcessingTime: time.Since(start),
			}
		}

		span.SetAttributes(attribute.String("gatekeeper.security_level", string(decision.SecurityLevel)))
		if s.metrics != nil {
			s.metrics.Requests.WithLabelValues(string(decision.SecurityLevel)).Inc()
			s.metrics.RequestDuration.Observe(time.Since(start).Seconds())
		}
	}()

	result, err := s.limiter.Allow(ctx, req.UserID)
	if err == nil && !result.Allowed {
		s.recorder.Append(ctx, audit.EventRateLimitExceeded, audit.SeverityHigh, req.UserID,
			map[string]any{"limit": result.Limit}, req.IP)
		return s.blocked("rate", MsgRateLimited, start)
	}

	if req.SessionID != "" {
		valid, err := s.sessions.Validate(ctx, req.SessionID)
		if err != nil {
			s.logger.ErrorContext(ctx, "session validation failed",
				"error", err,
				"user_id", req.UserID,
			)
		}
		if !valid {
			s.recorder.Append(ctx, audit.EventSessionExpired, audit.SeverityMedium, req.UserID,
				map[string]any{"session_id": req.SessionID}, req.IP)
			return s.blocked("session", MsgSessionExpired, start)
		}
	}

	safe, warnings := s.validator.Validate(req.Query)
	if !safe {
		s.recorder.Append(ctx, audit.EventUnsafeInput, audit.SeverityHigh, req.UserID,
			map[string]any{"warnings": warnings}, req.IP)
		return s.blocked("input", MsgUnsafeInput, start)
	}
	sanitized := s.validator.Sanitize(req.Query)

	appropriate, topicWarnings := s.policy.CheckAppropriateness(sanitized)
	if !appropriate {
		s.recorder.Append(ctx, audit.EventPolicyViolation, audit.SeverityMedium, req.UserID,
			map[string]any{"warnings": topicWarnings}, req.IP)
		return s.blocked("policy", MsgOutOfScope, start)
	}

	s.ensureConsent(ctx, req)

	execCtx, cancel := context.WithTimeout(ctx, s.execTimeout)
	defer cancel()

	raw, err := s.executor.Execute(execCtx, sanitized, req.UserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "executor delegation failed",
			"error", err,
			"user_id", req.UserID,
		)
		s.recorder.Append(ctx, audit.EventQueryProcessingError, audit.SeverityMedium, req.UserID,
			map[string]any{"error_code": string(dErrors.CodeOf(err))}, req.IP)
		return Decision{
			Allowed:        true,
			Response:       MsgExecutorFailed,
			SecurityLevel:  LevelError,
			Reason:         "query processing failed",
			ProcessingTime: time.Since(start),
		}
	}

	analysis := s.policy.ReviewResponseQuality(raw)
	response := s.privacy.Anonymize(raw, req.UserID)
	if len(response) > policy.TransparencyThreshold {
		response += "\n\n" + s.policy.TransparencyNotice()
	}

	elapsed := time.Since(start)
	details := map[string]any{
		"latency_ms":      elapsed.Milliseconds(),
		"response_length": len(response),
		"analysis":        analysis,
	}
	if len(warnings) > 0 {
		details["input_warnings"] = warnings
	}
	s.recorder.Append(ctx, audit.EventSuccessfulQuery, audit.SeverityLow, req.UserID, details, req.IP)

	return Decision{
		Allowed:        true,
		Success:        true,
		Response:       response,
		SecurityLevel:  LevelSecure,
		Analysis:       &analysis,
		ProcessingTime: elapsed,
	}
}

func (s *Service) blocked(stage, message string, start time.Time) Decision {
	if s.metrics != nil {
		s.metrics.BlockedByStage.WithLabelValues(stage).Inc()
	}
	return Decision{
		Response:       message,
		SecurityLevel:  LevelBlocked,
		Reason:         message,
		ProcessingTime: time.Since(start),
	}
}

// ensureConsent records consent on a user's first admitted query. Failures
// are logged, never fatal: consent bookkeeping must not block an already
// admitted request.
func (s *Service) ensureConsent(ctx context.Context, req Request) {
	has, err := s.privacy.HasConsent(ctx, req.UserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "consent lookup failed", "error", err, "user_id", req.UserID)
		return
	}
	if has {
		return
	}
	if err := s.privacy.CollectConsent(ctx, req.UserID, consentDataTypes, consentPurpose); err != nil {
		s.logger.ErrorContext(ctx, "consent collection failed", "error", err, "user_id", req.UserID)
		return
	}
	s.recorder.Append(ctx, audit.EventConsentRecorded, audit.SeverityLow, req.UserID,
		map[string]any{"purpose": consentPurpose}, req.IP)
}

// CreateSession issues a session for userID, deriving a device label from
// the caller's user agent.
func (s *Service) CreateSession(ctx context.Context, userID, rawUserAgent, ip string) (string, error) {
	sessionID, err := s.sessions.Create(ctx, userID, session.DeviceLabel(rawUserAgent))
	if err != nil {
		return "", err
	}
	s.recorder.Append(ctx, audit.EventSessionCreated, audit.SeverityLow, userID, nil, ip)
	return sessionID, nil
}

// InvalidateSession soft-deletes a session. Idempotent.
func (s *Service) InvalidateSession(ctx context.Context, sessionID, ip string) error {
	if err := s.sessions.Invalidate(ctx, sessionID); err != nil {
		return err
	}
	s.recorder.Append(ctx, audit.EventSessionInvalidated, audit.SeverityLow, "",
		map[string]any{"session_id": sessionID}, ip)
	return nil
}

// DeleteUserData removes the user's privacy record. The audit trail keeps
// its events for the user: erasure covers retained personal data, not the
// tamper-evident record of security decisions.
func (s *Service) DeleteUserData(ctx context.Context, userID, ip string) bool {
	if ok := s.privacy.DeleteUserData(ctx, userID); !ok {
		s.recorder.Append(ctx, audit.EventUserDataDeleteFailed, audit.SeverityHigh, userID, nil, ip)
		return false
	}
	s.recorder.Append(ctx, audit.EventUserDataDeleted, audit.SeverityMedium, userID, nil, ip)
	return true
}

// SecurityStatus snapshots the operational counters. Partial failures
// degrade to zero counts rather than failing the whole snapshot.
func (s *Service) SecurityStatus(ctx context.Context) Status {
	status := Status{Status: StatusOperational, GeneratedAt: time.Now()}

	if n, err := s.sessions.CountActive(ctx); err == nil {
		status.ActiveSessions = n
	}
	if n, err := s.limiter.TrackedKeys(ctx); err == nil {
		status.TrackedRateKeys = n
	}
	if n, err := s.privacy.Count(ctx); err == nil {
		status.ConsentRecords = n
	}
	if n, err := s.recorder.CountSince(ctx, status.GeneratedAt.Add(-24*time.Hour)); err == nil {
		status.EventsLast24h = n
	}
	return status
}

// SecurityReport aggregates the audit trail.
func (s *Service) SecurityReport(ctx context.Context, recentN int) (audit.Report, error) {
	return s.recorder.Report(ctx, recentN)
}
