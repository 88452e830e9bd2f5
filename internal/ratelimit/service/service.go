// Package service exposes the per-identity admission check used by the
// gatekeeper pipeline.
package service

import (
	"context"
	"log/slog"
	"time"

	"gatekeeper/internal/ratelimit/metrics"
	"gatekeeper/internal/ratelimit/models"
	dErrors "gatekeeper/pkg/domain-errors"
)

// BucketStore is the sliding-window accounting backend.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (models.Result, error)
	Reset(ctx context.Context, key string) error
	TrackedKeys(ctx context.Context) (int, error)
}

// Limiter applies one sliding-window policy to every caller identity.
type Limiter struct {
	store   BucketStore
	limit   int
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs a Limiter. Store and positive limits are required.
func New(store BucketStore, limit int, window time.Duration, logger *slog.Logger, m *metrics.Metrics) (*Limiter, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "bucket store is required")
	}
	if limit <= 0 || window <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "limit and window must be positive")
	}
	return &Limiter{
		store:   store,
		limit:   limit,
		window:  window,
		logger:  logger,
		metrics: m,
	}, nil
}

// Allow admits or denies one request for userID. A store failure fails open:
// availability of the protected service wins over strict quota enforcement,
// and the failure is logged for operators.
func (l *Limiter) Allow(ctx context.Context, userID string) (models.Result, error) {
	result, err := l.store.Allow(ctx, userID, l.limit, l.window)
	if err != nil {
		if l.logger != nil {
			l.logger.ErrorContext(ctx, "rate limit store failure, failing open",
				"error", err,
				"user_id", userID,
			)
		}
		return models.Result{Allowed: true, Limit: l.limit}, nil
	}

	if l.metrics != nil {
		if result.Allowed {
			l.metrics.RequestsAllowed.Inc()
		} else {
			l.metrics.RequestsBlocked.Inc()
		}
		if n, err := l.store.TrackedKeys(ctx); err == nil {
			l.metrics.TrackedKeys.Set(float64(n))
		}
	}
	return result, nil
}

// Reset clears accounting for one identity. Admin operation.
func (l *Limiter) Reset(ctx context.Context, userID string) error {
	return l.store.Reset(ctx, userID)
}

// TrackedKeys reports how many identities currently hold window state.
func (l *Limiter) TrackedKeys(ctx context.Context) (int, error) {
	return l.store.TrackedKeys(ctx)
}
