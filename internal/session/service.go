package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/sentinel"
)

// Registry is the session lifecycle service.
type Registry struct {
	store       Store
	idleTimeout time.Duration
	logger      *slog.Logger
	clock       func() time.Time
}

// NewRegistry constructs a Registry. A non-positive timeout falls back to
// the default.
func NewRegistry(store Store, idleTimeout time.Duration, logger *slog.Logger) (*Registry, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "session store is required")
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Registry{
		store:       store,
		idleTimeout: idleTimeout,
		logger:      logger,
		clock:       time.Now,
	}, nil
}

// WithClock swaps the time source. Test hook.
func (r *Registry) WithClock(clock func() time.Time) *Registry {
	r.clock = clock
	return r
}

// Create issues a fresh opaque session token for userID. The device label
// is optional display metadata, never used for auth decisions.
func (r *Registry) Create(ctx context.Context, userID, device string) (string, error) {
	if userID == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}

	now := r.clock()
	sess := Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		Device:       device,
		CreatedAt:    now,
		LastActivity: now,
		IsActive:     true,
	}
	if err := r.store.Save(ctx, sess); err != nil {
		return "", err
	}
	return sess.ID, nil
}

// Validate reports whether the session is usable and refreshes its activity
// timestamp when it is. Expiry is lazy: an idle session is marked inactive
// here, on the validation that discovers it.
func (r *Registry) Validate(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	return r.store.Touch(ctx, sessionID, r.idleTimeout)
}

// Invalidate soft-deletes a session. Idempotent; unknown IDs are ignored so
// logout can never fail.
func (r *Registry) Invalidate(ctx context.Context, sessionID string) error {
	return r.store.Invalidate(ctx, sessionID)
}

// Get returns the stored session, including invalidated ones.
func (r *Registry) Get(ctx context.Context, sessionID string) (Session, error) {
	sess, err := r.store.FindByID(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Session{}, dErrors.New(dErrors.CodeNotFound, "session not found")
	}
	return sess, err
}

// CountActive reports currently active sessions for the status endpoint.
func (r *Registry) CountActive(ctx context.Context) (int, error) {
	n, err := r.store.CountActive(ctx)
	if err != nil && r.logger != nil {
		r.logger.ErrorContext(ctx, "failed to count active sessions", "error", err)
	}
	return n, err
}
