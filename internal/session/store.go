package session

import (
	"context"
	"time"
)

// Store persists sessions. Touch is the atomic validate-and-refresh step:
// implementations must perform the read-modify-write for one session ID
// under a single critical section so concurrent validations cannot
// double-consume a refresh or resurrect an expired session.
type Store interface {
	Save(ctx context.Context, s Session) error
	FindByID(ctx context.Context, id string) (Session, error)

	// Touch returns true and refreshes LastActivity when the session exists,
	// is active, and is within idleTimeout of its last activity. A session
	// found idle past the timeout is marked inactive before returning false.
	Touch(ctx context.Context, id string, idleTimeout time.Duration) (bool, error)

	// Invalidate soft-deletes the session. Idempotent; unknown IDs are not
	// an error.
	Invalidate(ctx context.Context, id string) error

	CountActive(ctx context.Context) (int, error)
}
