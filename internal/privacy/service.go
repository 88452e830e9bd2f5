package privacy

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/sentinel"
)

// Redaction is one anonymization rule: text matching Pattern is replaced by
// Placeholder.
type Redaction struct {
	Name        string
	Pattern     string
	Placeholder string
}

// DefaultRedactions covers email and phone shapes. SSN and card shapes are
// deliberately absent: the input validator flags them on the way in, and
// widening the outbound placeholder set is a policy decision for whoever
// consumes archived transcripts.
var DefaultRedactions = []Redaction{
	{Name: "email", Pattern: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`, Placeholder: "[EMAIL]"},
	{Name: "phone", Pattern: `\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`, Placeholder: "[PHONE]"},
}

type compiledRedaction struct {
	re          *regexp.Regexp
	placeholder string
}

// Ledger is the consent and retention service.
type Ledger struct {
	store         Store
	retentionDays int
	redactions    []compiledRedaction
	logger        *slog.Logger
	clock         func() time.Time
}

// NewLedger constructs a Ledger with the default redaction rules.
func NewLedger(store Store, retentionDays int, logger *slog.Logger) (*Ledger, error) {
	return NewLedgerWithRedactions(store, retentionDays, DefaultRedactions, logger)
}

// NewLedgerWithRedactions constructs a Ledger with a custom redaction
// catalogue. Invalid patterns are rejected at construction.
func NewLedgerWithRedactions(store Store, retentionDays int, redactions []Redaction, logger *slog.Logger) (*Ledger, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "privacy store is required")
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}

	compiled := make([]compiledRedaction, 0, len(redactions))
	for _, r := range redactions {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRedaction{re: re, placeholder: r.Placeholder})
	}

	return &Ledger{
		store:         store,
		retentionDays: retentionDays,
		redactions:    compiled,
		logger:        logger,
		clock:         time.Now,
	}, nil
}

// WithClock swaps the time source. Test hook.
func (l *Ledger) WithClock(clock func() time.Time) *Ledger {
	l.clock = clock
	return l
}

// CollectConsent upserts the user's consent record. Recording is the
// consent act: a stored record always has ConsentGiven=true.
func (l *Ledger) CollectConsent(ctx context.Context, userID string, dataTypes []string, purpose string) error {
	if userID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}
	return l.store.Save(ctx, Record{
		UserID:        userID,
		DataTypes:     JoinDataTypes(dataTypes),
		CollectedAt:   l.clock(),
		RetentionDays: l.retentionDays,
		ConsentGiven:  true,
		Purpose:       purpose,
	})
}

// HasConsent reports whether a consent record exists for the user.
func (l *Ledger) HasConsent(ctx context.Context, userID string) (bool, error) {
	_, err := l.store.FindByUser(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Anonymize replaces redaction-rule matches with their placeholders. The
// user ID identifies whose transcript this is for logging purposes; the
// transformation itself is identity-independent.
func (l *Ledger) Anonymize(text, _ string) string {
	for _, r := range l.redactions {
		text = r.re.ReplaceAllString(text, r.placeholder)
	}
	return text
}

// IsRetentionExpired reports whether the user's data is past its retention
// window. No record means nothing is retained, which counts as expired:
// "safe to delete" is the absence invariant.
func (l *Ledger) IsRetentionExpired(ctx context.Context, userID string) (bool, error) {
	record, err := l.store.FindByUser(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return l.clock().After(record.ExpiresAt()), nil
}

// DeleteUserData removes the user's consent record. Returns false instead
// of an error on store failure; the failure is logged for operators.
func (l *Ledger) DeleteUserData(ctx context.Context, userID string) bool {
	if err := l.store.Delete(ctx, userID); err != nil {
		if l.logger != nil {
			l.logger.ErrorContext(ctx, "failed to delete user data",
				"error", err,
				"user_id", userID,
			)
		}
		return false
	}
	return true
}

// Count reports how many consent records exist, for the status endpoint.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	return l.store.Count(ctx)
}
