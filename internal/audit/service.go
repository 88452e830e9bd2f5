package audit

import (
	"context"
	"log/slog"
	"time"

	dErrors "gatekeeper/pkg/domain-errors"
)

// AlertFunc is invoked synchronously when a high or critical event is
// recorded. The default implementation logs a warning; production
// deployments swap in a pager integration.
type AlertFunc func(ctx context.Context, event Event)

// Recorder is the append side of the trail. Append never returns an error:
// recording must not be able to fail the request pipeline, so store
// failures are logged and counted instead of propagated.
type Recorder struct {
	store   Store
	alert   AlertFunc
	forward chan<- Event
	logger  *slog.Logger
	metrics *Metrics
	clock   func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithAlertFunc replaces the default log-a-warning alert hook.
func WithAlertFunc(alert AlertFunc) Option {
	return func(r *Recorder) { r.alert = alert }
}

// WithForwardChannel mirrors every recorded event onto ch for background
// publishing. The send never blocks; a full channel drops the mirror copy.
func WithForwardChannel(ch chan<- Event) Option {
	return func(r *Recorder) { r.forward = ch }
}

// WithMetrics attaches trail metrics.
func WithMetrics(m *Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// WithClock swaps the time source. Test hook.
func WithClock(clock func() time.Time) Option {
	return func(r *Recorder) { r.clock = clock }
}

// NewRecorder constructs a Recorder over the given store.
func NewRecorder(store Store, logger *slog.Logger, opts ...Option) (*Recorder, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "audit store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		store:  store,
		logger: logger,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.alert == nil {
		r.alert = r.logAlert
	}
	return r, nil
}

// Append records one event. It always succeeds from the caller's point of
// view; high and critical severities additionally fire the alert hook
// before Append returns.
func (r *Recorder) Append(ctx context.Context, eventType string, severity Severity, userID string, details map[string]any, ip string) {
	event := Event{
		Timestamp: r.clock(),
		Type:      eventType,
		Severity:  severity,
		UserID:    userID,
		Details:   details,
		IP:        ip,
	}

	if err := r.store.Append(ctx, event); err != nil {
		r.logger.ErrorContext(ctx, "failed to append audit event",
			"error", err,
			"event_type", eventType,
			"severity", severity,
		)
		if r.metrics != nil {
			r.metrics.StoreFailures.Inc()
		}
	}

	if r.metrics != nil {
		r.metrics.EventsRecorded.WithLabelValues(string(severity)).Inc()
	}

	if r.forward != nil {
		select {
		case r.forward <- event:
		default:
			if r.metrics != nil {
				r.metrics.ForwardDropped.Inc()
			}
		}
	}

	if severity.AlertWorthy() {
		if r.metrics != nil {
			r.metrics.AlertsRaised.Inc()
		}
		r.alert(ctx, event)
	}
}

// Report aggregates the trail for the security report endpoint. recentN
// bounds the event tail; non-positive values fall back to 10.
func (r *Recorder) Report(ctx context.Context, recentN int) (Report, error) {
	if recentN <= 0 {
		recentN = 10
	}

	total, err := r.store.Count(ctx)
	if err != nil {
		return Report{}, err
	}
	breakdown, err := r.store.CountBySeverity(ctx)
	if err != nil {
		return Report{}, err
	}
	recent, err := r.store.ListRecent(ctx, recentN)
	if err != nil {
		return Report{}, err
	}

	return Report{
		TotalEvents:       total,
		SeverityBreakdown: breakdown,
		RecentEvents:      recent,
		GeneratedAt:       r.clock(),
	}, nil
}

// Count reports the trail length.
func (r *Recorder) Count(ctx context.Context) (int, error) {
	return r.store.Count(ctx)
}

// CountSince reports events recorded at or after cutoff. Feeds the
// last-24-hours figure on the status endpoint.
func (r *Recorder) CountSince(ctx context.Context, cutoff time.Time) (int, error) {
	return r.store.CountSince(ctx, cutoff)
}

func (r *Recorder) logAlert(ctx context.Context, event Event) {
	r.logger.WarnContext(ctx, "security alert",
		"event_type", event.Type,
		"severity", event.Severity,
		"user_id", event.UserID,
		"ip", event.IP,
	)
}
