package audit

import (
	"context"
	"log/slog"
)

// Publisher is any downstream sink the worker fans events out to.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Worker drains the recorder's forward channel into a downstream publisher.
// Publish failures are logged and skipped: the trail's source of truth is
// the store, the publisher is a best-effort mirror.
type Worker struct {
	publisher Publisher
	inbox     <-chan Event
	logger    *slog.Logger
}

func NewWorker(publisher Publisher, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{publisher: publisher, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.publisher.Publish(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to publish audit event",
					"error", err,
					"event_type", event.Type,
				)
			}
		}
	}
}
