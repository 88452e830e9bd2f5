package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout. Services attach component
// fields via With; the audit trail is separate and goes through its own store.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
