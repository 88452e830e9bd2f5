package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the event trail in the security_events table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the security_events table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS security_events (
			id         UUID PRIMARY KEY,
			timestamp  TIMESTAMPTZ NOT NULL,
			event_type TEXT NOT NULL,
			severity   TEXT NOT NULL,
			user_id    TEXT NOT NULL,
			details    JSONB,
			ip_address TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS security_events_timestamp_idx
			ON security_events (timestamp DESC);
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure security_events schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	var details []byte
	if len(event.Details) > 0 {
		var err error
		details, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshal event details: %w", err)
		}
	}

	query := `
		INSERT INTO security_events (id, timestamp, event_type, severity, user_id, details, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.pool.Exec(ctx, query,
		uuid.New(),
		event.Timestamp,
		event.Type,
		string(event.Severity),
		event.UserID,
		details,
		event.IP,
	)
	if err != nil {
		return fmt.Errorf("insert security event: %w", err)
	}
	return nil
}

// ListRecent returns up to limit events, most recent first.
func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	query := `
		SELECT timestamp, event_type, severity, user_id, details, ip_address
		FROM security_events
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query security events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event    Event
			severity string
			details  []byte
		)
		if err := rows.Scan(&event.Timestamp, &event.Type, &severity, &event.UserID, &details, &event.IP); err != nil {
			return nil, fmt.Errorf("scan security event: %w", err)
		}
		event.Severity = Severity(severity)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &event.Details); err != nil {
				return nil, fmt.Errorf("unmarshal event details: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate security events: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM security_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count security events: %w", err)
	}
	return n, nil
}

// CountSince counts events with a timestamp at or after cutoff.
func (s *PostgresStore) CountSince(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM security_events WHERE timestamp >= $1`, cutoff).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count security events since cutoff: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountBySeverity(ctx context.Context) (map[Severity]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT severity, COUNT(*) FROM security_events GROUP BY severity`)
	if err != nil {
		return nil, fmt.Errorf("count security events by severity: %w", err)
	}
	defer rows.Close()

	breakdown := make(map[Severity]int)
	for rows.Next() {
		var (
			severity string
			n        int
		)
		if err := rows.Scan(&severity, &n); err != nil {
			return nil, fmt.Errorf("scan severity count: %w", err)
		}
		breakdown[Severity(severity)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate severity counts: %w", err)
	}
	return breakdown, nil
}
