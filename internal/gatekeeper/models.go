// Package gatekeeper composes the admission components into one ordered
// request pipeline in front of the downstream query engine.
package gatekeeper

import (
	"time"

	"gatekeeper/internal/policy"
)

// Request is one caller submission entering the pipeline.
type Request struct {
	Query     string `json:"query"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	IP        string `json:"-"`
}

// SecurityLevel classifies how a request left the pipeline.
type SecurityLevel string

const (
	LevelSecure  SecurityLevel = "secure"
	LevelBlocked SecurityLevel = "blocked"
	LevelError   SecurityLevel = "error"
)

// Decision is the pipeline's verdict on one request. Produced per request,
// never persisted.
type Decision struct {
	Allowed        bool             `json:"allowed"`
	Success        bool             `json:"success"`
	Response       string           `json:"response"`
	SecurityLevel  SecurityLevel    `json:"security_level"`
	Reason         string           `json:"reason,omitempty"`
	Analysis       *policy.Analysis `json:"analysis,omitempty"`
	ProcessingTime time.Duration    `json:"processing_time_ns"`
}

// StatusOperational is the fixed health marker on the status snapshot.
const StatusOperational = "operational"

// Status is the operational snapshot served by the security status
// endpoint.
type Status struct {
	Status          string    `json:"status"`
	ActiveSessions  int       `json:"active_sessions"`
	TrackedRateKeys int       `json:"tracked_rate_keys"`
	ConsentRecords  int       `json:"consent_records"`
	EventsLast24h   int       `json:"events_last_24h"`
	GeneratedAt     time.Time `json:"generated_at"`
}
