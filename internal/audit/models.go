// Package audit records security-relevant events on an append-only trail
// with severity-based alerting.
package audit

import "time"

// Severity classifies how urgently an event needs operator attention.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// AlertWorthy reports whether recording an event at this severity must
// trigger the alert hook.
func (s Severity) AlertWorthy() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// Event is one immutable entry on the trail. Created only by the Recorder;
// never mutated after append.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"event_type"`
	Severity  Severity       `json:"severity"`
	UserID    string         `json:"user_id"`
	Details   map[string]any `json:"details,omitempty"`
	IP        string         `json:"ip_address,omitempty"`
}

// Event types emitted by the request pipeline and admin operations.
const (
	EventSuccessfulQuery      = "successful_query"
	EventRateLimitExceeded    = "rate_limit_exceeded"
	EventSessionExpired       = "session_expired"
	EventUnsafeInput          = "unsafe_input"
	EventPolicyViolation      = "policy_violation"
	EventQueryProcessingError = "query_processing_error"
	EventPipelineFailure      = "pipeline_failure"
	EventSessionCreated       = "session_created"
	EventSessionInvalidated   = "session_invalidated"
	EventConsentRecorded      = "consent_recorded"
	EventUserDataDeleted      = "user_data_deleted"
	EventUserDataDeleteFailed = "user_data_delete_failed"
)

// Report is the read-only aggregation served by the security report
// endpoint.
type Report struct {
	TotalEvents       int              `json:"total_events"`
	SeverityBreakdown map[Severity]int `json:"severity_breakdown"`
	RecentEvents      []Event          `json:"recent_events"`
	GeneratedAt       time.Time        `json:"generated_at"`
}
