// Package privacy tracks consent, applies retention policy, and redacts
// PII from outbound text.
package privacy

import (
	"strings"
	"time"
)

// DefaultRetentionDays bounds how long collected data may be held.
const DefaultRetentionDays = 30

// Record captures one user's consent state. One record per user; a new
// consent collection replaces the previous record. Absence of a record
// means no retained data: callers treat that as "safe to delete".
type Record struct {
	UserID        string    `json:"user_id"`
	DataTypes     string    `json:"data_types"` // comma-joined categories
	CollectedAt   time.Time `json:"collected_at"`
	RetentionDays int       `json:"retention_days"`
	ConsentGiven  bool      `json:"consent_given"`
	Purpose       string    `json:"purpose"`
}

// ExpiresAt is the instant after which the record's data must not be kept.
func (r Record) ExpiresAt() time.Time {
	return r.CollectedAt.AddDate(0, 0, r.RetentionDays)
}

// JoinDataTypes renders category lists the way records store them.
func JoinDataTypes(types []string) string {
	return strings.Join(types, ", ")
}
