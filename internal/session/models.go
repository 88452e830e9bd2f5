// Package session manages caller session lifecycle: opaque tokens, sliding
// idle expiry, and soft-deleted invalidation that preserves audit
// traceability.
package session

import (
	"strings"
	"time"

	"github.com/mssola/useragent"
)

// DefaultIdleTimeout is the sliding inactivity window after which a session
// expires.
const DefaultIdleTimeout = 1800 * time.Second

// Session is one caller session. Invalidated sessions are retained with
// IsActive=false, never deleted, so audit events can always be traced back
// to the session they ran under.
type Session struct {
	ID           string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	Device       string    `json:"device,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	IsActive     bool      `json:"is_active"`
}

// DeviceLabel condenses a raw User-Agent header into a short display name
// for session listings. Unknown agents yield the empty string.
func DeviceLabel(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	name, _ := ua.Browser()
	parts := make([]string, 0, 2)
	if name != "" {
		parts = append(parts, name)
	}
	if os := ua.OS(); os != "" {
		parts = append(parts, os)
	}
	return strings.Join(parts, " on ")
}
