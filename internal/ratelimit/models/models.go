// Package models holds shared rate-limit value types.
package models

import "time"

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}
