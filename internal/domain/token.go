package domain

import "time"

// AccessToken is an unauthenticated, time-limited capability granting read
// access to exactly one completed redesign. Tokens are minted once per
// request and never reissued; a fresh result requires a fresh submission.
type AccessToken struct {
	Token     string
	RequestID string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Views     int
}

// Expired reports whether the token's validity window has passed.
func (t AccessToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
