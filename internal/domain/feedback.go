package domain

import "time"

// Feedback is a visitor rating attached to a redesign via its access token.
// Entries are append-only; a second submission never overwrites the first.
type Feedback struct {
	ID        string
	RequestID string
	Rating    int
	Comment   string
	CreatedAt time.Time
}
