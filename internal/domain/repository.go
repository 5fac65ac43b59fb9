package domain

import (
	"context"
	"time"
)

// RedesignRepository defines persistence for redesign requests. State
// transitions are guarded in the implementation so the lifecycle stays
// monotonic even under concurrent workers.
type RedesignRepository interface {
	Create(ctx context.Context, req *RedesignRequest) error
	GetByID(ctx context.Context, id string) (*RedesignRequest, error)
	// ClaimPending atomically moves the oldest pending request to running
	// and returns it. ErrNotFound means the queue is empty.
	ClaimPending(ctx context.Context) (*RedesignRequest, error)
	MarkCompleted(ctx context.Context, id, outputKey, outputURL, model string, durationSeconds int) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// TokenRepository defines persistence for access tokens.
type TokenRepository interface {
	Create(ctx context.Context, token *AccessToken) error
	GetByToken(ctx context.Context, token string) (*AccessToken, error)
	// IncrementViews bumps the view counter by one and returns the new value.
	IncrementViews(ctx context.Context, token string) (int, error)
	// DeleteExpiredBefore removes tokens whose expiry passed before cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// FeedbackRepository stores visitor feedback. Append-only.
type FeedbackRepository interface {
	Append(ctx context.Context, fb *Feedback) error
	ListByRequestID(ctx context.Context, requestID string) ([]Feedback, error)
}
