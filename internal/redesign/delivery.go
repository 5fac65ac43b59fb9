package redesign

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"roomworks/server/internal/domain"
	"roomworks/server/internal/infra"
)

// ResolutionStatus enumerates the five distinguishable outcomes of a token
// lookup. The presentation layer renders a different message for each;
// collapsing them is a contract violation.
type ResolutionStatus string

const (
	StatusReady      ResolutionStatus = "ready"
	StatusProcessing ResolutionStatus = "processing"
	StatusFailed     ResolutionStatus = "failed"
	StatusExpired    ResolutionStatus = "expired"
	StatusNotFound   ResolutionStatus = "not_found"
)

// Resolution is the outcome of resolving an access token. Redesign and
// Views are populated only for StatusReady.
type Resolution struct {
	Status   ResolutionStatus
	Redesign *domain.RedesignRequest
	Views    int
}

// Delivery resolves access tokens to redesign results and records
// engagement against them.
type Delivery struct {
	tokens   domain.TokenRepository
	repo     domain.RedesignRepository
	feedback domain.FeedbackRepository
	logger   infra.Logger
	now      func() time.Time
}

// NewDelivery wires the token-gated result service.
func NewDelivery(tokens domain.TokenRepository, repo domain.RedesignRepository, feedback domain.FeedbackRepository, logger infra.Logger) *Delivery {
	return &Delivery{tokens: tokens, repo: repo, feedback: feedback, logger: logger, now: time.Now}
}

// Resolve looks up a token and, when the bound request is completed,
// counts the view. Every successful resolution increments the counter,
// repeated views by the same client included.
func (d *Delivery) Resolve(ctx context.Context, token string) (Resolution, error) {
	t, err := d.tokens.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Resolution{Status: StatusNotFound}, nil
		}
		return Resolution{}, err
	}
	if t.Expired(d.now()) {
		return Resolution{Status: StatusExpired}, nil
	}

	req, err := d.repo.GetByID(ctx, t.RequestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Resolution{Status: StatusNotFound}, nil
		}
		return Resolution{}, err
	}

	switch req.State {
	case domain.StatePending, domain.StateRunning:
		return Resolution{Status: StatusProcessing}, nil
	case domain.StateFailed:
		return Resolution{Status: StatusFailed}, nil
	}

	views, err := d.tokens.IncrementViews(ctx, token)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Status: StatusReady, Redesign: req, Views: views}, nil
}

// SubmitFeedback attaches a rating to the redesign behind the token.
// Entries append; earlier feedback is never overwritten.
func (d *Delivery) SubmitFeedback(ctx context.Context, token string, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return domain.ErrInvalidRating
	}
	t, err := d.tokens.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if t.Expired(d.now()) {
		return domain.ErrTokenExpired
	}
	req, err := d.repo.GetByID(ctx, t.RequestID)
	if err != nil {
		return err
	}
	if req.State != domain.StateCompleted {
		return domain.ErrInvalidState
	}
	fb := &domain.Feedback{
		ID:        uuid.NewString(),
		RequestID: req.ID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: d.now(),
	}
	if err := d.feedback.Append(ctx, fb); err != nil {
		return err
	}
	d.logger.Info().Str("request_id", req.ID).Int("rating", rating).Msg("redesign: feedback recorded")
	return nil
}
