package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"roomworks/server/internal/domain"
)

// FeedbackRepositoryPG implements domain.FeedbackRepository.
type FeedbackRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewFeedbackRepository constructs a feedback repository instance.
func NewFeedbackRepository(pool *pgxpool.Pool) *FeedbackRepositoryPG {
	return &FeedbackRepositoryPG{pool: pool}
}

// Append stores one feedback entry. Prior entries are never overwritten.
func (r *FeedbackRepositoryPG) Append(ctx context.Context, fb *domain.Feedback) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO feedback (id, request_id, rating, comment)
VALUES ($1, $2, $3, $4);
`, fb.ID, fb.RequestID, fb.Rating, fb.Comment)
	return err
}

// ListByRequestID returns all feedback for a request, oldest first.
func (r *FeedbackRepositoryPG) ListByRequestID(ctx context.Context, requestID string) ([]domain.Feedback, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, request_id, rating, comment, created_at
FROM feedback
WHERE request_id = $1
ORDER BY created_at ASC;
`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Feedback
	for rows.Next() {
		var fb domain.Feedback
		if err := rows.Scan(&fb.ID, &fb.RequestID, &fb.Rating, &fb.Comment, &fb.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

var _ domain.FeedbackRepository = (*FeedbackRepositoryPG)(nil)
