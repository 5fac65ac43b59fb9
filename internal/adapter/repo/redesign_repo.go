package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"roomworks/server/internal/domain"
)

// RedesignRepositoryPG implements domain.RedesignRepository.
type RedesignRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewRedesignRepository creates a redesign repository backed by PostgreSQL.
func NewRedesignRepository(pool *pgxpool.Pool) *RedesignRepositoryPG {
	return &RedesignRepositoryPG{pool: pool}
}

const redesignColumns = `id, email, source_key, source_url, room_type, style, prompt, state,
output_key, output_url, model, error_message, duration_seconds, created_at, completed_at`

// Create inserts a new redesign request in pending state.
func (r *RedesignRepositoryPG) Create(ctx context.Context, req *domain.RedesignRequest) error {
	query := `
INSERT INTO redesign_requests (id, email, source_key, source_url, room_type, style, prompt, state)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := r.pool.Exec(ctx, query,
		req.ID,
		req.Email,
		req.SourceKey,
		req.SourceURL,
		req.RoomType,
		req.Style,
		req.Prompt,
		req.State,
	)
	return err
}

// GetByID fetches a redesign request by its identifier.
func (r *RedesignRepositoryPG) GetByID(ctx context.Context, id string) (*domain.RedesignRequest, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+redesignColumns+`
FROM redesign_requests
WHERE id = $1;
`, id)
	return scanRedesign(row)
}

// ClaimPending atomically promotes the oldest pending request to running.
// SKIP LOCKED keeps concurrent workers from claiming the same row.
func (r *RedesignRepositoryPG) ClaimPending(ctx context.Context) (*domain.RedesignRequest, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE redesign_requests
SET state = 'running', updated_at = NOW()
WHERE id = (
	SELECT id FROM redesign_requests
	WHERE state = 'pending'
	ORDER BY created_at
	FOR UPDATE SKIP LOCKED
	LIMIT 1
)
RETURNING `+redesignColumns+`;
`)
	return scanRedesign(row)
}

// MarkCompleted records the output and finishes the request. The state guard
// keeps the lifecycle monotonic: only a running request can complete.
func (r *RedesignRepositoryPG) MarkCompleted(ctx context.Context, id, outputKey, outputURL, model string, durationSeconds int) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE redesign_requests
SET state = 'completed',
    output_key = $2,
    output_url = $3,
    model = $4,
    duration_seconds = $5,
    completed_at = NOW(),
    updated_at = NOW()
WHERE id = $1 AND state = 'running';
`, id, outputKey, outputURL, model, durationSeconds)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

// MarkFailed finishes the request with a failure reason.
func (r *RedesignRepositoryPG) MarkFailed(ctx context.Context, id, reason string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE redesign_requests
SET state = 'failed',
    error_message = $2,
    completed_at = NOW(),
    updated_at = NOW()
WHERE id = $1 AND state IN ('pending', 'running');
`, id, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func scanRedesign(row pgx.Row) (*domain.RedesignRequest, error) {
	var req domain.RedesignRequest
	if err := row.Scan(
		&req.ID,
		&req.Email,
		&req.SourceKey,
		&req.SourceURL,
		&req.RoomType,
		&req.Style,
		&req.Prompt,
		&req.State,
		&req.OutputKey,
		&req.OutputURL,
		&req.Model,
		&req.ErrorMessage,
		&req.DurationSeconds,
		&req.CreatedAt,
		&req.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

var _ domain.RedesignRepository = (*RedesignRepositoryPG)(nil)
