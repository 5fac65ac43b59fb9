package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"roomworks/server/internal/domain"
)

// TokenRepositoryPG implements domain.TokenRepository using PostgreSQL.
type TokenRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewTokenRepository constructs a token repository instance.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepositoryPG {
	return &TokenRepositoryPG{pool: pool}
}

// Create persists a freshly minted token.
func (r *TokenRepositoryPG) Create(ctx context.Context, token *domain.AccessToken) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO access_tokens (token, request_id, issued_at, expires_at, views)
VALUES ($1, $2, $3, $4, 0);
`, token.Token, token.RequestID, token.IssuedAt, token.ExpiresAt)
	return err
}

// GetByToken resolves the opaque token string.
func (r *TokenRepositoryPG) GetByToken(ctx context.Context, token string) (*domain.AccessToken, error) {
	row := r.pool.QueryRow(ctx, `
SELECT token, request_id, issued_at, expires_at, views
FROM access_tokens
WHERE token = $1;
`, token)
	var t domain.AccessToken
	if err := row.Scan(&t.Token, &t.RequestID, &t.IssuedAt, &t.ExpiresAt, &t.Views); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// IncrementViews bumps the view counter atomically and returns the new value.
func (r *TokenRepositoryPG) IncrementViews(ctx context.Context, token string) (int, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE access_tokens
SET views = views + 1
WHERE token = $1
RETURNING views;
`, token)
	var views int
	if err := row.Scan(&views); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return views, nil
}

// DeleteExpiredBefore removes tokens whose expiry passed before cutoff.
func (r *TokenRepositoryPG) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
DELETE FROM access_tokens
WHERE expires_at < $1;
`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ domain.TokenRepository = (*TokenRepositoryPG)(nil)
