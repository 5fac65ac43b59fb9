package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"roomworks/server/internal/domain"
	"roomworks/server/internal/infra"
)

// Expired tokens stay around for a grace period so Resolve can still answer
// "expired" instead of "not found"; only long-dead tokens are removed.
const defaultRetention = 720 * time.Hour

// TokenSweeper periodically deletes tokens whose expiry passed beyond the
// retention window.
type TokenSweeper struct {
	cron      *cron.Cron
	tokens    domain.TokenRepository
	retention time.Duration
	logger    infra.Logger
}

// NewTokenSweeper constructs the sweeper. retention <= 0 uses the default.
func NewTokenSweeper(tokens domain.TokenRepository, retention time.Duration, logger infra.Logger) *TokenSweeper {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &TokenSweeper{
		cron:      cron.New(),
		tokens:    tokens,
		retention: retention,
		logger:    logger,
	}
}

// Start schedules the daily sweep.
func (s *TokenSweeper) Start() error {
	if _, err := s.cron.AddFunc("0 4 * * *", s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule; a sweep in flight finishes.
func (s *TokenSweeper) Stop() {
	s.cron.Stop()
}

func (s *TokenSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-s.retention)
	deleted, err := s.tokens.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("jobs: token sweep failed")
		return
	}
	if deleted > 0 {
		s.logger.Info().Int64("deleted", deleted).Msg("jobs: swept expired tokens")
	}
}
