// Package housekeeping runs periodic maintenance jobs.
package housekeeping

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/repository"
)

// Sweeper periodically revokes view tokens past their expiry so stale
// credentials stop resolving server-side, not only at parse time.
type Sweeper struct {
	runs   repository.RunRepository
	spec   string
	cron   *cron.Cron
	logger zerolog.Logger
}

func NewSweeper(runs repository.RunRepository, spec string, logger zerolog.Logger) *Sweeper {
	if spec == "" {
		spec = "@every 1h"
	}
	return &Sweeper{
		runs:   runs,
		spec:   spec,
		cron:   cron.New(),
		logger: logger.With().Str("component", "token_sweeper").Logger(),
	}
}

func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info().Str("schedule", s.spec).Msg("Token sweeper started")
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Token sweeper stopped")
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	revoked, err := s.runs.RevokeExpiredTokens(ctx, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("Token sweep failed")
		return
	}
	if revoked > 0 {
		s.logger.Info().Int64("revoked", revoked).Msg("Revoked expired view tokens")
	}
}
