package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/safrareport/auth-service/config"
	"github.com/safrareport/auth-service/internal/auth/domain"
)

// Sweeper deletes what validation only ever marks: dead sessions, old
// login attempts and spent one-time tokens. Request paths never delete.
type Sweeper struct {
	sessions domain.SessionRepository
	attempts domain.AttemptRepository
	oneTime  domain.OneTimeTokenRepository
	cfg      config.SweepConfig
	log      zerolog.Logger
	cron     *cron.Cron
}

func NewSweeper(
	sessions domain.SessionRepository,
	attempts domain.AttemptRepository,
	oneTime domain.OneTimeTokenRepository,
	cfg config.SweepConfig,
	log zerolog.Logger,
) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		attempts: attempts,
		oneTime:  oneTime,
		cfg:      cfg,
		log:      log.With().Str("component", "sweeper").Logger(),
	}
}

func (s *Sweeper) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.RunOnce); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("schedule", s.cfg.Schedule).Msg("sweeper started")
	return nil
}

func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *Sweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := time.Now()

	if n, err := s.sessions.DeleteDeadBefore(ctx, now.Add(-s.cfg.SessionRetention)); err != nil {
		s.log.Error().Err(err).Msg("session sweep failed")
	} else if n > 0 {
		s.log.Info().Int64("deleted", n).Msg("swept sessions")
	}

	if n, err := s.attempts.DeleteBefore(ctx, now.Add(-s.cfg.AttemptRetention)); err != nil {
		s.log.Error().Err(err).Msg("attempt sweep failed")
	} else if n > 0 {
		s.log.Info().Int64("deleted", n).Msg("swept login attempts")
	}

	if n, err := s.oneTime.DeleteDeadBefore(ctx, now); err != nil {
		s.log.Error().Err(err).Msg("one-time token sweep failed")
	} else if n > 0 {
		s.log.Info().Int64("deleted", n).Msg("swept one-time tokens")
	}
}
