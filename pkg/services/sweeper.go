package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/relayhq/chatflow/pkg/persistence"
)

const defaultIdleTTL = 24 * time.Hour

// SessionSweeper periodically expires sessions whose contacts went silent.
// A swept session behaves exactly like one expired by flow deactivation: the
// next inbound message from that contact starts a fresh session.
type SessionSweeper struct {
	sessions persistence.SessionRepository
	logger   *slog.Logger
	cron     *cron.Cron
	idleTTL  time.Duration
	schedule string
}

// NewSessionSweeper creates a sweeper expiring sessions idle for longer than
// idleTTL. A zero idleTTL falls back to 24 hours.
func NewSessionSweeper(logger *slog.Logger, sessions persistence.SessionRepository, idleTTL time.Duration, schedule string) *SessionSweeper {
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}

	if schedule == "" {
		schedule = "@every 5m"
	}

	return &SessionSweeper{
		sessions: sessions,
		logger:   logger.With("module", "session_sweeper"),
		cron:     cron.New(),
		idleTTL:  idleTTL,
		schedule: schedule,
	}
}

// Start schedules the sweep and begins running it.
func (s *SessionSweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.logger.Error("Session sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Session sweeper started", "schedule", s.schedule, "idle_ttl", s.idleTTL)

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *SessionSweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep expires all active sessions idle past the TTL and returns how many
// were transitioned.
func (s *SessionSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.idleTTL)

	expired, err := s.sessions.ExpireIdleBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if expired > 0 {
		s.logger.Info("Expired idle sessions", "count", expired, "cutoff", cutoff)
	}

	return expired, nil
}
