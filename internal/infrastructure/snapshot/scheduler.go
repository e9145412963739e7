// Package snapshot contains the scheduled worker that materializes daily
// balance snapshots.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/veltor/bankledger/internal/usecase"
)

// Scheduler runs the snapshot maker on a cron schedule. Each run snapshots
// every ACTIVE account at the end of the previous day in the configured
// zone.
type Scheduler struct {
	cron      *cron.Cron
	snapshots *usecase.SnapshotUseCase
	clock     usecase.Clock
	zone      *time.Location
	logger    zerolog.Logger
}

// NewScheduler creates a scheduler. spec is a standard 5-field cron
// expression evaluated in the cutoff zone.
func NewScheduler(spec, zoneName string, snapshots *usecase.SnapshotUseCase, clock usecase.Clock, logger zerolog.Logger) (*Scheduler, error) {
	zone, err := time.LoadLocation(zoneName)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot cutoff zone %q: %w", zoneName, err)
	}

	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(zone)),
		snapshots: snapshots,
		clock:     clock,
		zone:      zone,
		logger:    logger.With().Str("component", "snapshot_scheduler").Logger(),
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("parsing snapshot cron %q: %w", spec, err)
	}

	return s, nil
}

// Start begins the schedule; it returns immediately.
func (s *Scheduler) Start() {
	s.logger.Info().Str("zone", s.zone.String()).Msg("snapshot scheduler started")
	s.cron.Start()
}

// Stop cancels the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("snapshot scheduler stopped")
}

func (s *Scheduler) run() {
	cutoff := usecase.PreviousDayCutoff(s.clock.Now(), s.zone)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := s.snapshots.CreateSnapshots(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Time("cutoff", cutoff).Msg("scheduled snapshot run failed")
		return
	}

	s.logger.Info().
		Time("cutoff", cutoff).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("scheduled snapshot run finished")
}
