package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/i474232898/weather-dashboard/internal/history"
)

// Scheduler periodically drops history entries that have not been searched
// for longer than maxAge.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     history.Store
	maxAge    time.Duration
	interval  time.Duration
	log       zerolog.Logger
}

// New creates a new Scheduler.
func New(store history.Store, maxAge, interval time.Duration, log zerolog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		store:     store,
		maxAge:    maxAge,
		interval:  interval,
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// Start schedules the prune job and starts the underlying scheduler.
// Nothing is scheduled when maxAge is zero.
func (s *Scheduler) Start() error {
	if s.maxAge <= 0 {
		s.log.Info().Msg("history max age not set; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = time.Hour
	}

	_, err := s.scheduler.Every(interval).Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.log.Info().Dur("interval", interval).Dur("max_age", s.maxAge).Msg("history prune job scheduled")
	s.scheduler.StartAsync()
	return nil
}

// RunOnce prunes the history once.
func (s *Scheduler) RunOnce() {
	removed, err := s.store.Prune(s.maxAge)
	if err != nil {
		s.log.Error().Err(err).Msg("history prune failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("pruned stale history entries")
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
