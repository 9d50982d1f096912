// Package sched runs the engine's clock-driven jobs: closing the activity
// day at midnight so regularity_7 accrues, and pruning old journal rows.
package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/solacehub/solace-sense/internal/logging"
)

const defaultRetention = 30 * 24 * time.Hour

// DayCloser folds the running day into the activity history.
// *engine.Engine satisfies it.
type DayCloser interface {
	CloseActivityDay(at time.Time)
}

// Pruner trims aged journal rows. *journal.Journal satisfies it.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler owns the cron runner. Jobs fire on the host clock; the engine
// serializes the actual state changes.
type Scheduler struct {
	cron      *cron.Cron
	days      DayCloser
	journal   Pruner
	retention time.Duration
	log       zerolog.Logger
}

// New wires the standing jobs. journal may be nil when journaling is
// disabled; retention <= 0 selects the default.
func New(days DayCloser, journal Pruner, retention time.Duration) (*Scheduler, error) {
	if retention <= 0 {
		retention = defaultRetention
	}
	s := &Scheduler{
		cron:      cron.New(),
		days:      days,
		journal:   journal,
		retention: retention,
		log:       logging.WithComponent("sched"),
	}

	if _, err := s.cron.AddFunc("0 0 * * *", s.rollDay); err != nil {
		return nil, fmt.Errorf("schedule day rollover: %w", err)
	}
	if s.journal != nil {
		if _, err := s.cron.AddFunc("0 * * * *", s.pruneJournal); err != nil {
			return nil, fmt.Errorf("schedule journal prune: %w", err)
		}
	}
	return s, nil
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Dur("journal_retention", s.retention).Msg("scheduler started")
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) rollDay() {
	at := time.Now()
	s.days.CloseActivityDay(at)
	s.log.Info().Time("at", at).Msg("activity day rolled over")
}

func (s *Scheduler) pruneJournal() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.retention)
	n, err := s.journal.Prune(ctx, cutoff)
	if err != nil {
		s.log.Warn().Err(err).Msg("journal prune failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("rows", n).Time("cutoff", cutoff).Msg("journal pruned")
	}
}
