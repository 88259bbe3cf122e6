/*
scheduler.go - Daily jobs

PURPOSE:
  Drives the two time-based behaviors on cron schedules:
  - sweep: post every planned repeat operation due today
  - limit reset: zero current_spent on limits whose reset date is today

  Both jobs are idempotent within a day (the sweep claims each instance,
  the reset advances the date it matches on), so an extra manual trigger
  or an overlapping run cannot double-apply.
*/
package api

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Polvory/Easy-Plan-back/ledger"
	"github.com/Polvory/Easy-Plan-back/recurrence"
)

// Scheduler owns the cron instance and the job closures.
type Scheduler struct {
	cron   *cron.Cron
	engine *recurrence.Engine
	poster *ledger.Poster
	log    *logrus.Logger
}

func NewScheduler(engine *recurrence.Engine, poster *ledger.Poster, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		engine: engine,
		poster: poster,
		log:    log,
	}
}

// Start registers the jobs and launches the cron loop. Specs are standard
// five-field cron expressions.
func (s *Scheduler) Start(sweepSpec, limitResetSpec string) error {
	if _, err := s.cron.AddFunc(sweepSpec, s.runSweep); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(limitResetSpec, s.runLimitReset); err != nil {
		return err
	}
	s.cron.Start()
	s.log.WithFields(logrus.Fields{
		"sweep":       sweepSpec,
		"limit_reset": limitResetSpec,
	}).Info("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := s.engine.Sweep(ctx); err != nil {
		s.log.WithError(err).Error("scheduled sweep failed")
	}
}

func (s *Scheduler) runLimitReset() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := s.poster.ResetDueLimits(ctx, time.Now().UTC()); err != nil {
		s.log.WithError(err).Error("scheduled limit reset failed")
	}
}
