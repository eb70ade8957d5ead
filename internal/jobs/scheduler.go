// Package jobs holds the scheduled background work: the daily subscription
// renewal sweep and the hourly activity rollup.
package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the background jobs on their cron schedules
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// AddRenewalCheck schedules the renewal sweep, typically once a day
func (s *Scheduler) AddRenewalCheck(spec string, checker *RenewalChecker) error {
	_, err := s.cron.AddFunc(spec, func() {
		checker.Run(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule renewal check: %w", err)
	}
	return nil
}

// AddActivityAggregation schedules the hourly activity rollup
func (s *Scheduler) AddActivityAggregation(aggregator *ActivityAggregator) error {
	_, err := s.cron.AddFunc("@hourly", aggregator.Run)
	if err != nil {
		return fmt.Errorf("failed to schedule activity aggregation: %w", err)
	}
	return nil
}

// Start begins running scheduled jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("Job scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Job scheduler stopped")
}
