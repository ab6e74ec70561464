// Package scheduler provides cron-based scheduling for Serenia reminders.
//
// It backs the daily mood check-in nudge and the appointment reminder the
// "Prendre RDV" plan offers.
package scheduler

import (
	"github.com/robfig/cron/v3"
)

// Scheduler provides cron-based reminder scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Use standard 5-field cron parser (min, hour, dom, month, dow) and enable recovery
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a reminder task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Stop stops the cron scheduler and waits for running reminders to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
