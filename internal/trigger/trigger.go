// Package trigger drives the nightly rolling-horizon recomputation: the
// collaborator analog of the teacher's Dispatcher, adapted from cron-driven
// webhook firing to cron-driven re-scheduling.
package trigger

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// RunAllFunc re-runs every household's stored schedule and reports how many
// succeeded versus failed; the Trigger itself knows nothing about
// households, users, or persistence.
type RunAllFunc func(ctx context.Context) (succeeded, failed int)

// Trigger fires RunAllFunc once per cron occurrence, checked on a fixed
// polling interval (like the teacher's Dispatcher, which polls its
// schedule table on a ticker rather than sleeping exactly until the next
// fire time).
type Trigger struct {
	runAll       RunAllFunc
	logger       *slog.Logger
	pollInterval time.Duration
	schedule     cron.Schedule
	cronExpr     string
	nextRun      time.Time
}

// New parses cronExpr (standard 5-field syntax, e.g. "0 3 * * *") and
// returns a Trigger ready to Start. Returns an error if the expression is
// malformed.
func New(cronExpr string, runAll RunAllFunc, logger *slog.Logger) (*Trigger, error) {
	sched, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, err
	}
	return &Trigger{
		runAll:       runAll,
		logger:       logger.With("component", "trigger"),
		pollInterval: time.Minute,
		schedule:     sched,
		cronExpr:     cronExpr,
		nextRun:      sched.Next(time.Now()),
	}, nil
}

// Start polls on t.pollInterval until ctx is done, invoking runAll each
// time the current cron occurrence comes due.
func (t *Trigger) Start(ctx context.Context) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	t.logger.Info("trigger started", "cron", t.cronExpr, "next_run", t.nextRun)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("trigger shut down")
			return
		case now := <-ticker.C:
			if now.Before(t.nextRun) {
				continue
			}
			t.fire(ctx, now)
		}
	}
}

func (t *Trigger) fire(ctx context.Context, now time.Time) {
	succeeded, failed := t.runAll(ctx)
	t.logger.Info("trigger fired", "succeeded", succeeded, "failed", failed)
	t.nextRun = t.computeNext(now)
}

// computeNext returns the next future occurrence of the schedule, skipping
// any that have already passed (mirrors the teacher's
// Dispatcher.computeNext, which guards the same way against a missed tick).
func (t *Trigger) computeNext(after time.Time) time.Time {
	next := t.schedule.Next(after)
	now := time.Now()
	for next.Before(now) {
		next = t.schedule.Next(next)
	}
	return next
}
