package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweep defines when a recurring maintenance pass (such as the
// rehydration scan) should run next.
type Sweep interface {
	Next(from time.Time) time.Time
}

// everySweep runs at fixed intervals.
type everySweep struct {
	interval time.Duration
}

// Every creates a sweep that runs at fixed intervals.
func Every(d time.Duration) Sweep {
	return &everySweep{interval: d}
}

func (s *everySweep) Next(from time.Time) time.Time {
	return from.Add(s.interval)
}

// dailySweep runs at a specific time each day.
type dailySweep struct {
	hour   int
	minute int
	loc    *time.Location
}

// Daily creates a sweep that runs at a specific UTC time each day.
func Daily(hour, minute int) Sweep {
	return &dailySweep{hour: hour, minute: minute, loc: time.UTC}
}

func (s *dailySweep) Next(from time.Time) time.Time {
	from = from.In(s.loc)
	next := time.Date(from.Year(), from.Month(), from.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// cronSweep wraps a cron expression.
type cronSweep struct {
	schedule cron.Schedule
}

// Cron creates a sweep from a standard five-field cron expression.
func Cron(expr string) Sweep {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		panic("invalid cron expression: " + err.Error())
	}
	return &cronSweep{schedule: schedule}
}

func (s *cronSweep) Next(from time.Time) time.Time {
	return s.schedule.Next(from)
}

// RunPeriodic runs fn on the sweep's schedule until the context is
// cancelled. Errors from fn are logged and the sweep continues.
func (s *Scheduler) RunPeriodic(ctx context.Context, sweep Sweep, name string, fn func(context.Context) error) error {
	for {
		next := sweep.Next(s.now())
		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if err := fn(ctx); err != nil {
			s.logger.Error("sweep failed", "sweep", name, "error", err)
		}
	}
}
