package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/onboardkit/roadmapbot/pkg/core"
)

// Job ids are derived from the point id with a purpose suffix, so that
// at most one Dispatch, one Escalate and one Remind job exist per
// point, and all of them cancel by point id.
func dispatchJobID(pointID uint) string {
	return strconv.FormatUint(uint64(pointID), 10) + ":dispatch"
}

func escalateJobID(pointID uint) string {
	return strconv.FormatUint(uint64(pointID), 10) + ":escalate"
}

func remindJobID(pointID uint) string {
	return strconv.FormatUint(uint64(pointID), 10) + ":remind"
}

// BindPoint schedules the jobs a point needs: Dispatch at the trigger
// time (skipped when the action was already delivered), Escalate at the
// deadline when one exists, and Remind ReminderDaysBefore days ahead of
// the trigger when that lands in the future.
func (d *Dispatcher) BindPoint(point *core.ReferencePoint) error {
	id := point.ID

	if point.IsCompleted {
		return nil
	}

	if point.DeliveredAt == nil {
		err := d.sched.Schedule(dispatchJobID(id), point.TriggerDatetime, func(ctx context.Context) error {
			return d.fireDispatch(ctx, id)
		})
		if err != nil {
			return fmt.Errorf("bind dispatch for point %d: %w", id, err)
		}
	}

	if point.CheckDatetime != nil {
		err := d.sched.Schedule(escalateJobID(id), *point.CheckDatetime, func(ctx context.Context) error {
			return d.fireEscalate(ctx, id)
		})
		if err != nil {
			return fmt.Errorf("bind escalate for point %d: %w", id, err)
		}
	}

	if point.ReminderDaysBefore > 0 {
		remindAt := point.TriggerDatetime.AddDate(0, 0, -point.ReminderDaysBefore)
		if remindAt.After(d.now()) {
			err := d.sched.Schedule(remindJobID(id), remindAt, func(ctx context.Context) error {
				return d.fireRemind(ctx, id)
			})
			if err != nil {
				return fmt.Errorf("bind remind for point %d: %w", id, err)
			}
		}
	}

	return nil
}

// CancelPoint removes every pending job for a point. Safe when no job
// exists; a job leak past completion is a correctness bug, so this runs
// unconditionally on every completion path.
func (d *Dispatcher) CancelPoint(pointID uint) {
	d.sched.Cancel(dispatchJobID(pointID))
	d.sched.Cancel(escalateJobID(pointID))
	d.sched.Cancel(remindJobID(pointID))
}

// PointBound reports whether any job is pending for the point.
func (d *Dispatcher) PointBound(pointID uint) bool {
	return d.sched.Pending(dispatchJobID(pointID)) ||
		d.sched.Pending(escalateJobID(pointID)) ||
		d.sched.Pending(remindJobID(pointID))
}

// Rehydrate rebuilds the scheduler's job set from the store after a
// restart: for every user with an active roadmap the current point is
// re-bound, and incomplete points with deadlines get their escalation
// jobs back. Past-due times fire on the next loop pass. Already-bound
// points are skipped, so the periodic sweep can call this repeatedly.
func (d *Dispatcher) Rehydrate(ctx context.Context) error {
	users, err := d.store.UsersWithActiveRoadmaps(ctx)
	if err != nil {
		return fmt.Errorf("rehydrate: list users: %w", err)
	}

	for _, user := range users {
		point, err := d.store.NextActivePointForUser(ctx, user.ID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				continue
			}
			return fmt.Errorf("rehydrate: next point for user %d: %w", user.ID, err)
		}
		// An auto-closing point that was delivered but never marked
		// completed (the completion write was lost) has no job left to
		// fire; finish it now so the roadmap advances.
		if point.AutoClosing && point.DeliveredAt != nil && !point.IsCompleted {
			if err := d.Complete(ctx, point.ID); err != nil {
				return fmt.Errorf("rehydrate: finish point %d: %w", point.ID, err)
			}
			continue
		}
		if d.PointBound(point.ID) {
			continue
		}
		if err := d.BindPoint(point); err != nil {
			return err
		}
	}

	// Deadlines may exist on points beyond the current one after
	// manual edits; make sure none is left without its escalation.
	points, err := d.store.PointsPendingEscalation(ctx)
	if err != nil {
		return fmt.Errorf("rehydrate: pending escalations: %w", err)
	}
	for _, point := range points {
		if d.sched.Pending(escalateJobID(point.ID)) {
			continue
		}
		id := point.ID
		err := d.sched.Schedule(escalateJobID(id), *point.CheckDatetime, func(ctx context.Context) error {
			return d.fireEscalate(ctx, id)
		})
		if err != nil {
			return fmt.Errorf("rehydrate: bind escalate for point %d: %w", id, err)
		}
	}
	return nil
}
