package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/onboardkit/roadmapbot/pkg/core"
)

// fireEscalate handles a due escalation job: if the point is still
// incomplete at the deadline, the supervising manager is notified.
// Completion is re-checked at fire time: a point completed between
// scheduling and firing must never escalate, even if the cancel raced
// the firing.
func (d *Dispatcher) fireEscalate(ctx context.Context, pointID uint) error {
	point, err := d.store.GetPoint(ctx, pointID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("escalate point %d: %w", pointID, err)
	}
	if point.IsCompleted {
		d.logger.Debug("escalation skipped, point already completed", "point_id", pointID)
		return nil
	}

	intern, err := d.store.UserForRoadmap(ctx, point.RoadmapID)
	if err != nil {
		return fmt.Errorf("escalate point %d: resolve intern: %w", pointID, err)
	}
	if intern.ManagerID == nil {
		d.logger.Warn("escalation dropped, intern has no manager",
			"point_id", pointID, "user_id", intern.ID)
		return nil
	}
	manager, err := d.store.GetUser(ctx, *intern.ManagerID)
	if err != nil {
		return fmt.Errorf("escalate point %d: resolve manager: %w", pointID, err)
	}

	text := fmt.Sprintf(missedDeadlineText, intern.FirstName, intern.LastName, point.Name)
	if _, err := d.msgr.Send(ctx, manager.TgID, text, nil); err != nil {
		// No retry: a transport failure here is logged and dropped.
		d.logger.Error("escalation send failed",
			"point_id", pointID, "manager_id", manager.ID, "error", err)
		return nil
	}
	d.logger.Info("deadline escalated",
		"point_id", pointID, "user_id", intern.ID, "manager_id", manager.ID)
	return nil
}

// fireRemind handles a due reminder job: a short heads-up to the intern
// ReminderDaysBefore days ahead of the trigger. Skipped when the point
// completed early.
func (d *Dispatcher) fireRemind(ctx context.Context, pointID uint) error {
	point, err := d.store.GetPoint(ctx, pointID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("remind point %d: %w", pointID, err)
	}
	if point.IsCompleted {
		return nil
	}

	user, err := d.store.UserForRoadmap(ctx, point.RoadmapID)
	if err != nil {
		return fmt.Errorf("remind point %d: resolve intern: %w", pointID, err)
	}
	if _, err := d.msgr.Send(ctx, user.TgID, fmt.Sprintf(reminderText, point.Name), nil); err != nil {
		d.logger.Error("reminder send failed", "point_id", pointID, "error", err)
		return nil
	}
	return nil
}
