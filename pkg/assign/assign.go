package assign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/onboardkit/roadmapbot/pkg/core"
	"github.com/onboardkit/roadmapbot/pkg/dispatch"
)

// Assigner builds live roadmaps from templates.
type Assigner struct {
	store      core.Store
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// New creates an Assigner.
func New(store core.Store, dispatcher *dispatch.Dispatcher) *Assigner {
	return &Assigner{store: store, dispatcher: dispatcher, logger: slog.Default()}
}

// Assign instantiates the template as a live roadmap for the intern.
// inputs must contain one entry per assignable (unblocked) template
// point, in OrderExecution order. All inputs are validated before
// anything is persisted; only the first active point's jobs are bound.
func (a *Assigner) Assign(ctx context.Context, templateID, internID uint, inputs []PointInput) (*core.RoadMap, error) {
	tpl, err := a.store.GetTemplateRoadmap(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if tpl.IsBlocked {
		return nil, core.ErrTemplateBlocked
	}

	intern, err := a.store.GetUser(ctx, internID)
	if err != nil {
		return nil, err
	}
	if _, err := a.store.ActiveRoadmapForUser(ctx, internID); err == nil {
		return nil, core.ErrRoadmapActive
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	points := tpl.AssignablePoints()
	if len(inputs) != len(points) {
		return nil, &core.ValidationError{
			Field:  "inputs",
			Reason: fmt.Sprintf("expected %d schedule entries, got %d", len(points), len(inputs)),
		}
	}

	// Validate everything before touching the store.
	loc := intern.Location()
	schedules := make([]PointSchedule, len(inputs))
	for i, in := range inputs {
		sched, err := ParsePointInput(in, loc)
		if err != nil {
			return nil, err
		}
		schedules[i] = sched
	}

	roadmap := &core.RoadMap{
		Name:        tpl.Name,
		Description: tpl.Description,
		IsActive:    true,
	}
	for i, tp := range points {
		roadmap.ReferencePoints = append(roadmap.ReferencePoints, buildPoint(tp, schedules[i]))
	}

	if err := a.store.CreateRoadmap(ctx, roadmap, internID); err != nil {
		return nil, fmt.Errorf("assign template %d: %w", templateID, err)
	}
	a.logger.Info("roadmap assigned",
		"roadmap_id", roadmap.ID,
		"template_id", templateID,
		"user_id", internID,
		"points", len(roadmap.ReferencePoints))

	first, err := a.store.NextActivePointForUser(ctx, internID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return roadmap, nil
		}
		return nil, err
	}
	if err := a.dispatcher.BindPoint(first); err != nil {
		return nil, err
	}
	return roadmap, nil
}

// buildPoint copies one template point and its sub-record into a live
// point with the operator-supplied schedule.
func buildPoint(tp core.TemplateReferencePoint, sched PointSchedule) core.ReferencePoint {
	point := core.ReferencePoint{
		Name:               tp.Name,
		PointType:          tp.PointType,
		OrderExecution:     tp.OrderExecution,
		AutoClosing:        tp.AutoClosing,
		TriggerDatetime:    sched.Trigger,
		CheckDatetime:      sched.Check,
		ReminderDaysBefore: sched.ReminderDays,
	}

	switch tp.PointType {
	case core.PointNotification:
		if tp.Notification != nil {
			point.Notification = &core.Notification{
				Text:         tp.Notification.Text,
				NeedFeedback: tp.Notification.NeedFeedback,
				Links:        tp.Notification.Links,
				ServiceNotes: tp.Notification.ServiceNotes,
			}
		}
	case core.PointTest:
		if tp.Test != nil {
			test := &core.Test{
				Name:        tp.Test.Name,
				TimeRespond: tp.Test.TimeRespond,
			}
			for _, tq := range tp.Test.Questions {
				test.Questions = append(test.Questions, core.Question{
					TextQuestion:  tq.TextQuestion,
					Answers:       tq.Answers,
					CorrectAnswer: tq.CorrectAnswer,
				})
			}
			point.Test = test
		}
	case core.PointFeedbackRequest:
		if tp.FeedbackRequest != nil {
			point.FeedbackRequest = &core.FeedbackRequest{
				Text: tp.FeedbackRequest.Text,
			}
		}
	}
	return point
}
