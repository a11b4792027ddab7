package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/onboardkit/roadmapbot/pkg/core"
	"github.com/onboardkit/roadmapbot/pkg/scheduler"
)

// Dispatcher couples the store, the scheduler and the chat transport.
// It owns the whole point lifecycle after assignment.
type Dispatcher struct {
	store  core.Store
	sched  *scheduler.Scheduler
	msgr   Messenger
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New creates a Dispatcher.
func New(store core.Store, sched *scheduler.Scheduler, msgr Messenger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:  store,
		sched:  sched,
		msgr:   msgr,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// fireDispatch handles a due dispatch job: load the point, branch on
// its type, perform the user-facing action. A failure here marks the
// job fired-but-failed; other points and roadmaps are unaffected.
func (d *Dispatcher) fireDispatch(ctx context.Context, pointID uint) error {
	point, err := d.store.GetPoint(ctx, pointID)
	if err != nil {
		return fmt.Errorf("dispatch point %d: %w", pointID, err)
	}
	if point.IsCompleted {
		return nil
	}

	user, err := d.store.UserForRoadmap(ctx, point.RoadmapID)
	if err != nil {
		return fmt.Errorf("dispatch point %d: resolve intern: %w", pointID, err)
	}

	switch point.PointType {
	case core.PointNotification:
		return d.dispatchNotification(ctx, point, user)
	case core.PointTest:
		return d.dispatchTest(ctx, point, user)
	case core.PointFeedbackRequest:
		return d.dispatchFeedbackRequest(ctx, point, user)
	default:
		return &core.UnknownPointTypeError{PointID: point.ID, Type: point.PointType}
	}
}

// dispatchNotification sends the notification text and completes the
// point immediately (auto-closing semantics).
func (d *Dispatcher) dispatchNotification(ctx context.Context, point *core.ReferencePoint, user *core.User) error {
	if point.Notification == nil {
		return fmt.Errorf("dispatch point %d: notification sub-record missing", point.ID)
	}
	if _, err := d.msgr.Send(ctx, user.TgID, fmt.Sprintf(notificationText, point.Notification.Text), nil); err != nil {
		return fmt.Errorf("dispatch point %d: send notification: %w", point.ID, err)
	}
	if err := d.store.MarkPointDelivered(ctx, point.ID, d.now()); err != nil {
		return err
	}
	return d.Complete(ctx, point.ID)
}

// dispatchTest sends the confirmation prompt; the questions follow once
// the intern confirms via StartTest.
func (d *Dispatcher) dispatchTest(ctx context.Context, point *core.ReferencePoint, user *core.User) error {
	if point.Test == nil {
		return fmt.Errorf("dispatch point %d: test sub-record missing", point.ID)
	}
	kb := Row(Button{
		Text:         testStartButton,
		CallbackData: fmt.Sprintf("start_test:%d", point.ID),
	})
	if _, err := d.msgr.Send(ctx, user.TgID, testPromptText, kb); err != nil {
		return fmt.Errorf("dispatch point %d: send test prompt: %w", point.ID, err)
	}
	return d.store.MarkPointDelivered(ctx, point.ID, d.now())
}

// dispatchFeedbackRequest sends the feedback prompt with a reply
// control.
func (d *Dispatcher) dispatchFeedbackRequest(ctx context.Context, point *core.ReferencePoint, user *core.User) error {
	if point.FeedbackRequest == nil {
		return fmt.Errorf("dispatch point %d: feedback sub-record missing", point.ID)
	}
	kb := Row(Button{
		Text:         feedbackReplyButton,
		CallbackData: fmt.Sprintf("feedback:%d", point.ID),
	})
	text := feedbackPromptText
	if point.FeedbackRequest.Text != "" {
		text = point.FeedbackRequest.Text
	}
	if _, err := d.msgr.Send(ctx, user.TgID, text, kb); err != nil {
		return fmt.Errorf("dispatch point %d: send feedback prompt: %w", point.ID, err)
	}
	return d.store.MarkPointDelivered(ctx, point.ID, d.now())
}

// Complete marks a point completed, cancels its pending jobs and binds
// the next active point for the intern. Idempotent: a repeated call on
// a completed point cancels nothing new and does not advance twice.
func (d *Dispatcher) Complete(ctx context.Context, pointID uint) error {
	point, transitioned, err := d.store.CompletePoint(ctx, pointID, d.now())
	if err != nil {
		return fmt.Errorf("complete point %d: %w", pointID, err)
	}

	// Jobs must never outlive completion, whether or not this call won
	// the transition.
	d.CancelPoint(pointID)

	if !transitioned {
		return nil
	}
	d.logger.Info("point completed",
		"point_id", pointID,
		"roadmap_id", point.RoadmapID,
		"point_type", string(point.PointType))

	return d.advance(ctx, point.RoadmapID)
}

// advance binds the next active point of the roadmap's intern, if any.
func (d *Dispatcher) advance(ctx context.Context, roadmapID uint) error {
	user, err := d.store.UserForRoadmap(ctx, roadmapID)
	if err != nil {
		return fmt.Errorf("advance roadmap %d: resolve intern: %w", roadmapID, err)
	}

	next, err := d.store.NextActivePointForUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			d.logger.Info("roadmap finished", "roadmap_id", roadmapID, "user_id", user.ID)
			return nil
		}
		return fmt.Errorf("advance roadmap %d: %w", roadmapID, err)
	}

	if err := d.BindPoint(next); err != nil {
		return fmt.Errorf("advance roadmap %d: %w", roadmapID, err)
	}
	d.logger.Info("next point bound",
		"roadmap_id", roadmapID,
		"point_id", next.ID,
		"trigger_at", next.TriggerDatetime)
	return nil
}

// StartTest sends every question of a test point with answer-choice
// controls. Called when the intern confirms the test prompt.
func (d *Dispatcher) StartTest(ctx context.Context, pointID uint) error {
	point, err := d.store.GetPoint(ctx, pointID)
	if err != nil {
		return fmt.Errorf("start test for point %d: %w", pointID, err)
	}
	if point.Test == nil {
		return fmt.Errorf("start test for point %d: test sub-record missing", pointID)
	}
	user, err := d.store.UserForRoadmap(ctx, point.RoadmapID)
	if err != nil {
		return fmt.Errorf("start test for point %d: resolve intern: %w", pointID, err)
	}

	for _, q := range point.Test.Questions {
		answers, err := q.AnswerList()
		if err != nil {
			return err
		}
		kb := &Keyboard{}
		for i, answer := range answers {
			kb.Rows = append(kb.Rows, []Button{{
				Text:         answer,
				CallbackData: fmt.Sprintf("answer:%d:%d", q.ID, i+1),
			}})
		}
		if _, err := d.msgr.Send(ctx, user.TgID, q.TextQuestion, kb); err != nil {
			return fmt.Errorf("start test for point %d: send question %d: %w", pointID, q.ID, err)
		}
	}
	return nil
}

// RecordAnswer stores the intern's answer to one question and confirms
// it. The point completes when no unanswered questions remain; a single
// answer never completes a multi-question test by itself.
func (d *Dispatcher) RecordAnswer(ctx context.Context, questionID uint, answerIndex int) error {
	if _, err := d.store.SaveAnswer(ctx, questionID, answerIndex); err != nil {
		return fmt.Errorf("record answer for question %d: %w", questionID, err)
	}

	point, err := d.store.PointForQuestion(ctx, questionID)
	if err != nil {
		return fmt.Errorf("record answer for question %d: %w", questionID, err)
	}
	user, err := d.store.UserForRoadmap(ctx, point.RoadmapID)
	if err != nil {
		return fmt.Errorf("record answer for question %d: resolve intern: %w", questionID, err)
	}

	if point.Test == nil || point.Test.UnansweredCount() > 0 {
		if _, err := d.msgr.Send(ctx, user.TgID, testAnswerSaved, nil); err != nil {
			d.logger.Error("failed to confirm answer", "question_id", questionID, "error", err)
		}
		return nil
	}

	if err := d.Complete(ctx, point.ID); err != nil {
		return err
	}
	if _, err := d.msgr.Send(ctx, user.TgID, testPointComplete, nil); err != nil {
		d.logger.Error("failed to confirm test completion", "point_id", point.ID, "error", err)
	}
	return nil
}

// RecordFeedback stores the intern's free-text reply on a feedback
// request point and completes it.
func (d *Dispatcher) RecordFeedback(ctx context.Context, pointID uint, text string) error {
	if err := core.ValidateFeedback(text); err != nil {
		return err
	}
	if err := d.store.SaveFeedback(ctx, pointID, core.TruncateFeedback(text)); err != nil {
		return fmt.Errorf("record feedback for point %d: %w", pointID, err)
	}
	if err := d.Complete(ctx, pointID); err != nil {
		return err
	}

	point, err := d.store.GetPoint(ctx, pointID)
	if err != nil {
		return err
	}
	user, err := d.store.UserForRoadmap(ctx, point.RoadmapID)
	if err != nil {
		return err
	}
	if _, err := d.msgr.Send(ctx, user.TgID, feedbackSaved, nil); err != nil {
		d.logger.Error("failed to confirm feedback", "point_id", pointID, "error", err)
	}
	return nil
}
