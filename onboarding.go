// Package roadmapbot provides the onboarding roadmap engine for a
// restaurant-chain Telegram bot: roadmaps of scheduled reference points
// (notifications, tests, feedback requests) assigned to interns from
// templates, with one-shot dispatch, deadline escalation and reminder
// jobs driven by a single process-wide scheduler.
//
// This is the main package users should import. It re-exports the
// public types from the pkg/ packages for a clean API surface.
//
// Basic usage:
//
//	db, _ := gorm.Open(sqlite.Open("roadmapbot.db"), &gorm.Config{})
//	store := roadmapbot.NewGormStore(db)
//	store.Migrate(context.Background())
//
//	sched := roadmapbot.NewScheduler()
//	dispatcher := roadmapbot.NewDispatcher(store, sched, messenger)
//	assigner := roadmapbot.NewAssigner(store, dispatcher)
//
//	go sched.Start(ctx)
//	dispatcher.Rehydrate(ctx)
package roadmapbot

import (
	"time"

	"github.com/onboardkit/roadmapbot/pkg/assign"
	"github.com/onboardkit/roadmapbot/pkg/core"
	"github.com/onboardkit/roadmapbot/pkg/dispatch"
	"github.com/onboardkit/roadmapbot/pkg/scheduler"
	"github.com/onboardkit/roadmapbot/pkg/storage"
	"gorm.io/gorm"
)

// Type aliases re-exporting the domain surface.
type (
	// User is a bot user: intern, manager or admin.
	User = core.User

	// Restaurant scopes users and templates.
	Restaurant = core.Restaurant

	// RoadMap is an ordered set of reference points assigned to one intern.
	RoadMap = core.RoadMap

	// ReferencePoint is a single scheduled unit of onboarding work.
	ReferencePoint = core.ReferencePoint

	// PointType identifies the kind of action a point carries.
	PointType = core.PointType

	// PointStatus is the derived lifecycle state of a point.
	PointStatus = core.PointStatus

	// TemplateRoadMap is a reusable roadmap blueprint.
	TemplateRoadMap = core.TemplateRoadMap

	// TemplateReferencePoint is the blueprint for one point.
	TemplateReferencePoint = core.TemplateReferencePoint

	// Store is the persistence contract.
	Store = core.Store

	// GormStore implements Store using GORM.
	GormStore = storage.GormStore

	// Scheduler is the process-wide one-shot job scheduler.
	Scheduler = scheduler.Scheduler

	// Sweep defines when a recurring maintenance pass runs next.
	Sweep = scheduler.Sweep

	// Dispatcher owns the point lifecycle after assignment.
	Dispatcher = dispatch.Dispatcher

	// Messenger is the chat transport boundary.
	Messenger = dispatch.Messenger

	// Keyboard is a grid of inline controls attached to a message.
	Keyboard = dispatch.Keyboard

	// Button is one inline keyboard control.
	Button = dispatch.Button

	// Assigner instantiates live roadmaps from templates.
	Assigner = assign.Assigner

	// PointInput is the raw operator schedule input for one point.
	PointInput = assign.PointInput

	// ValidationError reports malformed operator input.
	ValidationError = core.ValidationError

	// UnknownPointTypeError reports a point with an unknown type.
	UnknownPointTypeError = core.UnknownPointTypeError
)

// Point type constants.
const (
	PointNotification    = core.PointNotification
	PointTest            = core.PointTest
	PointFeedbackRequest = core.PointFeedbackRequest
)

// Point status constants.
const (
	StatusPending          = core.StatusPending
	StatusDelivered        = core.StatusDelivered
	StatusAwaitingResponse = core.StatusAwaitingResponse
	StatusCompleted        = core.StatusCompleted
)

// Error variables.
var (
	ErrNotFound      = core.ErrNotFound
	ErrRoadmapActive = core.ErrRoadmapActive
	ErrDuplicateJob  = scheduler.ErrDuplicateJob
)

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) *GormStore {
	return storage.NewGormStore(db)
}

// NewScheduler creates the process-wide scheduler.
func NewScheduler(opts ...scheduler.Option) *Scheduler {
	return scheduler.New(opts...)
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(store Store, sched *Scheduler, msgr Messenger, opts ...dispatch.Option) *Dispatcher {
	return dispatch.New(store, sched, msgr, opts...)
}

// NewAssigner creates an Assigner.
func NewAssigner(store Store, dispatcher *Dispatcher) *Assigner {
	return assign.New(store, dispatcher)
}

// Every creates a sweep that runs at fixed intervals.
func Every(d time.Duration) Sweep {
	return scheduler.Every(d)
}

// Cron creates a sweep from a standard five-field cron expression.
func Cron(expr string) Sweep {
	return scheduler.Cron(expr)
}
