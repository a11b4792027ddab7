package core

import (
	"context"
	"time"
)

// Store defines the persistence layer for the onboarding engine.
// Implementations map missing rows to ErrNotFound. The scheduler holds
// only re-derivable timer state; this store is the single source of
// truth for what must fire.
type Store interface {
	// Migrate creates the necessary database tables.
	Migrate(ctx context.Context) error

	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id uint) (*User, error)
	GetUserByTgID(ctx context.Context, tgID int64) (*User, error)
	UpdateUserFields(ctx context.Context, id uint, fields map[string]any) error
	Interns(ctx context.Context, managerID uint) ([]*User, error)
	UserForRoadmap(ctx context.Context, roadmapID uint) (*User, error)
	UsersWithActiveRoadmaps(ctx context.Context) ([]*User, error)

	// Restaurants
	CreateRestaurant(ctx context.Context, r *Restaurant) error
	GetRestaurant(ctx context.Context, id uint) (*Restaurant, error)

	// Roadmaps
	CreateRoadmap(ctx context.Context, roadmap *RoadMap, internID uint) error
	GetRoadmap(ctx context.Context, id uint) (*RoadMap, error)
	ActiveRoadmapForUser(ctx context.Context, userID uint) (*RoadMap, error)
	TerminateRoadmap(ctx context.Context, id uint, reason string) error
	DeleteRoadmap(ctx context.Context, id uint) error

	// Reference points
	GetPoint(ctx context.Context, id uint) (*ReferencePoint, error)
	ActivePointsForUser(ctx context.Context, userID uint) ([]*ReferencePoint, error)
	NextActivePointForUser(ctx context.Context, userID uint) (*ReferencePoint, error)
	CompletePoint(ctx context.Context, id uint, at time.Time) (*ReferencePoint, bool, error)
	MarkPointDelivered(ctx context.Context, id uint, at time.Time) error
	UpdatePointFields(ctx context.Context, id uint, fields map[string]any) error

	// Sub-records
	SaveAnswer(ctx context.Context, questionID uint, answerIndex int) (*Question, error)
	SaveFeedback(ctx context.Context, pointID uint, text string) error
	SaveNotificationFeedback(ctx context.Context, pointID uint, text string) error
	PointForQuestion(ctx context.Context, questionID uint) (*ReferencePoint, error)

	// Templates
	CreateTemplateRoadmap(ctx context.Context, tpl *TemplateRoadMap) error
	GetTemplateRoadmap(ctx context.Context, id uint) (*TemplateRoadMap, error)
	TemplateRoadmapsForRestaurant(ctx context.Context, restaurantID uint) ([]*TemplateRoadMap, error)

	// Rehydration scans: incomplete points whose jobs must exist.
	PointsPendingEscalation(ctx context.Context) ([]*ReferencePoint, error)

	// Invitations
	CreateInvitation(ctx context.Context, inv *InvitationLink) error
	UseInvitation(ctx context.Context, token string, now time.Time) (*InvitationLink, error)

	// Dialogs
	SaveDialog(ctx context.Context, d *Dialog) error
	DialogBetween(ctx context.Context, a, b uint, limit int) ([]*Dialog, error)
}
