package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/onboardkit/roadmapbot/pkg/core"
)

// GormStore implements core.Store using GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates the necessary tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&core.Restaurant{},
		&core.User{},
		&core.TemplateRoadMap{},
		&core.TemplateReferencePoint{},
		&core.TemplateNotification{},
		&core.TemplateTest{},
		&core.TemplateQuestion{},
		&core.TemplateFeedbackRequest{},
		&core.RoadMap{},
		&core.ReferencePoint{},
		&core.Notification{},
		&core.Test{},
		&core.Question{},
		&core.FeedbackRequest{},
		&core.UserRoadMap{},
		&core.InvitationLink{},
		&core.Dialog{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.ErrNotFound
	}
	return err
}

// --- Users ---

// CreateUser persists a new user.
func (s *GormStore) CreateUser(ctx context.Context, user *core.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

// GetUser fetches a user by primary key.
func (s *GormStore) GetUser(ctx context.Context, id uint) (*core.User, error) {
	var user core.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUserByTgID fetches a user by Telegram id.
func (s *GormStore) GetUserByTgID(ctx context.Context, tgID int64) (*core.User, error) {
	var user core.User
	err := s.db.WithContext(ctx).Where("tg_id = ?", tgID).First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// UpdateUserFields applies a partial update to a user.
func (s *GormStore) UpdateUserFields(ctx context.Context, id uint, fields map[string]any) error {
	result := s.db.WithContext(ctx).Model(&core.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Interns returns the active interns supervised by a manager.
func (s *GormStore) Interns(ctx context.Context, managerID uint) ([]*core.User, error) {
	var users []*core.User
	err := s.db.WithContext(ctx).
		Where("manager_id = ?", managerID).
		Where("is_active = ?", true).
		Order("last_name ASC, first_name ASC").
		Find(&users).Error
	return users, err
}

// UserForRoadmap resolves the intern a roadmap is assigned to.
func (s *GormStore) UserForRoadmap(ctx context.Context, roadmapID uint) (*core.User, error) {
	var user core.User
	err := s.db.WithContext(ctx).
		Joins("JOIN user_road_maps ON user_road_maps.user_id = users.id").
		Where("user_road_maps.roadmap_id = ?", roadmapID).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// UsersWithActiveRoadmaps returns every user that currently has an
// active roadmap. Used by the rehydration scan at startup.
func (s *GormStore) UsersWithActiveRoadmaps(ctx context.Context) ([]*core.User, error) {
	var users []*core.User
	err := s.db.WithContext(ctx).
		Distinct("users.*").
		Joins("JOIN user_road_maps ON user_road_maps.user_id = users.id").
		Joins("JOIN road_maps ON road_maps.id = user_road_maps.roadmap_id").
		Where("road_maps.is_active = ?", true).
		Find(&users).Error
	return users, err
}

// --- Restaurants ---

func (s *GormStore) CreateRestaurant(ctx context.Context, r *core.Restaurant) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *GormStore) GetRestaurant(ctx context.Context, id uint) (*core.Restaurant, error) {
	var r core.Restaurant
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// --- Roadmaps ---

// CreateRoadmap persists a roadmap with its points and sub-records and
// binds it to the intern in one transaction.
func (s *GormStore) CreateRoadmap(ctx context.Context, roadmap *core.RoadMap, internID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(roadmap).Error; err != nil {
			return err
		}
		assoc := &core.UserRoadMap{UserID: internID, RoadmapID: roadmap.ID}
		return tx.Create(assoc).Error
	})
}

// GetRoadmap fetches a roadmap with points and sub-records preloaded.
func (s *GormStore) GetRoadmap(ctx context.Context, id uint) (*core.RoadMap, error) {
	var roadmap core.RoadMap
	err := s.db.WithContext(ctx).
		Preload("ReferencePoints.Notification").
		Preload("ReferencePoints.Test.Questions").
		Preload("ReferencePoints.FeedbackRequest").
		Preload("ReferencePoints").
		Preload("UserAssociations").
		First(&roadmap, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &roadmap, nil
}

// ActiveRoadmapForUser returns the user's active roadmap, or
// core.ErrNotFound when none exists.
func (s *GormStore) ActiveRoadmapForUser(ctx context.Context, userID uint) (*core.RoadMap, error) {
	var roadmap core.RoadMap
	err := s.db.WithContext(ctx).
		Preload("ReferencePoints.Notification").
		Preload("ReferencePoints.Test.Questions").
		Preload("ReferencePoints.FeedbackRequest").
		Joins("JOIN user_road_maps ON user_road_maps.roadmap_id = road_maps.id").
		Where("user_road_maps.user_id = ?", userID).
		Where("road_maps.is_active = ?", true).
		First(&roadmap).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &roadmap, nil
}

// TerminateRoadmap deactivates a roadmap and records the reason.
func (s *GormStore) TerminateRoadmap(ctx context.Context, id uint, reason string) error {
	result := s.db.WithContext(ctx).
		Model(&core.RoadMap{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":          false,
			"reason_termination": reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteRoadmap removes a roadmap; points, sub-records and user
// associations go with it via the cascade constraints.
func (s *GormStore) DeleteRoadmap(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&core.RoadMap{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- Reference points ---

func pointPreloads(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Notification").
		Preload("Test.Questions").
		Preload("FeedbackRequest")
}

// GetPoint fetches a point with its sub-record preloaded.
func (s *GormStore) GetPoint(ctx context.Context, id uint) (*core.ReferencePoint, error) {
	var point core.ReferencePoint
	err := pointPreloads(s.db.WithContext(ctx)).First(&point, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &point, nil
}

// ActivePointsForUser returns all incomplete points on the user's
// active roadmaps, ordered by OrderExecution ascending. Empty slice
// when none remain.
func (s *GormStore) ActivePointsForUser(ctx context.Context, userID uint) ([]*core.ReferencePoint, error) {
	var points []*core.ReferencePoint
	err := pointPreloads(s.db.WithContext(ctx)).
		Joins("JOIN road_maps ON road_maps.id = reference_points.roadmap_id").
		Joins("JOIN user_road_maps ON user_road_maps.roadmap_id = reference_points.roadmap_id").
		Where("user_road_maps.user_id = ?", userID).
		Where("road_maps.is_active = ?", true).
		Where("reference_points.is_completed = ?", false).
		Order("reference_points.order_execution ASC").
		Find(&points).Error
	return points, err
}

// NextActivePointForUser returns the earliest incomplete point for the
// user, or core.ErrNotFound when the roadmap is finished.
func (s *GormStore) NextActivePointForUser(ctx context.Context, userID uint) (*core.ReferencePoint, error) {
	var point core.ReferencePoint
	err := pointPreloads(s.db.WithContext(ctx)).
		Joins("JOIN road_maps ON road_maps.id = reference_points.roadmap_id").
		Joins("JOIN user_road_maps ON user_road_maps.roadmap_id = reference_points.roadmap_id").
		Where("user_road_maps.user_id = ?", userID).
		Where("road_maps.is_active = ?", true).
		Where("reference_points.is_completed = ?", false).
		Order("reference_points.order_execution ASC").
		First(&point).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &point, nil
}

// CompletePoint marks a point completed at the given time. Idempotent:
// the boolean reports whether this call performed the transition; a
// second call returns the point unchanged with false.
func (s *GormStore) CompletePoint(ctx context.Context, id uint, at time.Time) (*core.ReferencePoint, bool, error) {
	result := s.db.WithContext(ctx).
		Model(&core.ReferencePoint{}).
		Where("id = ?", id).
		Where("is_completed = ?", false).
		Updates(map[string]any{
			"is_completed":        true,
			"completion_datetime": at,
		})
	if result.Error != nil {
		return nil, false, result.Error
	}
	transitioned := result.RowsAffected > 0

	point, err := s.GetPoint(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return point, transitioned, nil
}

// MarkPointDelivered records that the dispatch action was sent.
func (s *GormStore) MarkPointDelivered(ctx context.Context, id uint, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&core.ReferencePoint{}).
		Where("id = ?", id).
		Update("delivered_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// UpdatePointFields applies a partial update to a point (editors:
// name, schedule fields, is_blocked).
func (s *GormStore) UpdatePointFields(ctx context.Context, id uint, fields map[string]any) error {
	result := s.db.WithContext(ctx).
		Model(&core.ReferencePoint{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- Sub-records ---

// SaveAnswer records the intern's answer to one test question and
// returns the updated question.
func (s *GormStore) SaveAnswer(ctx context.Context, questionID uint, answerIndex int) (*core.Question, error) {
	result := s.db.WithContext(ctx).
		Model(&core.Question{}).
		Where("id = ?", questionID).
		Update("user_answer", answerIndex)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, core.ErrNotFound
	}
	var q core.Question
	if err := s.db.WithContext(ctx).First(&q, questionID).Error; err != nil {
		return nil, notFound(err)
	}
	return &q, nil
}

// SaveFeedback stores the intern's reply on a feedback request point.
func (s *GormStore) SaveFeedback(ctx context.Context, pointID uint, text string) error {
	result := s.db.WithContext(ctx).
		Model(&core.FeedbackRequest{}).
		Where("reference_point_id = ?", pointID).
		Update("user_answer", text)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// SaveNotificationFeedback stores optional feedback on a notification.
func (s *GormStore) SaveNotificationFeedback(ctx context.Context, pointID uint, text string) error {
	result := s.db.WithContext(ctx).
		Model(&core.Notification{}).
		Where("reference_point_id = ?", pointID).
		Update("user_feedback", text)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// PointForQuestion resolves the reference point that owns a question.
func (s *GormStore) PointForQuestion(ctx context.Context, questionID uint) (*core.ReferencePoint, error) {
	var q core.Question
	if err := s.db.WithContext(ctx).First(&q, questionID).Error; err != nil {
		return nil, notFound(err)
	}
	var test core.Test
	if err := s.db.WithContext(ctx).First(&test, q.TestID).Error; err != nil {
		return nil, notFound(err)
	}
	return s.GetPoint(ctx, test.ReferencePointID)
}

// --- Templates ---

func (s *GormStore) CreateTemplateRoadmap(ctx context.Context, tpl *core.TemplateRoadMap) error {
	return s.db.WithContext(ctx).Create(tpl).Error
}

// GetTemplateRoadmap fetches a template with points and sub-records
// preloaded.
func (s *GormStore) GetTemplateRoadmap(ctx context.Context, id uint) (*core.TemplateRoadMap, error) {
	var tpl core.TemplateRoadMap
	err := s.db.WithContext(ctx).
		Preload("ReferencePoints.Notification").
		Preload("ReferencePoints.Test.Questions").
		Preload("ReferencePoints.FeedbackRequest").
		First(&tpl, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &tpl, nil
}

// TemplateRoadmapsForRestaurant lists the unblocked templates of one
// restaurant.
func (s *GormStore) TemplateRoadmapsForRestaurant(ctx context.Context, restaurantID uint) ([]*core.TemplateRoadMap, error) {
	var tpls []*core.TemplateRoadMap
	err := s.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Where("is_blocked = ?", false).
		Order("name ASC").
		Find(&tpls).Error
	return tpls, err
}

// --- Rehydration scans ---

// PointsPendingEscalation returns incomplete points on active roadmaps
// that carry a deadline, past-due included. The caller re-binds their
// escalation jobs after a restart.
func (s *GormStore) PointsPendingEscalation(ctx context.Context) ([]*core.ReferencePoint, error) {
	var points []*core.ReferencePoint
	err := pointPreloads(s.db.WithContext(ctx)).
		Joins("JOIN road_maps ON road_maps.id = reference_points.roadmap_id").
		Where("road_maps.is_active = ?", true).
		Where("reference_points.is_completed = ?", false).
		Where("reference_points.check_datetime IS NOT NULL").
		Order("reference_points.check_datetime ASC").
		Find(&points).Error
	return points, err
}

// --- Invitations ---

func (s *GormStore) CreateInvitation(ctx context.Context, inv *core.InvitationLink) error {
	return s.db.WithContext(ctx).Create(inv).Error
}

// UseInvitation atomically consumes an unused, unexpired token.
func (s *GormStore) UseInvitation(ctx context.Context, token string, now time.Time) (*core.InvitationLink, error) {
	var inv core.InvitationLink
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("link_token = ?", token).
			Where("is_used = ?", false).
			Where("expires_at > ?", now).
			First(&inv).Error
		if err != nil {
			return notFound(err)
		}
		inv.IsUsed = true
		return tx.Save(&inv).Error
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// --- Dialogs ---

func (s *GormStore) SaveDialog(ctx context.Context, d *core.Dialog) error {
	return s.db.WithContext(ctx).Create(d).Error
}

// DialogBetween returns the most recent messages between two users,
// newest first.
func (s *GormStore) DialogBetween(ctx context.Context, a, b uint, limit int) ([]*core.Dialog, error) {
	var dialogs []*core.Dialog
	err := s.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", a, b, b, a).
		Order("message_datetime DESC").
		Limit(limit).
		Find(&dialogs).Error
	return dialogs, err
}
