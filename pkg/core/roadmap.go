package core

import (
	"sort"
	"time"
)

// RoadMap is an ordered sequence of reference points assigned to one
// intern. It stays active until every point completes or a manager
// terminates it early with a reason.
type RoadMap struct {
	ID                uint   `gorm:"primaryKey"`
	Name              string `gorm:"size:100;not null"`
	Description       string `gorm:"type:text"`
	IsActive          bool   `gorm:"index;default:true"`
	ReasonTermination *string
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`

	ReferencePoints  []ReferencePoint `gorm:"foreignKey:RoadmapID;constraint:OnDelete:CASCADE"`
	UserAssociations []UserRoadMap    `gorm:"foreignKey:RoadmapID;constraint:OnDelete:CASCADE"`
}

// Points returns all loaded reference points ordered by OrderExecution.
func (r *RoadMap) Points() []ReferencePoint {
	points := make([]ReferencePoint, len(r.ReferencePoints))
	copy(points, r.ReferencePoints)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].OrderExecution < points[j].OrderExecution
	})
	return points
}

// ActivePoints returns only the incomplete points, ordered by
// OrderExecution.
func (r *RoadMap) ActivePoints() []ReferencePoint {
	var points []ReferencePoint
	for _, p := range r.ReferencePoints {
		if !p.IsCompleted {
			points = append(points, p)
		}
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].OrderExecution < points[j].OrderExecution
	})
	return points
}

// CurrentPoint returns the first incomplete point that has an active
// deadline window (non-nil CheckDatetime), or nil when no such point
// exists even if incomplete points without deadlines remain.
func (r *RoadMap) CurrentPoint() *ReferencePoint {
	for _, p := range r.ActivePoints() {
		if p.CheckDatetime != nil {
			point := p
			return &point
		}
	}
	return nil
}

// UserRoadMap associates a roadmap with its assigned intern. Modeled as
// a separate table for extensibility; the business rule allows only one
// active roadmap per user at a time.
type UserRoadMap struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;not null"`
	RoadmapID uint      `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
