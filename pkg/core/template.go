package core

import (
	"sort"
	"time"
)

// TemplateRoadMap is a restaurant-scoped, reusable blueprint for a
// roadmap. Blocked templates are unavailable for new assignment.
// Templates carry no schedule fields; trigger and deadline times are
// supplied by the operator at assignment time.
type TemplateRoadMap struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:100;not null"`
	Description  string `gorm:"type:text"`
	IsBlocked    bool   `gorm:"default:false"`
	RestaurantID *uint  `gorm:"index"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`

	ReferencePoints []TemplateReferencePoint `gorm:"foreignKey:TemplateRoadmapID;constraint:OnDelete:CASCADE"`
}

// AssignablePoints returns the unblocked template points ordered by
// OrderExecution. These are the points an assignment instantiates.
func (t *TemplateRoadMap) AssignablePoints() []TemplateReferencePoint {
	var points []TemplateReferencePoint
	for _, p := range t.ReferencePoints {
		if !p.IsBlocked {
			points = append(points, p)
		}
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].OrderExecution < points[j].OrderExecution
	})
	return points
}

// TemplateReferencePoint is the blueprint for one reference point.
type TemplateReferencePoint struct {
	ID                uint      `gorm:"primaryKey"`
	Name              string    `gorm:"size:100;not null"`
	PointType         PointType `gorm:"size:20;not null;default:'NOTIFICATION'"`
	OrderExecution    int       `gorm:"index;not null"`
	IsBlocked         bool      `gorm:"default:false"`
	AutoClosing       bool      `gorm:"default:true"`
	RestaurantID      *uint     `gorm:"index"`
	TemplateRoadmapID uint      `gorm:"index;not null"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`

	Notification    *TemplateNotification    `gorm:"foreignKey:TemplateReferencePointID;constraint:OnDelete:CASCADE"`
	Test            *TemplateTest            `gorm:"foreignKey:TemplateReferencePointID;constraint:OnDelete:CASCADE"`
	FeedbackRequest *TemplateFeedbackRequest `gorm:"foreignKey:TemplateReferencePointID;constraint:OnDelete:CASCADE"`
}

// TemplateNotification is the notification blueprint.
type TemplateNotification struct {
	ID                       uint   `gorm:"primaryKey"`
	Text                     string `gorm:"type:text;not null"`
	NeedFeedback             bool   `gorm:"default:false"`
	Links                    string `gorm:"type:text"`
	ServiceNotes             string `gorm:"type:text"`
	TemplateReferencePointID uint   `gorm:"uniqueIndex;not null"`
}

// TemplateTest is the test blueprint with its question set.
type TemplateTest struct {
	ID                       uint   `gorm:"primaryKey"`
	Name                     string `gorm:"size:100;not null"`
	TimeRespond              int    `gorm:"default:20"`
	TemplateReferencePointID uint   `gorm:"uniqueIndex;not null"`

	Questions []TemplateQuestion `gorm:"foreignKey:TemplateTestID;constraint:OnDelete:CASCADE"`
}

// TemplateQuestion is a question blueprint; Answers is JSON-encoded
// like Question.Answers.
type TemplateQuestion struct {
	ID             uint   `gorm:"primaryKey"`
	TextQuestion   string `gorm:"type:text;not null"`
	Answers        string `gorm:"type:text;not null"`
	CorrectAnswer  int    `gorm:"not null"`
	TemplateTestID uint   `gorm:"index;not null"`
}

// TemplateFeedbackRequest is the feedback request blueprint.
type TemplateFeedbackRequest struct {
	ID                       uint   `gorm:"primaryKey"`
	Text                     string `gorm:"type:text;not null"`
	TemplateReferencePointID uint   `gorm:"uniqueIndex;not null"`
}
