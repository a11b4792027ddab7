package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// PointType identifies the kind of user-facing action a reference point
// carries. The set is closed: dispatch switches over it exhaustively and
// anything else is rejected with UnknownPointTypeError.
type PointType string

const (
	PointNotification    PointType = "NOTIFICATION"
	PointTest            PointType = "TEST"
	PointFeedbackRequest PointType = "FEEDBACK_REQUEST"
)

// Valid reports whether t is one of the known point types.
func (t PointType) Valid() bool {
	switch t {
	case PointNotification, PointTest, PointFeedbackRequest:
		return true
	}
	return false
}

// PointStatus is the derived lifecycle state of a reference point.
type PointStatus string

const (
	StatusPending          PointStatus = "pending"
	StatusDelivered        PointStatus = "delivered"
	StatusAwaitingResponse PointStatus = "awaiting_response"
	StatusCompleted        PointStatus = "completed"
)

// ReferencePoint is a single scheduled unit of onboarding work attached
// to a roadmap. Exactly one of Notification, Test or FeedbackRequest is
// populated, matching PointType.
type ReferencePoint struct {
	ID                 uint      `gorm:"primaryKey"`
	Name               string    `gorm:"size:100;not null"`
	PointType          PointType `gorm:"size:20;not null;default:'NOTIFICATION'"`
	OrderExecution     int       `gorm:"index;not null"`
	IsBlocked          bool      `gorm:"default:false"`
	AutoClosing        bool      `gorm:"default:true"`
	TriggerDatetime    time.Time `gorm:"index;not null"`
	CheckDatetime      *time.Time
	ReminderDaysBefore int `gorm:"default:0"`
	DeliveredAt        *time.Time
	CompletionDatetime *time.Time
	IsCompleted        bool      `gorm:"index;default:false"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`

	RoadmapID uint `gorm:"index;not null"`

	Notification    *Notification    `gorm:"foreignKey:ReferencePointID;constraint:OnDelete:CASCADE"`
	Test            *Test            `gorm:"foreignKey:ReferencePointID;constraint:OnDelete:CASCADE"`
	FeedbackRequest *FeedbackRequest `gorm:"foreignKey:ReferencePointID;constraint:OnDelete:CASCADE"`
}

// Status derives the lifecycle state from the persisted fields.
// Delivered-but-incomplete only occurs for auto-closing points in the
// window between send and completion; points that wait for the intern
// report awaiting_response instead.
func (p *ReferencePoint) Status() PointStatus {
	switch {
	case p.IsCompleted:
		return StatusCompleted
	case p.DeliveredAt == nil:
		return StatusPending
	case p.AutoClosing:
		return StatusDelivered
	default:
		return StatusAwaitingResponse
	}
}

// SubRecord returns the populated sub-record, or nil when it is missing
// or does not match PointType.
func (p *ReferencePoint) SubRecord() any {
	switch p.PointType {
	case PointNotification:
		if p.Notification != nil {
			return p.Notification
		}
	case PointTest:
		if p.Test != nil {
			return p.Test
		}
	case PointFeedbackRequest:
		if p.FeedbackRequest != nil {
			return p.FeedbackRequest
		}
	}
	return nil
}

// Notification is the payload of a NOTIFICATION point.
type Notification struct {
	ID               uint   `gorm:"primaryKey"`
	Text             string `gorm:"type:text;not null"`
	NeedFeedback     bool   `gorm:"default:false"`
	Links            string `gorm:"type:text"`
	ServiceNotes     string `gorm:"type:text"`
	UserFeedback     *string
	ReferencePointID uint `gorm:"uniqueIndex;not null"`
}

// Test is the payload of a TEST point. Questions are answered one by
// one; the point completes when none remain unanswered.
type Test struct {
	ID               uint   `gorm:"primaryKey"`
	Name             string `gorm:"size:100;not null"`
	TimeRespond      int    `gorm:"default:20"`
	ReferencePointID uint   `gorm:"uniqueIndex;not null"`

	Questions []Question `gorm:"foreignKey:TestID;constraint:OnDelete:CASCADE"`
}

// UnansweredCount returns how many loaded questions have no recorded
// answer yet.
func (t *Test) UnansweredCount() int {
	n := 0
	for i := range t.Questions {
		if t.Questions[i].UserAnswer == nil {
			n++
		}
	}
	return n
}

// Question is a single test question with fixed answer choices.
// Answers is a JSON-encoded string array; AnswerList decodes it.
type Question struct {
	ID            uint   `gorm:"primaryKey"`
	TextQuestion  string `gorm:"type:text;not null"`
	Answers       string `gorm:"type:text;not null"`
	CorrectAnswer int    `gorm:"not null"`
	UserAnswer    *int
	TestID        uint `gorm:"index;not null"`
}

// AnswerList decodes the JSON-encoded answer choices.
func (q *Question) AnswerList() ([]string, error) {
	var answers []string
	if err := json.Unmarshal([]byte(q.Answers), &answers); err != nil {
		return nil, fmt.Errorf("roadmap: decode answers for question %d: %w", q.ID, err)
	}
	return answers, nil
}

// EncodeAnswers encodes answer choices for storage in Question.Answers.
// At most MaxAnswersPerQuestion choices are allowed.
func EncodeAnswers(answers []string) (string, error) {
	if len(answers) > MaxAnswersPerQuestion {
		return "", &ValidationError{Field: "answers", Reason: "too many answer choices"}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// FeedbackRequest is the payload of a FEEDBACK_REQUEST point.
type FeedbackRequest struct {
	ID               uint   `gorm:"primaryKey"`
	Text             string `gorm:"type:text;not null"`
	UserAnswer       *string
	ReferencePointID uint `gorm:"uniqueIndex;not null"`
}
