package core

import (
	"time"

	"github.com/google/uuid"
)

// UserRole is the access level of a bot user.
type UserRole string

const (
	RoleUser    UserRole = "USER"
	RoleManager UserRole = "MANAGER"
	RoleAdmin   UserRole = "ADMIN"
)

// DefaultTimezone is applied to users that never picked a zone.
const DefaultTimezone = "Europe/Moscow"

// User is a bot user: an intern, a manager or an admin. Interns point
// at their supervising manager through ManagerID.
type User struct {
	ID                  uint     `gorm:"primaryKey"`
	FirstName           string   `gorm:"size:50;not null"`
	LastName            string   `gorm:"size:50;not null"`
	Patronymic          string   `gorm:"size:50"`
	Role                UserRole `gorm:"size:20;not null;default:'USER'"`
	TgID                int64    `gorm:"uniqueIndex;not null"`
	Email               string   `gorm:"size:100;uniqueIndex;not null"`
	PhoneNumber         string   `gorm:"size:20;uniqueIndex;not null"`
	Timezone            string   `gorm:"size:35;default:'Europe/Moscow'"`
	AdditionalInfo      string   `gorm:"type:text"`
	IsActive            bool     `gorm:"default:true"`
	IsEducationComplete bool     `gorm:"default:false"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime"`

	RestaurantID *uint
	ManagerID    *uint `gorm:"index"`
}

// FullName returns "FirstName LastName" for user-facing messages.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Location resolves the user's IANA timezone, falling back to the
// default zone when the stored name is empty or unknown. It is used
// only to interpret operator-entered local datetimes; stored times are
// UTC.
func (u *User) Location() *time.Location {
	name := u.Timezone
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc, err = time.LoadLocation(DefaultTimezone)
		if err != nil {
			return time.UTC
		}
	}
	return loc
}

// Restaurant scopes users and roadmap templates.
type Restaurant struct {
	ID                 uint   `gorm:"primaryKey"`
	Name               string `gorm:"size:100;not null"`
	FullAddress        string `gorm:"type:text;not null"`
	ShortAddress       string `gorm:"size:100;uniqueIndex;not null"`
	ContactInformation string `gorm:"size:100;not null"`
	IsBlocked          bool   `gorm:"default:false"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

// DefaultInvitationTTL bounds how long an unused invitation stays
// valid.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// InvitationLink is a one-time token handed to a new user so the bot
// can connect their Telegram account to a pre-created profile.
type InvitationLink struct {
	ID        uint      `gorm:"primaryKey"`
	LinkToken string    `gorm:"size:36;uniqueIndex;not null"`
	IsUsed    bool      `gorm:"default:false"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UserID    uint      `gorm:"index;not null"`
}

// NewInvitationLink issues a fresh one-time invitation for the user,
// valid for ttl from now (DefaultInvitationTTL when ttl is zero or
// negative).
func NewInvitationLink(userID uint, now time.Time, ttl time.Duration) *InvitationLink {
	if ttl <= 0 {
		ttl = DefaultInvitationTTL
	}
	return &InvitationLink{
		LinkToken: uuid.New().String(),
		ExpiresAt: now.Add(ttl),
		UserID:    userID,
	}
}

// Dialog is a stored message between a manager and an intern.
type Dialog struct {
	ID              uint      `gorm:"primaryKey"`
	Message         string    `gorm:"type:text;not null"`
	MessageDatetime time.Time `gorm:"not null"`
	SenderID        *uint     `gorm:"index"`
	RecipientID     *uint     `gorm:"index"`
}
