package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	Name              string     `json:"name" gorm:"not null"`
	Username          string     `json:"username" gorm:"uniqueIndex;not null"`
	Password          string     `json:"-" gorm:"not null"`
	Picture           string     `json:"picture"`
	Bio               string     `json:"bio"`
	Link              string     `json:"link"`
	Verify            bool       `json:"verify" gorm:"default:false"`
	UsernameChangedAt *time.Time `json:"username_changed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Follow is the authoritative follower relation. A user's followers and
// following lists are both read from this table.
type Follow struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	FollowerID  uuid.UUID `json:"follower_id" gorm:"type:uuid;not null;uniqueIndex:idx_follower_following"`
	FollowingID uuid.UUID `json:"following_id" gorm:"type:uuid;not null;uniqueIndex:idx_follower_following;index"`
	CreatedAt   time.Time `json:"created_at"`
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

func (User) TableName() string {
	return "users"
}

func (Follow) TableName() string {
	return "follows"
}
