package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Image struct {
	Src    string `json:"src"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Post struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	UserID    uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index"`
	Caption   string    `json:"caption" gorm:"type:text"`
	Image     Image     `json:"image" gorm:"embedded;embeddedPrefix:image_"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	User *User `json:"owner,omitempty" gorm:"foreignKey:UserID"`
}

type Like struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_post"`
	PostID    uuid.UUID `json:"post_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_post;index"`
	CreatedAt time.Time `json:"created_at"`
}

type Comment struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	UserID    uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index"`
	PostID    uuid.UUID `json:"ref" gorm:"type:uuid;not null;index"`
	Text      string    `json:"text" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`

	User *User `json:"owner,omitempty" gorm:"foreignKey:UserID"`
	Post *Post `json:"post,omitempty" gorm:"foreignKey:PostID"`
}

type Reply struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	UserID    uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index"`
	CommentID uuid.UUID `json:"ref" gorm:"type:uuid;not null;index"`
	Text      string    `json:"text" gorm:"type:text"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"created_at"`

	User *User `json:"owner,omitempty" gorm:"foreignKey:UserID"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (Post) TableName() string {
	return "posts"
}

func (Like) TableName() string {
	return "likes"
}

func (Comment) TableName() string {
	return "comments"
}

func (Reply) TableName() string {
	return "replies"
}
