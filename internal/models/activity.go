package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityType string

const (
	ActivityForYou   ActivityType = "forYou"
	ActivityMentions ActivityType = "mentions"
)

// Kind names the collection a Ref points into.
type Kind string

const (
	KindPost    Kind = "posts"
	KindComment Kind = "comments"
	KindReply   Kind = "replies"
)

// Ref is a typed pointer at a post, comment or reply. The zero Ref points at
// nothing.
type Ref struct {
	Kind Kind      `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

func PostRef(id uuid.UUID) Ref    { return Ref{Kind: KindPost, ID: id} }
func CommentRef(id uuid.UUID) Ref { return Ref{Kind: KindComment, ID: id} }
func ReplyRef(id uuid.UUID) Ref   { return Ref{Kind: KindReply, ID: id} }

func (r Ref) IsZero() bool {
	return r.Kind == "" || r.ID == uuid.Nil
}

// Activity is a notification. Recipients live in activity_owners; content is
// what triggered it and ref is the context it is about.
type Activity struct {
	ID          uuid.UUID    `json:"id" gorm:"type:uuid;primary_key"`
	Type        ActivityType `json:"type" gorm:"size:16;index"`
	Message     string       `json:"message"`
	AuthorID    uuid.UUID    `json:"author_id" gorm:"type:uuid;not null;index"`
	ContentKind Kind         `json:"-" gorm:"size:16"`
	ContentID   *uuid.UUID   `json:"-" gorm:"type:uuid;index"`
	RefKind     Kind         `json:"-" gorm:"size:16"`
	RefID       *uuid.UUID   `json:"-" gorm:"type:uuid;index"`
	CreatedAt   time.Time    `json:"created_at" gorm:"index"`

	Owners []ActivityOwner `json:"-" gorm:"foreignKey:ActivityID"`
	Author *User           `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
}

type ActivityOwner struct {
	ActivityID uuid.UUID `json:"-" gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey;index"`
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (a *Activity) SetContent(r Ref) {
	a.ContentKind, a.ContentID = splitRef(r)
}

func (a *Activity) SetContext(r Ref) {
	a.RefKind, a.RefID = splitRef(r)
}

func (a *Activity) Content() Ref {
	return joinRef(a.ContentKind, a.ContentID)
}

func (a *Activity) Context() Ref {
	return joinRef(a.RefKind, a.RefID)
}

func (a *Activity) OwnerIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(a.Owners))
	for _, o := range a.Owners {
		ids = append(ids, o.UserID)
	}
	return ids
}

func splitRef(r Ref) (Kind, *uuid.UUID) {
	if r.IsZero() {
		return "", nil
	}
	id := r.ID
	return r.Kind, &id
}

func joinRef(kind Kind, id *uuid.UUID) Ref {
	if kind == "" || id == nil {
		return Ref{}
	}
	return Ref{Kind: kind, ID: *id}
}

func (Activity) TableName() string {
	return "activities"
}

func (ActivityOwner) TableName() string {
	return "activity_owners"
}
