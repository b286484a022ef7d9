package memory

import (
	"encoding/json"
	"time"

	"relay/internal/auth"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusSent      Status = "sent"
)

// Memory is a message authored by one user to one recipient.
// LikesCount and CommentsCount are computed by the gateway's read view; they are
// never written.
type Memory struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Recipient     string     `gorm:"not null" json:"recipient"`
	Message       string     `gorm:"type:text;not null" json:"message"`
	Date          time.Time  `gorm:"not null" json:"date"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	ImageURL      *string    `gorm:"type:text" json:"image_url,omitempty"`
	UserID        string     `gorm:"type:varchar(36);index;not null" json:"user_id"`
	TemplateID    *string    `gorm:"type:varchar(36)" json:"template_id,omitempty"`
	ValueTags     []string   `gorm:"serializer:json;type:text" json:"value_tags"`
	IsPublic      bool       `gorm:"not null;index" json:"is_public"`
	Status        Status     `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt     time.Time  `gorm:"index;not null" json:"created_at"`

	LikesCount    int `gorm:"->;-:migration" json:"likes_count"`
	CommentsCount int `gorm:"->;-:migration" json:"comments_count"`

	Comments []Comment `gorm:"foreignKey:MemoryID;constraint:OnDelete:CASCADE" json:"comments"`
	Stamps   []Stamp   `gorm:"foreignKey:MemoryID;constraint:OnDelete:CASCADE" json:"stamps"`
	Likes    []Like    `gorm:"foreignKey:MemoryID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Memory) TableName() string { return "memories" }

// Comment is immutable once created.
type Comment struct {
	ID        string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	MemoryID  string       `gorm:"type:varchar(36);index;not null" json:"-"`
	UserID    string       `gorm:"type:varchar(36);not null" json:"user_id"`
	Content   string       `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	User      auth.Profile `gorm:"foreignKey:UserID" json:"user"`
}

func (Comment) TableName() string { return "memory_comments" }

// Stamp is one reaction from the catalog. A user may stamp a memory more than once.
type Stamp struct {
	ID        string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	MemoryID  string       `gorm:"type:varchar(36);index;not null" json:"-"`
	StampID   string       `gorm:"type:varchar(8);not null" json:"stamp_id"`
	UserID    string       `gorm:"type:varchar(36);not null" json:"user_id"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	User      auth.Profile `gorm:"foreignKey:UserID" json:"user"`
}

func (Stamp) TableName() string { return "memory_stamps" }

// Like is the existence fact (memory, user). It never reaches the view; it only
// shows through Memory.LikesCount.
type Like struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	MemoryID  string    `gorm:"type:varchar(36);not null;uniqueIndex:uq_memory_likes_memory_user"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:uq_memory_likes_memory_user"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Like) TableName() string { return "memory_likes" }

// Draft is the author-controlled part of a new memory.
type Draft struct {
	Recipient     string     `json:"recipient"`
	Message       string     `json:"message"`
	Date          time.Time  `json:"date"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	ImageURL      *string    `json:"image_url,omitempty"`
	TemplateID    *string    `json:"template_id,omitempty"`
	ValueTags     []string   `json:"value_tags,omitempty"`
	IsPublic      bool       `json:"is_public"`
}

// Patch lists the fields an update may change. Nil fields are left alone; the
// Clear flags null out the optional columns. Setting or clearing the scheduled date
// re-derives the status.
type Patch struct {
	Recipient     *string    `json:"recipient,omitempty"`
	Message       *string    `json:"message,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	ImageURL      *string    `json:"image_url,omitempty"`
	ValueTags     []string   `json:"value_tags,omitempty"`
	IsPublic      *bool      `json:"is_public,omitempty"`

	ClearScheduledDate bool `json:"-"`
	ClearImageURL      bool `json:"-"`
}

// columns maps the patch onto memories columns.
func (p Patch) columns() (map[string]any, error) {
	m := map[string]any{}
	if p.Recipient != nil {
		m["recipient"] = *p.Recipient
	}
	if p.Message != nil {
		m["message"] = *p.Message
	}
	if p.Date != nil {
		m["date"] = *p.Date
	}
	switch {
	case p.ScheduledDate != nil:
		m["scheduled_date"] = *p.ScheduledDate
		m["status"] = StatusScheduled
	case p.ClearScheduledDate:
		m["scheduled_date"] = nil
		m["status"] = StatusSent
	}
	switch {
	case p.ImageURL != nil:
		m["image_url"] = *p.ImageURL
	case p.ClearImageURL:
		m["image_url"] = nil
	}
	if p.ValueTags != nil {
		b, err := json.Marshal(p.ValueTags)
		if err != nil {
			return nil, err
		}
		m["value_tags"] = string(b)
	}
	if p.IsPublic != nil {
		m["is_public"] = *p.IsPublic
	}
	return m, nil
}
