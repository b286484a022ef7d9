package template

import (
	"encoding/json"
	"time"
)

type Category string

const (
	CategoryGeneral     Category = "general"
	CategoryBusiness    Category = "business"
	CategoryPersonal    Category = "personal"
	CategoryCelebration Category = "celebration"
	CategoryGratitude   Category = "gratitude"
)

var Categories = []Category{
	CategoryGeneral,
	CategoryBusiness,
	CategoryPersonal,
	CategoryCelebration,
	CategoryGratitude,
}

// Template is a reusable message body. UsageCount is maintained by the server.
type Template struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title      string    `gorm:"not null" json:"title"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	Category   Category  `gorm:"type:varchar(16);not null" json:"category"`
	Tags       []string  `gorm:"serializer:json;type:text" json:"tags"`
	UserID     string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	IsPublic   bool      `gorm:"not null" json:"is_public"`
	UsageCount int       `gorm:"not null" json:"usage_count"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (Template) TableName() string { return "templates" }

type Draft struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Category Category `json:"category"`
	Tags     []string `json:"tags"`
	IsPublic bool     `json:"is_public"`
}

type Patch struct {
	Title    *string   `json:"title,omitempty"`
	Message  *string   `json:"message,omitempty"`
	Category *Category `json:"category,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
	IsPublic *bool     `json:"is_public,omitempty"`
}

func (p Patch) columns() (map[string]any, error) {
	m := map[string]any{}
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.Message != nil {
		m["message"] = *p.Message
	}
	if p.Category != nil {
		m["category"] = *p.Category
	}
	if p.Tags != nil {
		b, err := json.Marshal(NormalizeTags(p.Tags))
		if err != nil {
			return nil, err
		}
		m["tags"] = string(b)
	}
	if p.IsPublic != nil {
		m["is_public"] = *p.IsPublic
	}
	return m, nil
}
