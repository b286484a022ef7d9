package valuetag

type Category string

const (
	CategoryCulture   Category = "culture"
	CategoryPrinciple Category = "principle"
	CategoryBehavior  Category = "behavior"
)

// Categories is the presentation order of the groups.
var Categories = []Category{CategoryCulture, CategoryPrinciple, CategoryBehavior}

// ValueTag is an entry of the global catalog. PointValue is the reward weight of
// tagging a memory with it.
type ValueTag struct {
	ID          string   `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name        string   `gorm:"not null" json:"name"`
	Description string   `gorm:"type:text;not null" json:"description"`
	PointValue  int      `gorm:"not null" json:"point_value"`
	Category    Category `gorm:"type:varchar(16);index;not null" json:"category"`
	Icon        string   `gorm:"not null" json:"icon"`
}

func (ValueTag) TableName() string { return "value_tags" }

type Draft struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PointValue  int      `json:"point_value"`
	Category    Category `json:"category"`
	Icon        string   `json:"icon"`
}

type Patch struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	PointValue  *int      `json:"point_value,omitempty"`
	Category    *Category `json:"category,omitempty"`
	Icon        *string   `json:"icon,omitempty"`
}

func (p Patch) columns() map[string]any {
	m := map[string]any{}
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.PointValue != nil {
		m["point_value"] = *p.PointValue
	}
	if p.Category != nil {
		m["category"] = *p.Category
	}
	if p.Icon != nil {
		m["icon"] = *p.Icon
	}
	return m
}
