package points

import "time"

// UserPoints is the per-user point total and tier. The server moves it as a side
// effect of other actions.
type UserPoints struct {
	UserID    string    `gorm:"primaryKey;type:varchar(36)" json:"-"`
	Points    int       `gorm:"not null" json:"points"`
	Level     int       `gorm:"not null" json:"level"`
	UpdatedAt time.Time `json:"-"`
}

func (UserPoints) TableName() string { return "user_points" }

// HistoryEntry is one append-only change of a user's points.
type HistoryEntry struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"-"`
	Points    int       `gorm:"not null" json:"points"`
	Reason    string    `gorm:"not null" json:"reason"`
	MemoryID  *string   `gorm:"type:varchar(36)" json:"memory_id,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (HistoryEntry) TableName() string { return "point_history" }

// Default is what a user without a points row has.
var Default = UserPoints{Points: 0, Level: 1}
