package auth

import "time"

type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

// Profile is the public face of a user, embedded as author info in comments and stamps.
type Profile struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"-"`
	Username  string    `gorm:"not null" json:"username"`
	AvatarURL *string   `gorm:"type:text" json:"avatar_url,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
}

func (Profile) TableName() string { return "profiles" }
