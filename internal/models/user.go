package models

import "time"

type User struct {
	UserID    string    `gorm:"type:varchar(64);primaryKey" json:"user_id"`
	Email     string    `gorm:"type:text;uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"type:text" json:"name"`
	Picture   *string   `gorm:"type:text" json:"picture"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

type UserSession struct {
	SessionToken string    `gorm:"type:text;primaryKey" json:"-"`
	UserID       string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}

// Expired reports whether the session is no longer valid at now.
func (s *UserSession) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
