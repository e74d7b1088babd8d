package models

import "time"

type Contact struct {
	ContactID string    `gorm:"type:varchar(64);primaryKey" json:"contact_id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	Email     string    `gorm:"type:text;not null" json:"email"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Contact) TableName() string {
	return "contacts"
}
