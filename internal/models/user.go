package models

import (
	"time"
)

// User represents a registered account. Notes reference users by id only;
// there is no database-level foreign key between the two tables.
type User struct {
	ID           string `gorm:"type:char(36);primaryKey"`
	Username     string `gorm:"size:64;not null;uniqueIndex:idx_users_username"`
	Name         string `gorm:"size:255;not null"`
	Email        string `gorm:"size:255;not null;uniqueIndex:idx_users_email"`
	PasswordHash string `gorm:"size:255;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
