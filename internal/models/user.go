package models

import (
	"time"
)

// User is the local identity row for an account managed by the external
// Authorizer service. Domain rows reference users by this ID.
type User struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Username  string `gorm:"uniqueIndex;size:150;not null"`
	Email     string `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
