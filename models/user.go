package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles a user may hold.
const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// User is a member identified by the email asserted by the identity provider.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:120;uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"size:120" json:"name"`
	Nickname  string    `gorm:"size:120" json:"nickname"`
	Picture   string    `gorm:"size:500" json:"picture"`
	Role      string    `gorm:"size:32;not null;default:'User'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate fills the role for users created without one.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// IsAdmin reports whether the user may moderate content.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
