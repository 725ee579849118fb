package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a locally authored entry. The author is referenced by email, not by user id.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserEmail  string    `gorm:"size:120;index;not null" json:"user_email"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Content    string    `gorm:"type:text" json:"content"`
	DatePosted time.Time `gorm:"index;not null" json:"date_posted"`
}

// BeforeCreate assigns the server-side creation timestamp.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.DatePosted.IsZero() {
		p.DatePosted = time.Now().UTC()
	}
	return nil
}
