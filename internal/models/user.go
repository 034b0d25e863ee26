package models

import "time"

// User is an account holder. Inactive users are banned; BanReason explains why.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:254" json:"email"`
	FullName     string    `gorm:"size:150" json:"full_name"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	IsStaff      bool      `gorm:"not null" json:"is_staff"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	BanReason    string    `gorm:"type:text" json:"ban_reason"`
	CreatedAt    time.Time `gorm:"index" json:"date_joined"`
	UpdatedAt    time.Time `json:"-"`
}
