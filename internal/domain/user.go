package domain

import (
	"time"
)

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

type User struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name"`
	Email         string    `json:"email" gorm:"uniqueIndex"`
	Company       string    `json:"company,omitempty"`
	Password      string    `json:"-"` // Hashed password
	Role          UserRole  `json:"role"`
	Status        string    `json:"status"` // Active, Inactive, Blocked
	NotifyByEmail bool      `json:"notify_by_email" gorm:"default:true"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
