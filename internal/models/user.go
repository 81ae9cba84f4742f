package models

import (
	"time"
)

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	Role         string // "user" or "admin"
	CreatedAt    time.Time
}

// UserSummary is the public view of an account returned after login.
type UserSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
