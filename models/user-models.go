package models

import "time"

// User is keyed by email. Rows are created implicitly by the first
// prediction; PasswordHash is only set through registration.
type User struct {
	Email        string    `json:"email" gorm:"primaryKey"`
	PasswordHash *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }
