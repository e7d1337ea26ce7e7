package models

import "time"

type User struct {
	ID           int       `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Phone        *string   `json:"phone,omitempty" db:"phone"`
	City         string    `json:"city" db:"city"`
	PushToken    *string   `json:"-" db:"push_token"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
