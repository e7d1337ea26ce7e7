package models

import "time"

type Field struct {
	ID        int       `json:"id" db:"id"`
	OwnerID   int       `json:"owner_id" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	Address   string    `json:"address" db:"address"`
	City      string    `json:"city" db:"city"`
	State     string    `json:"state" db:"state"`
	PhotoKey  *string   `json:"-" db:"photo_key"`
	PhotoURL  *string   `json:"photo_url,omitempty" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
