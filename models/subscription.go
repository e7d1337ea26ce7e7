package models

import "time"

// RegionSubscription — подписка пользователя на новые матчи в городе.
// На пару (user_id, city) существует не более одной записи.
type RegionSubscription struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	City      string    `json:"city" db:"city"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
