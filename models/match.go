package models

import "time"

// MatchStatus представляет статусы матча, соответствующие ENUM в БД.
type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusConfirmed  MatchStatus = "confirmed" // legacy value, kept for storage compatibility
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusCanceled   MatchStatus = "canceled"
)

// Match представляет любительскую игру на площадке.
// Date хранит только календарную дату, StartTime/EndTime — время в формате "15:04:05".
type Match struct {
	ID             int         `json:"id" db:"id"`
	FieldID        int         `json:"field_id" db:"field_id"`
	CreatorID      int         `json:"creator_id" db:"creator_id"`
	Title          string      `json:"title" db:"title"`
	Description    *string     `json:"description,omitempty" db:"description"`
	Date           time.Time   `json:"date" db:"date"`
	StartTime      string      `json:"start_time" db:"start_time"`
	EndTime        string      `json:"end_time" db:"end_time"`
	MaxPlayers     int         `json:"max_players" db:"max_players"`
	SkillLevel     *string     `json:"skill_level,omitempty" db:"skill_level"`
	PricePerPlayer *float64    `json:"price_per_player,omitempty" db:"price_per_player"`
	Status         MatchStatus `json:"status" db:"status"`
	ScoreA         int         `json:"score_a" db:"score_a"`
	ScoreB         int         `json:"score_b" db:"score_b"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`

	// Производные и связанные данные (не мапятся напрямую)
	PlayerCount int           `json:"player_count" db:"-"`
	Field       *Field        `json:"field,omitempty" db:"-"`
	Players     []PlayerMatch `json:"players,omitempty" db:"-"`
}

// PlayerMatch фиксирует участие пользователя в матче.
// На пару (match_id, user_id) существует не более одной записи.
type PlayerMatch struct {
	ID       int       `json:"id" db:"id"`
	MatchID  int       `json:"match_id" db:"match_id"`
	UserID   int       `json:"user_id" db:"user_id"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`

	User *User `json:"user,omitempty" db:"-"`
}
