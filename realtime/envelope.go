package realtime

import (
	"time"

	"github.com/Dosada05/futside/models"
)

// EventKind идентифицирует тип события в конверте.
type EventKind string

const (
	EventNewMatch      EventKind = "new_match"
	EventPlayerJoined  EventKind = "player_joined"
	EventMatchStarted  EventKind = "match_started"
	EventMatchCanceled EventKind = "match_canceled"
	EventScoreUpdate   EventKind = "score_update"
)

// Envelope — сообщение, публикуемое в топик. Форма {"event","data"} является
// контрактом с клиентами и не должна меняться.
type Envelope struct {
	Event EventKind   `json:"event"`
	Data  interface{} `json:"data"`
}

// Типизированные полезные нагрузки по видам событий. Конструкторы ниже —
// единственный способ собрать конверт, чтобы расхождение имён полей
// отлавливалось компилятором, а не клиентами.

type NewMatchData struct {
	ID         int    `json:"id"`
	FieldID    int    `json:"field_id"`
	CreatorID  int    `json:"creator_id"`
	Title      string `json:"title"`
	City       string `json:"city"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	MaxPlayers int    `json:"max_players"`
	Status     string `json:"status"`
}

type PlayerJoinedData struct {
	MatchID     int       `json:"match_id"`
	UserID      int       `json:"user_id"`
	UserName    string    `json:"user_name"`
	PlayerCount int       `json:"player_count"`
	JoinedAt    time.Time `json:"joined_at"`
}

type MatchStartedData struct {
	MatchID   int       `json:"match_id"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

type MatchCanceledData struct {
	MatchID    int       `json:"match_id"`
	Status     string    `json:"status"`
	CanceledAt time.Time `json:"canceled_at"`
}

type ScoreUpdateData struct {
	MatchID   int       `json:"match_id"`
	ScoreA    int       `json:"score_a"`
	ScoreB    int       `json:"score_b"`
	UpdatedAt time.Time `json:"updated_at"`
}

const dateLayout = "2006-01-02"

func NewMatchEnvelope(match *models.Match, city string) Envelope {
	return Envelope{
		Event: EventNewMatch,
		Data: NewMatchData{
			ID:         match.ID,
			FieldID:    match.FieldID,
			CreatorID:  match.CreatorID,
			Title:      match.Title,
			City:       city,
			Date:       match.Date.Format(dateLayout),
			StartTime:  match.StartTime,
			EndTime:    match.EndTime,
			MaxPlayers: match.MaxPlayers,
			Status:     string(match.Status),
		},
	}
}

func PlayerJoinedEnvelope(matchID int, user *models.User, playerCount int, joinedAt time.Time) Envelope {
	return Envelope{
		Event: EventPlayerJoined,
		Data: PlayerJoinedData{
			MatchID:     matchID,
			UserID:      user.ID,
			UserName:    user.Name,
			PlayerCount: playerCount,
			JoinedAt:    joinedAt,
		},
	}
}

func MatchStartedEnvelope(matchID int, startedAt time.Time) Envelope {
	return Envelope{
		Event: EventMatchStarted,
		Data: MatchStartedData{
			MatchID:   matchID,
			Status:    string(models.MatchStatusInProgress),
			StartedAt: startedAt,
		},
	}
}

func MatchCanceledEnvelope(matchID int, canceledAt time.Time) Envelope {
	return Envelope{
		Event: EventMatchCanceled,
		Data: MatchCanceledData{
			MatchID:    matchID,
			Status:     string(models.MatchStatusCanceled),
			CanceledAt: canceledAt,
		},
	}
}

func ScoreUpdateEnvelope(matchID, scoreA, scoreB int, updatedAt time.Time) Envelope {
	return Envelope{
		Event: EventScoreUpdate,
		Data: ScoreUpdateData{
			MatchID:   matchID,
			ScoreA:    scoreA,
			ScoreB:    scoreB,
			UpdatedAt: updatedAt,
		},
	}
}
