package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/futside/models"
	"github.com/lib/pq"
)

var (
	ErrPlayerMatchConflict = errors.New("player already joined this match")
	ErrPlayerMatchInvalid  = errors.New("player match reference conflict or invalid")
)

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, playerMatch *models.PlayerMatch) error
	Exists(ctx context.Context, exec SQLExecutor, matchID, userID int) (bool, error)
	CountByMatch(ctx context.Context, exec SQLExecutor, matchID int) (int, error)
	ListByMatch(ctx context.Context, matchID int) ([]models.PlayerMatch, error)
	ListUserIDsByMatch(ctx context.Context, matchID int) ([]int, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, playerMatch *models.PlayerMatch) error {
	query := `
		INSERT INTO player_matches (match_id, user_id)
		VALUES ($1, $2)
		RETURNING id, joined_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		playerMatch.MatchID,
		playerMatch.UserID,
	).Scan(&playerMatch.ID, &playerMatch.JoinedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation на (match_id, user_id)
				return ErrPlayerMatchConflict
			case "23503":
				return ErrPlayerMatchInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresPlayerRepository) Exists(ctx context.Context, exec SQLExecutor, matchID, userID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM player_matches WHERE match_id = $1 AND user_id = $2)`

	var exists bool
	err := r.getExecutor(exec).QueryRowContext(ctx, query, matchID, userID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *postgresPlayerRepository) CountByMatch(ctx context.Context, exec SQLExecutor, matchID int) (int, error) {
	query := `SELECT COUNT(*) FROM player_matches WHERE match_id = $1`

	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx, query, matchID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListByMatch возвращает состав матча вместе с данными игроков.
func (r *postgresPlayerRepository) ListByMatch(ctx context.Context, matchID int) ([]models.PlayerMatch, error) {
	query := `
		SELECT
			pm.id, pm.match_id, pm.user_id, pm.joined_at,
			u.id, u.name, u.email, u.city, u.created_at
		FROM player_matches pm
		JOIN users u ON pm.user_id = u.id
		WHERE pm.match_id = $1
		ORDER BY pm.joined_at ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]models.PlayerMatch, 0)
	for rows.Next() {
		var pm models.PlayerMatch
		var user models.User
		scanErr := rows.Scan(
			&pm.ID,
			&pm.MatchID,
			&pm.UserID,
			&pm.JoinedAt,
			&user.ID,
			&user.Name,
			&user.Email,
			&user.City,
			&user.CreatedAt,
		)
		if scanErr != nil {
			return nil, scanErr
		}
		pm.User = &user
		players = append(players, pm)
	}
	return players, rows.Err()
}

func (r *postgresPlayerRepository) ListUserIDsByMatch(ctx context.Context, matchID int) ([]int, error) {
	query := `SELECT user_id FROM player_matches WHERE match_id = $1 ORDER BY joined_at ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
