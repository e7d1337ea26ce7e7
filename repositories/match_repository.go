package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/futside/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound       = errors.New("match not found")
	ErrMatchFieldInvalid   = errors.New("match field conflict or invalid")
	ErrMatchCreatorInvalid = errors.New("match creator conflict or invalid")
)

// MatchListFilter задаёт необязательные фильтры для выборки матчей.
type MatchListFilter struct {
	City    *string
	Status  *models.MatchStatus
	FieldID *int
	Limit   int
	Offset  int
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)

	// GetByIDForUpdate читает матч под блокировкой строки (FOR UPDATE).
	// Должен вызываться только внутри транзакции: блокировка сериализует
	// конкурирующие join-ы по одному матчу.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)

	List(ctx context.Context, filter MatchListFilter) ([]*models.Match, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error
	UpdateScore(ctx context.Context, exec SQLExecutor, id int, scoreA, scoreB int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, field_id, creator_id, title, description, date, start_time, end_time,
	max_players, skill_level, price_per_player, status, score_a, score_b, created_at
`

const (
	matchSelectByIDQuery          = `SELECT` + matchColumns + `FROM matches WHERE id = $1`
	matchSelectByIDForUpdateQuery = matchSelectByIDQuery + ` FOR UPDATE`
)

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(field_id, creator_id, title, description, date, start_time, end_time,
			 max_players, skill_level, price_per_player, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		match.FieldID,
		match.CreatorID,
		match.Title,
		match.Description,
		match.Date,
		match.StartTime,
		match.EndTime,
		match.MaxPlayers,
		match.SkillLevel,
		match.PricePerPlayer,
		match.Status,
	).Scan(&match.ID, &match.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			switch pqErr.Constraint {
			case "matches_field_id_fkey":
				return ErrMatchFieldInvalid
			case "matches_creator_id_fkey":
				return ErrMatchCreatorInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.scanMatch(ctx, r.getExecutor(exec), matchSelectByIDQuery, id)
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.scanMatch(ctx, r.getExecutor(exec), matchSelectByIDForUpdateQuery, id)
}

// buildMatchListQuery собирает SELECT со всеми необязательными фильтрами.
// Вынесено из List, чтобы текст запроса проверялся тестами без БД.
func buildMatchListQuery(filter MatchListFilter) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT
			m.id, m.field_id, m.creator_id, m.title, m.description, m.date,
			m.start_time, m.end_time, m.max_players, m.skill_level,
			m.price_per_player, m.status, m.score_a, m.score_b, m.created_at,
			(SELECT COUNT(*) FROM player_matches pm WHERE pm.match_id = m.id)
		FROM matches m`)

	args := []interface{}{}
	conditions := []string{}

	if filter.City != nil {
		sb.WriteString(` JOIN fields f ON m.field_id = f.id`)
		args = append(args, *filter.City)
		conditions = append(conditions, fmt.Sprintf("LOWER(f.city) = LOWER($%d)", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("m.status = $%d", len(args)))
	}
	if filter.FieldID != nil {
		args = append(args, *filter.FieldID)
		conditions = append(conditions, fmt.Sprintf("m.field_id = $%d", len(args)))
	}

	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	sb.WriteString(" ORDER BY m.date ASC, m.start_time ASC")

	if filter.Limit > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		sb.WriteString(" OFFSET " + strconv.Itoa(filter.Offset))
	}

	return sb.String(), args
}

func (r *postgresMatchRepository) List(ctx context.Context, filter MatchListFilter) ([]*models.Match, error) {
	query, args := buildMatchListQuery(filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match := &models.Match{}
		scanErr := rows.Scan(
			&match.ID,
			&match.FieldID,
			&match.CreatorID,
			&match.Title,
			&match.Description,
			&match.Date,
			&match.StartTime,
			&match.EndTime,
			&match.MaxPlayers,
			&match.SkillLevel,
			&match.PricePerPlayer,
			&match.Status,
			&match.ScoreA,
			&match.ScoreB,
			&match.CreatedAt,
			&match.PlayerCount,
		)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error {
	query := `UPDATE matches SET status = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateScore(ctx context.Context, exec SQLExecutor, id int, scoreA, scoreB int) error {
	query := `UPDATE matches SET score_a = $1, score_b = $2 WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, scoreA, scoreB, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) scanMatch(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Match, error) {
	match := &models.Match{}
	err := exec.QueryRowContext(ctx, query, args...).Scan(
		&match.ID,
		&match.FieldID,
		&match.CreatorID,
		&match.Title,
		&match.Description,
		&match.Date,
		&match.StartTime,
		&match.EndTime,
		&match.MaxPlayers,
		&match.SkillLevel,
		&match.PricePerPlayer,
		&match.Status,
		&match.ScoreA,
		&match.ScoreB,
		&match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}
