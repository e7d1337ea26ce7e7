package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/futside/models"
	"github.com/lib/pq"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserEmailConflict = errors.New("user email conflict")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error

	// ClaimPushToken привязывает токен к пользователю. Токен принадлежит
	// ровно одному пользователю: у прежнего владельца он снимается.
	ClaimPushToken(ctx context.Context, exec SQLExecutor, userID int, token string) error

	// ListIDsWithPushToken returns the subset of userIDs that have a push
	// token, excluding excludeUserID.
	ListIDsWithPushToken(ctx context.Context, userIDs []int, excludeUserID int) ([]int, error)

	// ListPushTokensByIDs returns the push tokens of the given users,
	// skipping users without one. Order follows the database, not userIDs.
	ListPushTokensByIDs(ctx context.Context, userIDs []int) ([]string, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, phone, city)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.City,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "users_email_key" {
				return ErrUserEmailConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, phone, city, push_token, created_at
		FROM users
		WHERE id = $1`
	return r.scanUser(ctx, query, id)
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, phone, city, push_token, created_at
		FROM users
		WHERE email = $1`
	return r.scanUser(ctx, query, email)
}

func (r *postgresUserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			name = $1,
			email = $2,
			password_hash = $3,
			phone = $4,
			city = $5
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.City,
		user.ID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "users_email_key" {
				return ErrUserEmailConflict
			}
		}
		return err
	}

	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) ClaimPushToken(ctx context.Context, exec SQLExecutor, userID int, token string) error {
	if exec == nil {
		exec = r.db
	}

	// Снимаем токен с прежнего владельца (last-write-wins).
	releaseQuery := `UPDATE users SET push_token = NULL WHERE push_token = $1 AND id <> $2`
	if _, err := exec.ExecContext(ctx, releaseQuery, token, userID); err != nil {
		return fmt.Errorf("failed to release push token: %w", err)
	}

	assignQuery := `UPDATE users SET push_token = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, assignQuery, token, userID)
	if err != nil {
		return fmt.Errorf("failed to assign push token: %w", err)
	}

	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) ListIDsWithPushToken(ctx context.Context, userIDs []int, excludeUserID int) ([]int, error) {
	if len(userIDs) == 0 {
		return []int{}, nil
	}

	query := `
		SELECT id
		FROM users
		WHERE id = ANY($1)
		  AND id <> $2
		  AND push_token IS NOT NULL`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(userIDs), excludeUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0, len(userIDs))
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresUserRepository) ListPushTokensByIDs(ctx context.Context, userIDs []int) ([]string, error) {
	if len(userIDs) == 0 {
		return []string{}, nil
	}

	query := `
		SELECT push_token
		FROM users
		WHERE id = ANY($1)
		  AND push_token IS NOT NULL`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := make([]string, 0, len(userIDs))
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (r *postgresUserRepository) scanUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Phone,
		&user.City,
		&user.PushToken,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
