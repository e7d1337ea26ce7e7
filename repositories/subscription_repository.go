package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/futside/models"
	"github.com/lib/pq"
)

var (
	ErrSubscriptionNotFound = errors.New("region subscription not found")
	ErrSubscriptionConflict = errors.New("user already subscribed to this city")
	ErrSubscriptionInvalid  = errors.New("region subscription user conflict or invalid")
)

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.RegionSubscription) error
	Delete(ctx context.Context, userID int, city string) error
	ListByUser(ctx context.Context, userID int) ([]models.RegionSubscription, error)

	// ListUserIDsByCity возвращает подписчиков города. Сравнение городов
	// регистронезависимое.
	ListUserIDsByCity(ctx context.Context, city string) ([]int, error)
}

type postgresSubscriptionRepository struct {
	db *sql.DB
}

func NewPostgresSubscriptionRepository(db *sql.DB) SubscriptionRepository {
	return &postgresSubscriptionRepository{db: db}
}

func (r *postgresSubscriptionRepository) Create(ctx context.Context, sub *models.RegionSubscription) error {
	query := `
		INSERT INTO region_subscriptions (user_id, city)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, sub.UserID, sub.City).
		Scan(&sub.ID, &sub.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation на (user_id, city)
				return ErrSubscriptionConflict
			case "23503":
				return ErrSubscriptionInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresSubscriptionRepository) Delete(ctx context.Context, userID int, city string) error {
	query := `DELETE FROM region_subscriptions WHERE user_id = $1 AND LOWER(city) = LOWER($2)`
	result, err := r.db.ExecContext(ctx, query, userID, city)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSubscriptionNotFound)
}

func (r *postgresSubscriptionRepository) ListByUser(ctx context.Context, userID int) ([]models.RegionSubscription, error) {
	query := `
		SELECT id, user_id, city, created_at
		FROM region_subscriptions
		WHERE user_id = $1
		ORDER BY city ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make([]models.RegionSubscription, 0)
	for rows.Next() {
		var sub models.RegionSubscription
		scanErr := rows.Scan(&sub.ID, &sub.UserID, &sub.City, &sub.CreatedAt)
		if scanErr != nil {
			return nil, scanErr
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (r *postgresSubscriptionRepository) ListUserIDsByCity(ctx context.Context, city string) ([]int, error) {
	query := `
		SELECT DISTINCT user_id
		FROM region_subscriptions
		WHERE LOWER(city) = LOWER($1)`

	rows, err := r.db.QueryContext(ctx, query, city)
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
