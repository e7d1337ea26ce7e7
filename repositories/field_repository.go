package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/futside/models"
	"github.com/lib/pq"
)

var (
	ErrFieldNotFound     = errors.New("field not found")
	ErrFieldOwnerInvalid = errors.New("field owner conflict or invalid")
)

type FieldRepository interface {
	Create(ctx context.Context, field *models.Field) error
	GetByID(ctx context.Context, id int) (*models.Field, error)
	List(ctx context.Context, city *string) ([]models.Field, error)
	UpdatePhotoKey(ctx context.Context, id int, photoKey *string) error
}

type postgresFieldRepository struct {
	db *sql.DB
}

func NewPostgresFieldRepository(db *sql.DB) FieldRepository {
	return &postgresFieldRepository{db: db}
}

func (r *postgresFieldRepository) Create(ctx context.Context, field *models.Field) error {
	query := `
		INSERT INTO fields (owner_id, name, address, city, state)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		field.OwnerID,
		field.Name,
		field.Address,
		field.City,
		field.State,
	).Scan(&field.ID, &field.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			if pqErr.Constraint == "fields_owner_id_fkey" {
				return ErrFieldOwnerInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresFieldRepository) GetByID(ctx context.Context, id int) (*models.Field, error) {
	query := `
		SELECT id, owner_id, name, address, city, state, photo_key, created_at
		FROM fields
		WHERE id = $1`

	field := &models.Field{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&field.ID,
		&field.OwnerID,
		&field.Name,
		&field.Address,
		&field.City,
		&field.State,
		&field.PhotoKey,
		&field.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFieldNotFound
		}
		return nil, err
	}
	return field, nil
}

func (r *postgresFieldRepository) List(ctx context.Context, city *string) ([]models.Field, error) {
	query := `
		SELECT id, owner_id, name, address, city, state, photo_key, created_at
		FROM fields`
	args := []interface{}{}
	if city != nil {
		query += ` WHERE LOWER(city) = LOWER($1)`
		args = append(args, *city)
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := make([]models.Field, 0)
	for rows.Next() {
		var field models.Field
		scanErr := rows.Scan(
			&field.ID,
			&field.OwnerID,
			&field.Name,
			&field.Address,
			&field.City,
			&field.State,
			&field.PhotoKey,
			&field.CreatedAt,
		)
		if scanErr != nil {
			return nil, scanErr
		}
		fields = append(fields, field)
	}
	return fields, rows.Err()
}

func (r *postgresFieldRepository) UpdatePhotoKey(ctx context.Context, id int, photoKey *string) error {
	query := `UPDATE fields SET photo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, photoKey, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrFieldNotFound)
}
