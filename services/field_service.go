package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/futside/models"
	"github.com/Dosada05/futside/repositories"
	"github.com/Dosada05/futside/storage"
)

type CreateFieldInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
}

type FieldService interface {
	CreateField(ctx context.Context, ownerID int, input CreateFieldInput) (*models.Field, error)
	GetFieldByID(ctx context.Context, id int) (*models.Field, error)
	ListFields(ctx context.Context, city *string) ([]models.Field, error)
	UploadPhoto(ctx context.Context, fieldID, actorID int, contentType string, reader io.Reader) (*models.Field, error)
}

type fieldService struct {
	fieldRepo repositories.FieldRepository
	uploader  storage.FileUploader
	logger    *slog.Logger
}

func NewFieldService(fieldRepo repositories.FieldRepository, uploader storage.FileUploader, logger *slog.Logger) FieldService {
	return &fieldService{fieldRepo: fieldRepo, uploader: uploader, logger: logger}
}

func (s *fieldService) CreateField(ctx context.Context, ownerID int, input CreateFieldInput) (*models.Field, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.City = strings.TrimSpace(input.City)

	if input.Name == "" {
		return nil, ErrValidationFailed
	}
	if input.City == "" {
		return nil, ErrCityRequired
	}

	field := &models.Field{
		OwnerID: ownerID,
		Name:    input.Name,
		Address: strings.TrimSpace(input.Address),
		City:    input.City,
		State:   strings.TrimSpace(input.State),
	}

	if err := s.fieldRepo.Create(ctx, field); err != nil {
		if errors.Is(err, repositories.ErrFieldOwnerInvalid) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create field: %w", err)
	}

	return field, nil
}

func (s *fieldService) GetFieldByID(ctx context.Context, id int) (*models.Field, error) {
	field, err := s.fieldRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrFieldNotFound) {
			return nil, ErrFieldNotFound
		}
		return nil, err
	}
	s.populatePhotoURL(field)
	return field, nil
}

func (s *fieldService) ListFields(ctx context.Context, city *string) ([]models.Field, error) {
	fields, err := s.fieldRepo.List(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	for i := range fields {
		s.populatePhotoURL(&fields[i])
	}
	if fields == nil {
		return []models.Field{}, nil
	}
	return fields, nil
}

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// UploadPhoto загружает фото площадки в объектное хранилище и сохраняет ключ.
// Старое фото удаляется по принципу best-effort: неудачное удаление не
// откатывает замену.
func (s *fieldService) UploadPhoto(ctx context.Context, fieldID, actorID int, contentType string, reader io.Reader) (*models.Field, error) {
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, ErrUnsupportedImageType
	}

	field, err := s.fieldRepo.GetByID(ctx, fieldID)
	if err != nil {
		if errors.Is(err, repositories.ErrFieldNotFound) {
			return nil, ErrFieldNotFound
		}
		return nil, err
	}
	if field.OwnerID != actorID {
		return nil, ErrForbiddenOperation
	}

	key := fmt.Sprintf("fields/%d/photo_%d.%s", fieldID, time.Now().UnixNano(), ext)

	if _, err := s.uploader.Upload(ctx, key, contentType, reader); err != nil {
		return nil, fmt.Errorf("failed to upload field photo: %w", err)
	}

	oldKey := field.PhotoKey
	if err := s.fieldRepo.UpdatePhotoKey(ctx, fieldID, &key); err != nil {
		// Запись в БД не удалась — убираем осиротевший объект.
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.Error("failed to clean up orphaned field photo",
				slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, fmt.Errorf("failed to persist field photo key: %w", err)
	}

	if oldKey != nil && *oldKey != key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous field photo",
				slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	field.PhotoKey = &key
	s.populatePhotoURL(field)
	return field, nil
}

func (s *fieldService) populatePhotoURL(field *models.Field) {
	if field.PhotoKey == nil || *field.PhotoKey == "" {
		return
	}
	if url := s.uploader.GetPublicURL(*field.PhotoKey); url != "" {
		field.PhotoURL = &url
	}
}
