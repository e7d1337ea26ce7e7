package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/futside/models"
	"github.com/Dosada05/futside/repositories"
)

type UserService interface {
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	RegisterPushToken(ctx context.Context, userID int, token string) error
}

type userService struct {
	txRunner repositories.TxRunner
	userRepo repositories.UserRepository
}

func NewUserService(txRunner repositories.TxRunner, userRepo repositories.UserRepository) UserService {
	return &userService{txRunner: txRunner, userRepo: userRepo}
}

func (s *userService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// RegisterPushToken привязывает device token к пользователю. Токен уникален
// глобально: если он числился за другим аккаунтом (общее устройство),
// у прежнего владельца он снимается в той же транзакции.
func (s *userService) RegisterPushToken(ctx context.Context, userID int, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrPushTokenRequired
	}

	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.userRepo.ClaimPushToken(ctx, exec, userID, token)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to register push token: %w", err)
	}
	return nil
}
