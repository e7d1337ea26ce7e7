package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Dosada05/futside/models"
	"github.com/Dosada05/futside/repositories"
)

type RegisterInput struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Phone    *string `json:"phone"`
	City     string  `json:"city"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*models.User, error)
}

type authService struct {
	userRepo         repositories.UserRepository
	subscriptionRepo repositories.SubscriptionRepository
	logger           *slog.Logger
}

func NewAuthService(
	userRepo repositories.UserRepository,
	subscriptionRepo repositories.SubscriptionRepository,
	logger *slog.Logger,
) AuthService {
	return &authService{
		userRepo:         userRepo,
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
	}
}

const minPasswordLength = 8

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.City = strings.TrimSpace(input.City)

	if input.Name == "" || input.Email == "" {
		return nil, ErrValidationFailed
	}
	if input.City == "" {
		return nil, ErrCityRequired
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Phone:        input.Phone,
		City:         input.City,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrAuthEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.subscribeHomeCity(ctx, user)

	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrAuthInvalidCredentials
	}

	// Логин гарантирует подписку на домашний город — «тихий» ресабскрайб,
	// конфликт по уникальному индексу означает, что подписка уже есть.
	s.subscribeHomeCity(ctx, user)

	return user, nil
}

func (s *authService) subscribeHomeCity(ctx context.Context, user *models.User) {
	if user.City == "" {
		return
	}
	sub := &models.RegionSubscription{UserID: user.ID, City: user.City}
	if err := s.subscriptionRepo.Create(ctx, sub); err != nil &&
		!errors.Is(err, repositories.ErrSubscriptionConflict) {
		s.logger.Warn("failed to subscribe user to home city",
			slog.Int("user_id", user.ID), slog.String("city", user.City), slog.Any("error", err))
	}
}
