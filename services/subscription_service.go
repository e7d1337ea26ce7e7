package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/futside/models"
	"github.com/Dosada05/futside/repositories"
)

type SubscriptionService interface {
	Subscribe(ctx context.Context, userID int, city string) (*models.RegionSubscription, error)
	Unsubscribe(ctx context.Context, userID int, city string) error
	ListByUser(ctx context.Context, userID int) ([]models.RegionSubscription, error)
}

type subscriptionService struct {
	subscriptionRepo repositories.SubscriptionRepository
}

func NewSubscriptionService(subscriptionRepo repositories.SubscriptionRepository) SubscriptionService {
	return &subscriptionService{subscriptionRepo: subscriptionRepo}
}

func (s *subscriptionService) Subscribe(ctx context.Context, userID int, city string) (*models.RegionSubscription, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrCityRequired
	}

	sub := &models.RegionSubscription{UserID: userID, City: city}
	if err := s.subscriptionRepo.Create(ctx, sub); err != nil {
		switch {
		case errors.Is(err, repositories.ErrSubscriptionConflict):
			return nil, ErrSubscriptionConflict
		case errors.Is(err, repositories.ErrSubscriptionInvalid):
			return nil, ErrUserNotFound
		default:
			return nil, fmt.Errorf("failed to create subscription: %w", err)
		}
	}
	return sub, nil
}

func (s *subscriptionService) Unsubscribe(ctx context.Context, userID int, city string) error {
	city = strings.TrimSpace(city)
	if city == "" {
		return ErrCityRequired
	}

	if err := s.subscriptionRepo.Delete(ctx, userID, city); err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			return ErrSubscriptionNotFound
		}
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

func (s *subscriptionService) ListByUser(ctx context.Context, userID int) ([]models.RegionSubscription, error) {
	subs, err := s.subscriptionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	if subs == nil {
		return []models.RegionSubscription{}, nil
	}
	return subs, nil
}
