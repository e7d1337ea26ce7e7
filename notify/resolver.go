package notify

import (
	"context"
	"fmt"

	"github.com/Dosada05/futside/repositories"
)

// RegionResolver разрешает город в множество получателей push-уведомлений.
type RegionResolver struct {
	subscriptionRepo repositories.SubscriptionRepository
	userRepo         repositories.UserRepository
}

func NewRegionResolver(
	subscriptionRepo repositories.SubscriptionRepository,
	userRepo repositories.UserRepository,
) *RegionResolver {
	return &RegionResolver{
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
	}
}

// ResolveRecipients возвращает дедуплицированный набор пользователей,
// подписанных на город (без учёта регистра), за вычетом excludeUserID и
// пользователей без push-токена. Пустой результат — нормальный исход,
// а не ошибка.
func (r *RegionResolver) ResolveRecipients(ctx context.Context, city string, excludeUserID int) ([]int, error) {
	subscriberIDs, err := r.subscriptionRepo.ListUserIDsByCity(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers for city %q: %w", city, err)
	}
	if len(subscriberIDs) == 0 {
		return []int{}, nil
	}

	recipients, err := r.userRepo.ListIDsWithPushToken(ctx, subscriberIDs, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to filter subscribers by push token: %w", err)
	}
	return recipients, nil
}
