package notify

import (
	"context"
	"log/slog"
)

// Service — фасад над резолвером, диспетчером и пулом: принимает запрос на
// уведомление и выполняет его в фоне. Методы возвращаются сразу, не дожидаясь
// доставки; переход состояния, вызвавший уведомление, к этому моменту уже
// закоммичен.
type Service struct {
	pool       *Pool
	dispatcher *Dispatcher
	resolver   *RegionResolver
	logger     *slog.Logger
}

func NewService(pool *Pool, dispatcher *Dispatcher, resolver *RegionResolver, logger *slog.Logger) *Service {
	return &Service{
		pool:       pool,
		dispatcher: dispatcher,
		resolver:   resolver,
		logger:     logger,
	}
}

// NotifyRegion рассылает push подписчикам города, исключая excludeUserID.
func (s *Service) NotifyRegion(city string, excludeUserID int, title, body string, data map[string]string) {
	msg := Message{Title: title, Body: body, Data: data}
	s.pool.Submit(func(ctx context.Context) {
		recipients, err := s.resolver.ResolveRecipients(ctx, city, excludeUserID)
		if err != nil {
			s.logger.Error("failed to resolve region recipients",
				slog.String("city", city), slog.Any("error", err))
			return
		}
		if len(recipients) == 0 {
			s.logger.Debug("no subscribers to notify", slog.String("city", city))
			return
		}
		if _, err := s.dispatcher.DispatchPush(ctx, recipients, msg); err != nil {
			s.logger.Error("push dispatch failed", slog.String("city", city), slog.Any("error", err))
		}
	})
}

// NotifyUsers рассылает push конкретным пользователям (у кого есть токен).
func (s *Service) NotifyUsers(userIDs []int, title, body string, data map[string]string) {
	if len(userIDs) == 0 {
		return
	}
	msg := Message{Title: title, Body: body, Data: data}
	recipients := append([]int(nil), userIDs...)
	s.pool.Submit(func(ctx context.Context) {
		if _, err := s.dispatcher.DispatchPush(ctx, recipients, msg); err != nil {
			s.logger.Error("push dispatch failed", slog.Any("error", err))
		}
	})
}
