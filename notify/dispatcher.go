package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/futside/repositories"
)

// Message — заголовок, текст и data-нагрузка push-уведомления. Data должна
// содержать достаточно идентифицирующих полей для deep-link на клиенте
// (как минимум matchId).
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// TokenResult — исход отправки для одного токена.
type TokenResult struct {
	Token string
	Err   error
}

// Sender выполняет один multicast всем токенам сразу. Возвращает исход по
// каждому токену в порядке аргумента tokens; ошибка означает отказ всей
// партии (провайдер недоступен).
type Sender interface {
	SendMulticast(ctx context.Context, tokens []string, msg Message) ([]TokenResult, error)
}

// Result — сводка по партии отправок.
type Result struct {
	SuccessCount int
	FailureCount int
	FailedTokens []string
}

// Dispatcher разрешает получателей в токены и выполняет multicast.
// Отказ отдельного токена не влияет на остальные и попадает только в сводку.
type Dispatcher struct {
	userRepo repositories.UserRepository
	sender   Sender
	logger   *slog.Logger
}

func NewDispatcher(userRepo repositories.UserRepository, sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		userRepo: userRepo,
		sender:   sender,
		logger:   logger,
	}
}

// DispatchPush отправляет msg каждому из recipients, у кого есть push-токен.
// Токены дедуплицируются: общее устройство не получает дубликатов, если
// несколько получателей схлопываются в один токен. Пустой итоговый набор —
// успех с нулевыми счётчиками, провайдер при этом не вызывается.
func (d *Dispatcher) DispatchPush(ctx context.Context, recipients []int, msg Message) (Result, error) {
	if len(recipients) == 0 {
		return Result{}, nil
	}

	tokens, err := d.userRepo.ListPushTokensByIDs(ctx, recipients)
	if err != nil {
		return Result{}, fmt.Errorf("failed to resolve push tokens: %w", err)
	}

	tokens = dedupeTokens(tokens)
	if len(tokens) == 0 {
		d.logger.Debug("no push tokens to notify", slog.String("title", msg.Title))
		return Result{}, nil
	}

	outcomes, err := d.sender.SendMulticast(ctx, tokens, msg)
	if err != nil {
		return Result{}, fmt.Errorf("push provider unreachable: %w", err)
	}

	var result Result
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			result.FailureCount++
			result.FailedTokens = append(result.FailedTokens, outcome.Token)
			d.logger.Warn("push delivery failed for token",
				slog.String("token", outcome.Token), slog.Any("error", outcome.Err))
			continue
		}
		result.SuccessCount++
	}

	d.logger.Info("push batch dispatched",
		slog.String("title", msg.Title),
		slog.Int("success", result.SuccessCount),
		slog.Int("failure", result.FailureCount))

	return result, nil
}

// dedupeTokens удаляет дубликаты, сохраняя порядок первого вхождения.
func dedupeTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	unique := tokens[:0]
	for _, token := range tokens {
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		unique = append(unique, token)
	}
	return unique
}
