package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Dosada05/futside/models"
	"github.com/Dosada05/futside/realtime"
	"github.com/Dosada05/futside/repositories"
)

type CreateMatchInput struct {
	FieldID        int      `json:"field_id"`
	Title          string   `json:"title"`
	Description    *string  `json:"description"`
	Date           string   `json:"date"`       // "2006-01-02"
	StartTime      string   `json:"start_time"` // "15:04:05"
	EndTime        string   `json:"end_time"`
	MaxPlayers     int      `json:"max_players"`
	SkillLevel     *string  `json:"skill_level"`
	PricePerPlayer *float64 `json:"price_per_player"`
}

type MatchService interface {
	CreateMatch(ctx context.Context, creatorID int, input CreateMatchInput) (*models.Match, error)
	GetMatchByID(ctx context.Context, id int) (*models.Match, error)
	ListMatches(ctx context.Context, filter repositories.MatchListFilter) ([]*models.Match, error)
	Join(ctx context.Context, matchID, userID int) (*models.Match, error)
	Start(ctx context.Context, matchID, actorID int) (*models.Match, error)
	Cancel(ctx context.Context, matchID, actorID int) (*models.Match, error)
	UpdateScore(ctx context.Context, matchID, actorID, scoreA, scoreB int) (*models.Match, error)
}

// matchService владеет переходами состояния матча. Каждая успешная мутация
// публикует событие в live-ленту и, где уместно, ставит push-рассылку в
// фоновую очередь — строго после коммита транзакции, никогда до.
type matchService struct {
	txRunner   repositories.TxRunner
	matchRepo  repositories.MatchRepository
	fieldRepo  repositories.FieldRepository
	userRepo   repositories.UserRepository
	playerRepo repositories.PlayerRepository
	publisher  realtime.Publisher
	notifier   Notifier
	logger     *slog.Logger
}

func NewMatchService(
	txRunner repositories.TxRunner,
	matchRepo repositories.MatchRepository,
	fieldRepo repositories.FieldRepository,
	userRepo repositories.UserRepository,
	playerRepo repositories.PlayerRepository,
	publisher realtime.Publisher,
	notifier Notifier,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		txRunner:   txRunner,
		matchRepo:  matchRepo,
		fieldRepo:  fieldRepo,
		userRepo:   userRepo,
		playerRepo: playerRepo,
		publisher:  publisher,
		notifier:   notifier,
		logger:     logger,
	}
}

const dateLayout = "2006-01-02"

func (s *matchService) CreateMatch(ctx context.Context, creatorID int, input CreateMatchInput) (*models.Match, error) {
	if input.Title == "" {
		return nil, ErrMatchTitleRequired
	}
	if input.MaxPlayers <= 0 {
		return nil, ErrMatchInvalidCapacity
	}
	date, err := time.Parse(dateLayout, input.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date format, expected %s", ErrValidationFailed, dateLayout)
	}
	if input.StartTime >= input.EndTime {
		return nil, ErrMatchInvalidTime
	}

	if _, err := s.userRepo.GetByID(ctx, creatorID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to check match creator: %w", err)
	}

	field, err := s.fieldRepo.GetByID(ctx, input.FieldID)
	if err != nil {
		if errors.Is(err, repositories.ErrFieldNotFound) {
			return nil, ErrFieldNotFound
		}
		return nil, fmt.Errorf("failed to check match field: %w", err)
	}

	match := &models.Match{
		FieldID:        input.FieldID,
		CreatorID:      creatorID,
		Title:          input.Title,
		Description:    input.Description,
		Date:           date,
		StartTime:      input.StartTime,
		EndTime:        input.EndTime,
		MaxPlayers:     input.MaxPlayers,
		SkillLevel:     input.SkillLevel,
		PricePerPlayer: input.PricePerPlayer,
		Status:         models.MatchStatusScheduled,
	}

	if err := s.matchRepo.Create(ctx, nil, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	// Состояние закоммичено — дальше только побочные эффекты.
	s.publisher.Publish(realtime.RegionTopic(field.City), realtime.NewMatchEnvelope(match, field.City))

	s.notifier.NotifyRegion(field.City, creatorID,
		"Nova partida na sua área!",
		fmt.Sprintf("A partida '%s' foi criada em %s. Toque para ver!", match.Title, field.City),
		matchDataPayload(match.ID),
	)

	match.Field = field
	return match, nil
}

func (s *matchService) GetMatchByID(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	players, err := s.playerRepo.ListByMatch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load match roster: %w", err)
	}
	match.Players = players
	match.PlayerCount = len(players)

	if field, err := s.fieldRepo.GetByID(ctx, match.FieldID); err == nil {
		match.Field = field
	}

	return match, nil
}

func (s *matchService) ListMatches(ctx context.Context, filter repositories.MatchListFilter) ([]*models.Match, error) {
	matches, err := s.matchRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	if matches == nil {
		return []*models.Match{}, nil
	}
	return matches, nil
}

// Join добавляет пользователя в состав матча. Проверка даты, дубликата и
// вместимости выполняется в одной транзакции под блокировкой строки матча:
// конкурирующие join-ы по одному матчу сериализуются и не могут вдвоём
// увидеть ложное "место есть".
func (s *matchService) Join(ctx context.Context, matchID, userID int) (*models.Match, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to check joining user: %w", err)
	}

	var (
		match       *models.Match
		playerMatch models.PlayerMatch
		playerCount int
	)

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("failed to lock match: %w", err)
		}

		if dateOnly(m.Date).Before(dateOnly(time.Now())) {
			return ErrMatchInPast
		}

		exists, err := s.playerRepo.Exists(ctx, exec, matchID, userID)
		if err != nil {
			return fmt.Errorf("failed to check existing participation: %w", err)
		}
		if exists {
			return ErrMatchJoinConflict
		}

		count, err := s.playerRepo.CountByMatch(ctx, exec, matchID)
		if err != nil {
			return fmt.Errorf("failed to count match players: %w", err)
		}
		if count >= m.MaxPlayers {
			return ErrMatchFull
		}

		pm := &models.PlayerMatch{MatchID: matchID, UserID: userID}
		if err := s.playerRepo.Create(ctx, exec, pm); err != nil {
			if errors.Is(err, repositories.ErrPlayerMatchConflict) {
				return ErrMatchJoinConflict
			}
			return fmt.Errorf("failed to create player match: %w", err)
		}

		match = m
		playerMatch = *pm
		playerCount = count + 1
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(realtime.MatchLobbyTopic(matchID),
		realtime.PlayerJoinedEnvelope(matchID, user, playerCount, playerMatch.JoinedAt))

	if match.CreatorID != userID {
		s.notifier.NotifyUsers([]int{match.CreatorID},
			"Novo jogador na sua partida!",
			fmt.Sprintf("%s entrou na partida '%s'.", user.Name, match.Title),
			matchDataPayload(matchID),
		)
	}

	match.PlayerCount = playerCount
	return match, nil
}

func (s *matchService) Start(ctx context.Context, matchID, actorID int) (*models.Match, error) {
	var match *models.Match

	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("failed to lock match: %w", err)
		}

		if m.CreatorID != actorID {
			return ErrForbiddenOperation
		}
		if m.Status != models.MatchStatusScheduled {
			return ErrMatchInvalidStatus
		}

		if err := s.matchRepo.UpdateStatus(ctx, exec, matchID, models.MatchStatusInProgress); err != nil {
			return fmt.Errorf("failed to update match status: %w", err)
		}

		m.Status = models.MatchStatusInProgress
		match = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	startedAt := time.Now()
	s.publisher.Publish(realtime.MatchLobbyTopic(matchID),
		realtime.MatchStartedEnvelope(matchID, startedAt))

	s.notifyRoster(ctx, match, actorID,
		"A partida começou!",
		fmt.Sprintf("A partida '%s' está em andamento.", match.Title))

	return match, nil
}

func (s *matchService) Cancel(ctx context.Context, matchID, actorID int) (*models.Match, error) {
	var match *models.Match

	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("failed to lock match: %w", err)
		}

		if m.CreatorID != actorID {
			return ErrForbiddenOperation
		}
		if m.Status != models.MatchStatusScheduled && m.Status != models.MatchStatusConfirmed {
			return ErrMatchInvalidStatus
		}

		if err := s.matchRepo.UpdateStatus(ctx, exec, matchID, models.MatchStatusCanceled); err != nil {
			return fmt.Errorf("failed to update match status: %w", err)
		}

		m.Status = models.MatchStatusCanceled
		match = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(realtime.MatchLobbyTopic(matchID),
		realtime.MatchCanceledEnvelope(matchID, time.Now()))

	s.notifyRoster(ctx, match, actorID,
		"Partida cancelada",
		fmt.Sprintf("A partida '%s' foi cancelada pelo organizador.", match.Title))

	return match, nil
}

// UpdateScore задаёт счёт без проверки статуса: наблюдаемое поведение
// позволяет менять счёт в любом статусе. Конкурирующие вызовы не
// сериализуются — побеждает последняя запись.
func (s *matchService) UpdateScore(ctx context.Context, matchID, actorID, scoreA, scoreB int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	if match.CreatorID != actorID {
		return nil, ErrForbiddenOperation
	}

	if err := s.matchRepo.UpdateScore(ctx, nil, matchID, scoreA, scoreB); err != nil {
		return nil, fmt.Errorf("failed to update match score: %w", err)
	}

	match.ScoreA = scoreA
	match.ScoreB = scoreB

	s.publisher.Publish(realtime.MatchLiveTopic(matchID),
		realtime.ScoreUpdateEnvelope(matchID, scoreA, scoreB, time.Now()))

	return match, nil
}

// notifyRoster рассылает push текущему составу матча, кроме actorID.
func (s *matchService) notifyRoster(ctx context.Context, match *models.Match, actorID int, title, body string) {
	roster, err := s.playerRepo.ListUserIDsByMatch(ctx, match.ID)
	if err != nil {
		s.logger.Error("failed to load roster for notification",
			slog.Int("match_id", match.ID), slog.Any("error", err))
		return
	}

	recipients := make([]int, 0, len(roster))
	for _, id := range roster {
		if id != actorID {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return
	}

	s.notifier.NotifyUsers(recipients, title, body, matchDataPayload(match.ID))
}

func matchDataPayload(matchID int) map[string]string {
	return map[string]string{"matchId": strconv.Itoa(matchID)}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
