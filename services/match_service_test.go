package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/futside/models"
	"github.com/Dosada05/futside/realtime"
	"github.com/Dosada05/futside/repositories"
)

// --- in-memory фейки ---

// memTxRunner сериализует "транзакции" глобальным мьютексом, имитируя
// блокировку строки FOR UPDATE.
type memTxRunner struct {
	mu sync.Mutex
}

func (r *memTxRunner) RunInTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(nil)
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[int]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int]*models.User)}
}

func (r *memUserRepo) add(user *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
}

func (r *memUserRepo) Create(_ context.Context, user *models.User) error {
	r.add(user)
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *memUserRepo) Update(_ context.Context, user *models.User) error {
	r.add(user)
	return nil
}

func (r *memUserRepo) ClaimPushToken(_ context.Context, _ repositories.SQLExecutor, userID int, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	for _, other := range r.users {
		if other.PushToken != nil && *other.PushToken == token {
			other.PushToken = nil
		}
	}
	user.PushToken = &token
	return nil
}

func (r *memUserRepo) ListIDsWithPushToken(_ context.Context, userIDs []int, excludeUserID int) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int
	for _, id := range userIDs {
		if id == excludeUserID {
			continue
		}
		if user, ok := r.users[id]; ok && user.PushToken != nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memUserRepo) ListPushTokensByIDs(_ context.Context, userIDs []int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tokens []string
	for _, id := range userIDs {
		if user, ok := r.users[id]; ok && user.PushToken != nil {
			tokens = append(tokens, *user.PushToken)
		}
	}
	return tokens, nil
}

type memFieldRepo struct {
	mu     sync.Mutex
	fields map[int]*models.Field
}

func newMemFieldRepo() *memFieldRepo {
	return &memFieldRepo{fields: make(map[int]*models.Field)}
}

func (r *memFieldRepo) Create(_ context.Context, field *models.Field) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	field.ID = len(r.fields) + 1
	r.fields[field.ID] = field
	return nil
}

func (r *memFieldRepo) GetByID(_ context.Context, id int) (*models.Field, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	field, ok := r.fields[id]
	if !ok {
		return nil, repositories.ErrFieldNotFound
	}
	copied := *field
	return &copied, nil
}

func (r *memFieldRepo) List(_ context.Context, _ *string) ([]models.Field, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Field
	for _, field := range r.fields {
		out = append(out, *field)
	}
	return out, nil
}

func (r *memFieldRepo) UpdatePhotoKey(_ context.Context, id int, photoKey *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	field, ok := r.fields[id]
	if !ok {
		return repositories.ErrFieldNotFound
	}
	field.PhotoKey = photoKey
	return nil
}

type memMatchRepo struct {
	mu      sync.Mutex
	seq     int
	matches map[int]*models.Match
}

func newMemMatchRepo() *memMatchRepo {
	return &memMatchRepo{matches: make(map[int]*models.Match)}
}

func (r *memMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	match.ID = r.seq
	match.CreatedAt = time.Now()
	copied := *match
	r.matches[match.ID] = &copied
	return nil
}

func (r *memMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *match
	return &copied, nil
}

func (r *memMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *memMatchRepo) List(_ context.Context, filter repositories.MatchListFilter) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for _, match := range r.matches {
		if filter.Status != nil && match.Status != *filter.Status {
			continue
		}
		copied := *match
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memMatchRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.MatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Status = status
	return nil
}

func (r *memMatchRepo) UpdateScore(_ context.Context, _ repositories.SQLExecutor, id int, scoreA, scoreB int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.ScoreA = scoreA
	match.ScoreB = scoreB
	return nil
}

type memPlayerRepo struct {
	mu      sync.Mutex
	seq     int
	players map[int][]models.PlayerMatch
}

func newMemPlayerRepo() *memPlayerRepo {
	return &memPlayerRepo{players: make(map[int][]models.PlayerMatch)}
}

func (r *memPlayerRepo) Create(_ context.Context, _ repositories.SQLExecutor, pm *models.PlayerMatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.players[pm.MatchID] {
		if existing.UserID == pm.UserID {
			return repositories.ErrPlayerMatchConflict
		}
	}
	r.seq++
	pm.ID = r.seq
	pm.JoinedAt = time.Now()
	r.players[pm.MatchID] = append(r.players[pm.MatchID], *pm)
	return nil
}

func (r *memPlayerRepo) Exists(_ context.Context, _ repositories.SQLExecutor, matchID, userID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pm := range r.players[matchID] {
		if pm.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPlayerRepo) CountByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players[matchID]), nil
}

func (r *memPlayerRepo) ListByMatch(_ context.Context, matchID int) ([]models.PlayerMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.PlayerMatch(nil), r.players[matchID]...), nil
}

func (r *memPlayerRepo) ListUserIDsByMatch(_ context.Context, matchID int) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int
	for _, pm := range r.players[matchID] {
		ids = append(ids, pm.UserID)
	}
	return ids, nil
}

type publishedEvent struct {
	topic    realtime.Topic
	envelope realtime.Envelope
}

type capturePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *capturePublisher) Publish(topic realtime.Topic, envelope realtime.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, envelope: envelope})
}

func (p *capturePublisher) all() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

type regionCall struct {
	city          string
	excludeUserID int
	title         string
	body          string
	data          map[string]string
}

type usersCall struct {
	userIDs []int
	title   string
	body    string
	data    map[string]string
}

type captureNotifier struct {
	mu          sync.Mutex
	regionCalls []regionCall
	usersCalls  []usersCall
}

func (n *captureNotifier) NotifyRegion(city string, excludeUserID int, title, body string, data map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.regionCalls = append(n.regionCalls, regionCall{city, excludeUserID, title, body, data})
}

func (n *captureNotifier) NotifyUsers(userIDs []int, title, body string, data map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.usersCalls = append(n.usersCalls, usersCall{append([]int(nil), userIDs...), title, body, data})
}

// --- окружение теста ---

type matchEnv struct {
	svc        MatchService
	userRepo   *memUserRepo
	fieldRepo  *memFieldRepo
	matchRepo  *memMatchRepo
	playerRepo *memPlayerRepo
	publisher  *capturePublisher
	notifier   *captureNotifier
}

func newMatchEnv(t *testing.T) *matchEnv {
	t.Helper()
	env := &matchEnv{
		userRepo:   newMemUserRepo(),
		fieldRepo:  newMemFieldRepo(),
		matchRepo:  newMemMatchRepo(),
		playerRepo: newMemPlayerRepo(),
		publisher:  &capturePublisher{},
		notifier:   &captureNotifier{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.svc = NewMatchService(
		&memTxRunner{},
		env.matchRepo,
		env.fieldRepo,
		env.userRepo,
		env.playerRepo,
		env.publisher,
		env.notifier,
		logger,
	)
	return env
}

func (e *matchEnv) seedUser(id int, name string) *models.User {
	user := &models.User{ID: id, Name: name, Email: name + "@example.com", City: "Brasilia"}
	e.userRepo.add(user)
	return user
}

func (e *matchEnv) seedField(city string) *models.Field {
	field := &models.Field{OwnerID: 1, Name: "Arena Central", City: city}
	_ = e.fieldRepo.Create(context.Background(), field)
	return field
}

func (e *matchEnv) seedMatch(t *testing.T, creatorID, maxPlayers int, daysAhead int) *models.Match {
	t.Helper()
	field := e.seedField("Brasilia")
	match, err := e.svc.CreateMatch(context.Background(), creatorID, CreateMatchInput{
		FieldID:    field.ID,
		Title:      "Pelada de quinta",
		Date:       time.Now().AddDate(0, 0, daysAhead).Format("2006-01-02"),
		StartTime:  "19:00:00",
		EndTime:    "21:00:00",
		MaxPlayers: maxPlayers,
	})
	require.NoError(t, err)
	return match
}

// --- тесты ---

func TestCreateMatchPublishesAndNotifiesRegion(t *testing.T) {
	env := newMatchEnv(t)
	env.seedUser(1, "carlos")
	field := env.seedField("Sao Paulo")

	match, err := env.svc.CreateMatch(context.Background(), 1, CreateMatchInput{
		FieldID:    field.ID,
		Title:      "Racha no centro",
		Date:       time.Now().AddDate(0, 0, 3).Format("2006-01-02"),
		StartTime:  "18:00:00",
		EndTime:    "20:00:00",
		MaxPlayers: 10,
	})
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusScheduled, match.Status)

	events := env.publisher.all()
	require.Len(t, events, 1)
	assert.Equal(t, "matches/sao-paulo", events[0].topic.Name)
	assert.Equal(t, byte(1), events[0].topic.QoS)
	assert.Equal(t, realtime.EventNewMatch, events[0].envelope.Event)

	data, ok := events[0].envelope.Data.(realtime.NewMatchData)
	require.True(t, ok)
	assert.Equal(t, match.ID, data.ID)
	assert.Equal(t, "Sao Paulo", data.City)

	require.Len(t, env.notifier.regionCalls, 1)
	call := env.notifier.regionCalls[0]
	assert.Equal(t, "Sao Paulo", call.city)
	assert.Equal(t, 1, call.excludeUserID)
	assert.Contains(t, call.data, "matchId")
}

func TestCreateMatchValidation(t *testing.T) {
	env := newMatchEnv(t)
	env.seedUser(1, "carlos")
	field := env.seedField("Brasilia")

	base := CreateMatchInput{
		FieldID:    field.ID,
		Title:      "Racha",
		Date:       time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
		StartTime:  "18:00:00",
		EndTime:    "20:00:00",
		MaxPlayers: 10,
	}

	noTitle := base
	noTitle.Title = ""
	_, err := env.svc.CreateMatch(context.Background(), 1, noTitle)
	assert.ErrorIs(t, err, ErrMatchTitleRequired)

	badCapacity := base
	badCapacity.MaxPlayers = 0
	_, err = env.svc.CreateMatch(context.Background(), 1, badCapacity)
	assert.ErrorIs(t, err, ErrMatchInvalidCapacity)

	badTime := base
	badTime.StartTime = "21:00:00"
	_, err = env.svc.CreateMatch(context.Background(), 1, badTime)
	assert.ErrorIs(t, err, ErrMatchInvalidTime)

	badField := base
	badField.FieldID = 999
	_, err = env.svc.CreateMatch(context.Background(), 1, badField)
	assert.ErrorIs(t, err, ErrFieldNotFound)

	assert.Empty(t, env.publisher.all(), "failed creates must not publish")
}

func TestJoinPublishesAndNotifiesCreator(t *testing.T) {
	env := newMatchEnv(t)
	env.seedUser(1, "carlos")
	env.seedUser(2, "ana")
	match := env.seedMatch(t, 1, 10, 3)

	joined, err := env.svc.Join(context.Background(), match.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, joined.PlayerCount)

	events := env.publisher.all()
	require.Len(t, events, 2) // new_match + player_joined

	joinEvent := events[1]
	assert.Equal(t, realtime.MatchLobbyTopic(match.ID).Name, joinEvent.topic.Name)
	assert.Equal(t, byte(1), joinEvent.topic.QoS)
	assert.Equal(t, realtime.EventPlayerJoined, joinEvent.envelope.Event)

	data, ok := joinEvent.envelope.Data.(realtime.PlayerJoinedData)
	require.True(t, ok)
	assert.Equal(t, 2, data.UserID)
	assert.Equal(t, "ana", data.UserName)
	assert.Equal(t, 1, data.PlayerCount)

	require.Len(t, env.notifier.usersCalls, 1)
	assert.Equal(t, []int{1}, env.notifier.usersCalls[0].userIDs)
}

func TestJoinByCreatorSkipsNotification(t *testing.T) {
	env := newMatchEnv(t)
	env.seedUser(1, "carlos")
	match := env.seedMatch(t, 1, 10, 3)

	_, err := env.svc.Join(context.Background(), match.ID, 1)
	require.NoError(t, err)

	assert.Len(t, env.publisher.all(), 2, "join must still publish to the lobby")
	assert.Empty(t, env.notifier.usersCalls, "creator must not be notified about own join")
}

func TestJoinDuplicate(t *testing.T) {
	env := newMatchEnv(t)
	env.seedUser(1, "carlos")
	env.seedUser(2, "ana")
	match := env.seedMatch(t, 1, 10, 3)

	_, err := env.svc.Join(context.Background(), match.ID, 2)
	require.NoError(t, err)

	published := len(env.publisher.all())

	_, err = env.svc.Join(context.Background(), match.ID, 2)
	assert.ErrorIs(t, err, ErrMatchJoinConflict)
	assert.Len(t, env.publisher.all(), published, "failed join must not publish")
}

func TestJoinPastMatch(t *testing.T) {
	env := newMatchEnv(t)
	env.seedUser(1, "carlos")
	env.seedUser(2, "ana")
	match := env.seedMatch(t, 1, 10, 3)

	// Переносим матч в прошлое напрямую в хранилище.
	env.matchRepo.mu.Lock()
	env.matchRepo.matches[match.ID].Date = time.Now().AddDate(0, 0, -2)
	env.matchRepo.mu.Unlock()

	published := len(env.publisher.all())

	_, err := env.svc.Join(context.Background(), match.ID, 2)
	assert.ErrorIs(t, err, ErrMatchInPast)
	assert.Len(t, env.publisher.all(), published)
}

func TestJoinConcurrentRespectsCapacity(t *testing.T) {
	env := newMatchEnv(t)
	env.seedUser(1, "carlos")
	match := env.seedMatch(t, 1, 1, 3)

	const contenders = 8
	for i := 0; i < contenders; i++ {
		env.seedUser(10+i, "player")
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Join(context.Background(), match.ID, 10+i)
		}(i)
	}
	wg.Wait()

	var successes, full int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrMatchFull):
			full++
		default:
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one contender gets the last slot")
	assert.Equal(t, contenders-1, full)

	count, err := env.playerRepo.CountByMatch(context.Background(), nil, match.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "roster must never exceed capacity")
}

func TestStartByCreator(t *testing.T) {
	env := newMatchEnv(t)
	env.seedUser(1, "carlos")
	env.seedUser(2, "ana")
	env.seedUser(3, "bia")
	match := env.seedMatch(t, 1, 10, 3)

	_, err := env.svc.Join(context.Background(), match.ID, 2)
	require.NoError(t, err)
	_, err = env.svc.Join(context.Background(), match.ID, 3)
	require.NoError(t, err)

	started, err := env.svc.Start(context.Background(), match.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusInProgress, started.Status)

	events := env.publisher.all()
	last := events[len(events)-1]
	assert.Equal(t, realtime.MatchLobbyTopic(match.ID).Name, last.topic.Name)
	assert.Equal(t, realtime.EventMatchStarted, last.envelope.Event)

	// Пуш уходит составу, исключая инициатора.
	require.NotEmpty(t, env.notifier.usersCalls)
	rosterCall := env.notifier.usersCalls[len(env.notifier.usersCalls)-1]
	assert.ElementsMatch(t, []int{2, 3}, rosterCall.userIDs)
}

func TestStartForbiddenForNonCreator(t *testing.T) {
	env := newMatchEnv(t)
	env.seedUser(1, "carlos")
	env.seedUser(2, "ana")
	match := env.seedMatch(t, 1, 10, 3)

	_, err := env.svc.Start(context.Background(), match.ID, 2)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	current, err := env.svc.GetMatchByID(context.Background(), match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusScheduled, current.Status, "failed start must not change status")
}

func TestStartTwice(t *testing.T) {
	env := newMatchEnv(t)
	env.seedUser(1, "carlos")
	match := env.seedMatch(t, 1, 10, 3)

	_, err := env.svc.Start(context.Background(), match.ID, 1)
	require.NoError(t, err)

	_, err = env.svc.Start(context.Background(), match.ID, 1)
	assert.ErrorIs(t, err, ErrMatchInvalidStatus)
}

func TestCancelFromScheduled(t *testing.T) {
	env := newMatchEnv(t)
	env.seedUser(1, "carlos")
	match := env.seedMatch(t, 1, 10, 3)

	canceled, err := env.svc.Cancel(context.Background(), match.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCanceled, canceled.Status)

	events := env.publisher.all()
	last := events[len(events)-1]
	assert.Equal(t, realtime.EventMatchCanceled, last.envelope.Event)
}

func TestCancelAfterStartRejected(t *testing.T) {
	env := newMatchEnv(t)
	env.seedUser(1, "carlos")
	match := env.seedMatch(t, 1, 10, 3)

	_, err := env.svc.Start(context.Background(), match.ID, 1)
	require.NoError(t, err)

	_, err = env.svc.Cancel(context.Background(), match.ID, 1)
	assert.ErrorIs(t, err, ErrMatchInvalidStatus)
}

func TestUpdateScorePublishesLiveEvents(t *testing.T) {
	env := newMatchEnv(t)
	env.seedUser(1, "carlos")
	match := env.seedMatch(t, 1, 10, 3)

	_, err := env.svc.UpdateScore(context.Background(), match.ID, 1, 1, 0)
	require.NoError(t, err)
	updated, err := env.svc.UpdateScore(context.Background(), match.ID, 1, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.ScoreA)
	assert.Equal(t, 1, updated.ScoreB)

	var liveEvents []publishedEvent
	for _, event := range env.publisher.all() {
		if event.topic.Name == realtime.MatchLiveTopic(match.ID).Name {
			liveEvents = append(liveEvents, event)
		}
	}
	require.Len(t, liveEvents, 2, "every score write publishes, even an identical one")
	assert.Equal(t, byte(2), liveEvents[0].topic.QoS)

	data, ok := liveEvents[1].envelope.Data.(realtime.ScoreUpdateData)
	require.True(t, ok)
	assert.Equal(t, 2, data.ScoreA)
	assert.Equal(t, 1, data.ScoreB)

	assert.Empty(t, env.notifier.usersCalls, "score updates never trigger push")
}

func TestUpdateScoreForbiddenForNonCreator(t *testing.T) {
	env := newMatchEnv(t)
	env.seedUser(1, "carlos")
	env.seedUser(2, "ana")
	match := env.seedMatch(t, 1, 10, 3)

	_, err := env.svc.UpdateScore(context.Background(), match.ID, 2, 1, 0)
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}

func TestJoinMissingMatch(t *testing.T) {
	env := newMatchEnv(t)
	env.seedUser(2, "ana")

	_, err := env.svc.Join(context.Background(), 404, 2)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}
