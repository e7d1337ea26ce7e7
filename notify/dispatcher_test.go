package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/futside/models"
	"github.com/Dosada05/futside/repositories"
)

// tokenUserRepo — минимальный UserRepository для нужд диспетчера и резолвера.
type tokenUserRepo struct {
	mu     sync.Mutex
	tokens map[int]string // userID -> push token; пустая строка = токена нет
}

func newTokenUserRepo(tokens map[int]string) *tokenUserRepo {
	return &tokenUserRepo{tokens: tokens}
}

func (r *tokenUserRepo) Create(context.Context, *models.User) error { return nil }
func (r *tokenUserRepo) Update(context.Context, *models.User) error { return nil }

func (r *tokenUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[id]; !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &models.User{ID: id}, nil
}

func (r *tokenUserRepo) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}

func (r *tokenUserRepo) ClaimPushToken(_ context.Context, _ repositories.SQLExecutor, userID int, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[userID]; !ok {
		return repositories.ErrUserNotFound
	}
	for id, existing := range r.tokens {
		if existing == token {
			r.tokens[id] = ""
		}
	}
	r.tokens[userID] = token
	return nil
}

func (r *tokenUserRepo) ListIDsWithPushToken(_ context.Context, userIDs []int, excludeUserID int) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int
	for _, id := range userIDs {
		if id == excludeUserID {
			continue
		}
		if token, ok := r.tokens[id]; ok && token != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *tokenUserRepo) ListPushTokensByIDs(_ context.Context, userIDs []int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tokens []string
	for _, id := range userIDs {
		if token, ok := r.tokens[id]; ok && token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens, nil
}

// stubSender записывает вызовы и отвечает по сценарию.
type stubSender struct {
	mu         sync.Mutex
	calls      [][]string
	failTokens map[string]bool
	err        error
}

func (s *stubSender) SendMulticast(_ context.Context, tokens []string, _ Message) ([]TokenResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]string(nil), tokens...))
	if s.err != nil {
		return nil, s.err
	}
	results := make([]TokenResult, len(tokens))
	for i, token := range tokens {
		results[i] = TokenResult{Token: token}
		if s.failTokens[token] {
			results[i].Err = errors.New("unregistered token")
		}
	}
	return results, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchPushEmptyRecipients(t *testing.T) {
	sender := &stubSender{}
	d := NewDispatcher(newTokenUserRepo(nil), sender, discardLogger())

	result, err := d.DispatchPush(context.Background(), nil, Message{Title: "hi"})
	require.NoError(t, err)
	assert.Zero(t, result.SuccessCount)
	assert.Zero(t, result.FailureCount)
	assert.Empty(t, sender.calls, "provider must not be called for an empty set")
}

func TestDispatchPushTokenlessRecipients(t *testing.T) {
	sender := &stubSender{}
	repo := newTokenUserRepo(map[int]string{1: "", 2: ""})
	d := NewDispatcher(repo, sender, discardLogger())

	result, err := d.DispatchPush(context.Background(), []int{1, 2}, Message{Title: "hi"})
	require.NoError(t, err)
	assert.Zero(t, result.SuccessCount)
	assert.Empty(t, sender.calls)
}

func TestDispatchPushDeduplicatesTokens(t *testing.T) {
	// Два пользователя делят одно устройство.
	sender := &stubSender{}
	repo := newTokenUserRepo(map[int]string{1: "tok-a", 2: "tok-a", 3: "tok-b"})
	d := NewDispatcher(repo, sender, discardLogger())

	result, err := d.DispatchPush(context.Background(), []int{1, 2, 3}, Message{Title: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)

	require.Len(t, sender.calls, 1)
	assert.ElementsMatch(t, []string{"tok-a", "tok-b"}, sender.calls[0])
}

func TestDispatchPushPartialFailure(t *testing.T) {
	sender := &stubSender{failTokens: map[string]bool{"tok-b": true}}
	repo := newTokenUserRepo(map[int]string{1: "tok-a", 2: "tok-b", 3: "tok-c"})
	d := NewDispatcher(repo, sender, discardLogger())

	result, err := d.DispatchPush(context.Background(), []int{1, 2, 3}, Message{Title: "hi"})
	require.NoError(t, err, "per-token failures are not a dispatch error")
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	assert.Equal(t, []string{"tok-b"}, result.FailedTokens)
}

func TestDispatchPushProviderUnreachable(t *testing.T) {
	sender := &stubSender{err: errors.New("connection refused")}
	repo := newTokenUserRepo(map[int]string{1: "tok-a"})
	d := NewDispatcher(repo, sender, discardLogger())

	_, err := d.DispatchPush(context.Background(), []int{1}, Message{Title: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push provider unreachable")
}
