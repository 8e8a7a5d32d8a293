package service

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openai-token-gateway/internal/model"
)

// memStore is an in-memory store.Store used by service tests. It mimics the
// postgres error surface: pgx.ErrNoRows on absence, pgconn unique and
// foreign-key violations on constraint breaks, and a mutex-serialized
// conditional decrement in ConsumeToken.
type memStore struct {
	mu     sync.Mutex
	users  map[string]*model.User
	tokens map[string]*model.Token
	usages []*model.UsageRecord

	// createCollisions forces the next n CreateToken calls to fail with a
	// unique violation, for collision-retry tests.
	createCollisions int
	// usageErr, when set, fails CreateUsage.
	usageErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[string]*model.User),
		tokens: make(map[string]*model.Token),
	}
}

func uniqueViolation() error     { return &pgconn.PgError{Code: "23505"} }
func foreignKeyViolation() error { return &pgconn.PgError{Code: "23503"} }

func (m *memStore) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.SlackID]; ok {
		return uniqueViolation()
	}
	u := *user
	m.users[user.SlackID] = &u
	return nil
}

func (m *memStore) GetUser(ctx context.Context, slackID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[slackID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (m *memStore) ListUsers(ctx context.Context, offset, limit int) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []*model.User
	for _, u := range m.users {
		copied := *u
		users = append(users, &copied)
	}
	return paginate(users, offset, limit), nil
}

func (m *memStore) CountUsers(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memStore) CreateToken(ctx context.Context, token *model.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createCollisions > 0 {
		m.createCollisions--
		return uniqueViolation()
	}
	if _, ok := m.tokens[token.Value]; ok {
		return uniqueViolation()
	}
	if _, ok := m.users[token.OwnerSlackID]; !ok {
		return foreignKeyViolation()
	}
	t := *token
	m.tokens[token.Value] = &t
	return nil
}

func (m *memStore) GetToken(ctx context.Context, value string) (*model.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[value]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (m *memStore) ListTokens(ctx context.Context, offset, limit int) ([]*model.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tokens []*model.Token
	for _, t := range m.tokens {
		copied := *t
		tokens = append(tokens, &copied)
	}
	return paginate(tokens, offset, limit), nil
}

func (m *memStore) ListTokensByOwner(ctx context.Context, slackID string) ([]*model.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tokens []*model.Token
	for _, t := range m.tokens {
		if t.OwnerSlackID == slackID {
			copied := *t
			tokens = append(tokens, &copied)
		}
	}
	return tokens, nil
}

func (m *memStore) CountTokens(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens), nil
}

func (m *memStore) ConsumeToken(ctx context.Context, value string, n int) (*model.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[value]
	if !ok || t.UsesLeft < n {
		return nil, pgx.ErrNoRows
	}
	t.UsesLeft -= n
	copied := *t
	return &copied, nil
}

func (m *memStore) SetTokenRevoked(ctx context.Context, value string) error {
	return m.updateToken(value, func(t *model.Token) { t.IsRevoked = true })
}

func (m *memStore) SetTokenBlocked(ctx context.Context, value string, blocked bool) error {
	return m.updateToken(value, func(t *model.Token) { t.IsBlocked = blocked })
}

func (m *memStore) DeleteToken(ctx context.Context, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[value]; !ok {
		return pgx.ErrNoRows
	}
	for _, rec := range m.usages {
		if rec.TokenValue == value {
			return foreignKeyViolation()
		}
	}
	delete(m.tokens, value)
	return nil
}

func (m *memStore) updateToken(value string, mutate func(*model.Token)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[value]
	if !ok {
		return pgx.ErrNoRows
	}
	mutate(t)
	return nil
}

func (m *memStore) CreateUsage(ctx context.Context, rec *model.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.usageErr != nil {
		return m.usageErr
	}
	copied := *rec
	copied.ID = int64(len(m.usages) + 1)
	m.usages = append(m.usages, &copied)
	rec.ID = copied.ID
	return nil
}

func (m *memStore) ListUsageByToken(ctx context.Context, tokenValue string, offset, limit int) ([]*model.UsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var records []*model.UsageRecord
	for _, rec := range m.usages {
		if rec.TokenValue == tokenValue {
			copied := *rec
			records = append(records, &copied)
		}
	}
	return paginate(records, offset, limit), nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}
