package store

import (
	"context"

	"github.com/openai-token-gateway/internal/model"
)

// UserStore defines operations for user records.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, slackID string) (*model.User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]*model.User, error)
	CountUsers(ctx context.Context) (int, error)
}

// TokenStore defines operations for token records. ConsumeToken is the only
// mutation with a concurrency invariant: the decrement is conditional in the
// database, so concurrent consumers of one token serialize there and the
// counter can never go below zero.
type TokenStore interface {
	CreateToken(ctx context.Context, token *model.Token) error
	GetToken(ctx context.Context, value string) (*model.Token, error)
	ListTokens(ctx context.Context, offset, limit int) ([]*model.Token, error)
	ListTokensByOwner(ctx context.Context, slackID string) ([]*model.Token, error)
	CountTokens(ctx context.Context) (int, error)
	ConsumeToken(ctx context.Context, value string, n int) (*model.Token, error)
	SetTokenRevoked(ctx context.Context, value string) error
	SetTokenBlocked(ctx context.Context, value string, blocked bool) error
	DeleteToken(ctx context.Context, value string) error
}

// UsageStore defines operations for the append-only usage log.
type UsageStore interface {
	CreateUsage(ctx context.Context, rec *model.UsageRecord) error
	ListUsageByToken(ctx context.Context, tokenValue string, offset, limit int) ([]*model.UsageRecord, error)
}

// Store combines all persistence interfaces.
type Store interface {
	UserStore
	TokenStore
	UsageStore
}
