package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/openai-token-gateway/internal/model"
	"github.com/openai-token-gateway/internal/store"
)

// maxGenerateAttempts bounds token-value generation retries on collision.
const maxGenerateAttempts = 5

// TokenService is the single source of truth for whether a token may act
// right now, and for mutating token state.
type TokenService struct {
	store       store.Store
	defaultUses int
}

// NewTokenService creates a new token service. defaultUses is the initial
// remaining-uses counter for created tokens.
func NewTokenService(s store.Store, defaultUses int) *TokenService {
	return &TokenService{store: s, defaultUses: defaultUses}
}

// AuthorizedToken is the handle returned by a successful Authenticate call,
// carrying the owner's capability flags for downstream gating.
type AuthorizedToken struct {
	Token *model.Token
	Owner *model.User
}

// HasCapability reports whether the owner carries the given capability flag.
// Used for per-resource gating, distinct from pure quota.
func (a *AuthorizedToken) HasCapability(c model.Capability) bool {
	return a.Owner.Has(c)
}

// Authenticate validates a raw token value. A revoked, blocked, expired or
// inactive token is rejected before the quota check, so a revoked token
// always reads as disabled regardless of remaining uses.
func (s *TokenService) Authenticate(ctx context.Context, rawToken string) (*AuthorizedToken, error) {
	token, err := s.store.GetToken(ctx, rawToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewUnauthorized("token_not_found", "Token not found")
		}
		log.Error().Err(err).Msg("failed to load token")
		return nil, NewPersistence("persistence_error", "Failed to load token")
	}

	if !token.Usable() {
		return nil, NewUnauthorized("token_disabled", "Token is expired or disabled")
	}

	owner, err := s.store.GetUser(ctx, token.OwnerSlackID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewUnauthorized("token_disabled", "Token owner no longer exists")
		}
		log.Error().Err(err).Str("slack_id", token.OwnerSlackID).Msg("failed to load token owner")
		return nil, NewPersistence("persistence_error", "Failed to load token owner")
	}
	if owner.IsBanned || !owner.IsActive {
		return nil, NewForbidden("user_banned", "Token owner is banned or inactive")
	}

	if token.UsesLeft == 0 {
		return nil, NewExhausted("no_uses_left", "Token has no uses left")
	}

	return &AuthorizedToken{Token: token, Owner: owner}, nil
}

// Consume atomically decrements the token's remaining uses by n. The store
// performs a conditional update, so concurrent consumers of the same token
// serialize there and the counter never goes negative; losers of the race
// get exhausted, not a negative counter.
func (s *TokenService) Consume(ctx context.Context, value string, n int) (*model.Token, error) {
	token, err := s.store.ConsumeToken(ctx, value, n)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		log.Error().Err(err).Msg("failed to consume token")
		return nil, NewPersistence("persistence_error", "Failed to consume token")
	}

	// No row matched: either the token is gone or the decrement would have
	// gone below zero.
	if _, getErr := s.store.GetToken(ctx, value); getErr != nil {
		if errors.Is(getErr, pgx.ErrNoRows) {
			return nil, NewUnauthorized("token_not_found", "Token not found")
		}
		log.Error().Err(getErr).Msg("failed to load token after consume miss")
		return nil, NewPersistence("persistence_error", "Failed to consume token")
	}
	return nil, NewExhausted("exhausted", "Token has no uses left")
}

// Create issues a new token for the owner. The generated value is re-checked
// against existing tokens; generation retries on collision.
func (s *TokenService) Create(ctx context.Context, ownerSlackID string) (*model.Token, error) {
	if _, err := s.store.GetUser(ctx, ownerSlackID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFound("owner_not_found", "Owner not found")
		}
		log.Error().Err(err).Str("slack_id", ownerSlackID).Msg("failed to load token owner")
		return nil, NewPersistence("persistence_error", "Failed to create token")
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		token := &model.Token{
			Value:        uuid.NewString(),
			OwnerSlackID: ownerSlackID,
			IsActive:     true,
			UsesLeft:     s.defaultUses,
		}

		err := s.store.CreateToken(ctx, token)
		if err == nil {
			return token, nil
		}
		if store.IsUniqueViolation(err) {
			// Generated value collided with an existing token; regenerate.
			continue
		}
		if store.IsForeignKeyViolation(err) {
			return nil, NewNotFound("owner_not_found", "Owner not found")
		}
		log.Error().Err(err).Msg("failed to create token")
		return nil, NewPersistence("persistence_error", "Failed to create token")
	}
	return nil, NewInternal("internal_error", "Failed to generate a unique token")
}

// Get returns a token by value.
func (s *TokenService) Get(ctx context.Context, value string) (*model.Token, error) {
	token, err := s.store.GetToken(ctx, value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFound("not_found", "Token not found")
		}
		log.Error().Err(err).Msg("failed to get token")
		return nil, NewPersistence("persistence_error", "Failed to load token")
	}
	return token, nil
}

// List returns tokens with server-side clamped pagination.
func (s *TokenService) List(ctx context.Context, skip, limit int) ([]*model.Token, error) {
	tokens, err := s.store.ListTokens(ctx, skip, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list tokens")
		return nil, NewPersistence("persistence_error", "Failed to list tokens")
	}
	if len(tokens) == 0 {
		return nil, NewNotFound("not_found", "No tokens found")
	}
	return tokens, nil
}

// ListByOwner returns all tokens owned by the given user.
func (s *TokenService) ListByOwner(ctx context.Context, ownerSlackID string) ([]*model.Token, error) {
	tokens, err := s.store.ListTokensByOwner(ctx, ownerSlackID)
	if err != nil {
		log.Error().Err(err).Str("slack_id", ownerSlackID).Msg("failed to list tokens by owner")
		return nil, NewPersistence("persistence_error", "Failed to list tokens")
	}
	if len(tokens) == 0 {
		return nil, NewNotFound("not_found", "No tokens found")
	}
	return tokens, nil
}

// Revoke sets the owner-initiated revoked flag. Revoking an already-revoked
// token is not an error; the flag is set, not toggled.
func (s *TokenService) Revoke(ctx context.Context, value, ownerSlackID string) (*model.Token, error) {
	if _, err := s.requireOwned(ctx, value, ownerSlackID); err != nil {
		return nil, err
	}
	if err := s.store.SetTokenRevoked(ctx, value); err != nil {
		return nil, s.mutationError(err, "revoke")
	}
	return s.Get(ctx, value)
}

// Block sets the system-initiated blocked flag.
func (s *TokenService) Block(ctx context.Context, value, ownerSlackID string) (*model.Token, error) {
	if _, err := s.requireOwned(ctx, value, ownerSlackID); err != nil {
		return nil, err
	}
	if err := s.store.SetTokenBlocked(ctx, value, true); err != nil {
		return nil, s.mutationError(err, "block")
	}
	return s.Get(ctx, value)
}

// Unblock clears only the blocked flag; revoked and expired stay set.
func (s *TokenService) Unblock(ctx context.Context, value, ownerSlackID string) (*model.Token, error) {
	if _, err := s.requireOwned(ctx, value, ownerSlackID); err != nil {
		return nil, err
	}
	if err := s.store.SetTokenBlocked(ctx, value, false); err != nil {
		return nil, s.mutationError(err, "unblock")
	}
	return s.Get(ctx, value)
}

// Delete removes a token after re-validating ownership. A token that has
// recorded usage cannot be deleted: the usage rows are an append-only audit
// trail and removing the token would orphan or destroy them. Revoke instead.
func (s *TokenService) Delete(ctx context.Context, value, ownerSlackID string) (*model.Token, error) {
	token, err := s.requireOwned(ctx, value, ownerSlackID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteToken(ctx, value); err != nil {
		if store.IsForeignKeyViolation(err) {
			return nil, NewBadRequest("token_has_usage", "Token has recorded usage and cannot be deleted; revoke it instead")
		}
		return nil, s.mutationError(err, "delete")
	}
	return token, nil
}

func (s *TokenService) requireOwned(ctx context.Context, value, ownerSlackID string) (*model.Token, error) {
	token, err := s.store.GetToken(ctx, value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFound("not_found", "Token not found")
		}
		log.Error().Err(err).Msg("failed to load token")
		return nil, NewPersistence("persistence_error", "Failed to load token")
	}
	if token.OwnerSlackID != ownerSlackID {
		return nil, NewForbidden("owner_mismatch", "Token is not owned by this user")
	}
	return token, nil
}

func (s *TokenService) mutationError(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("not_found", "Token not found")
	}
	log.Error().Err(err).Str("op", op).Msg("failed to mutate token")
	return NewPersistence("persistence_error", "Failed to update token")
}
