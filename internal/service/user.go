package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/openai-token-gateway/internal/model"
	"github.com/openai-token-gateway/internal/store"
)

// UserService handles user registration and reads.
type UserService struct {
	store store.UserStore
}

// NewUserService creates a new user service.
func NewUserService(s store.UserStore) *UserService {
	return &UserService{store: s}
}

// RegisterInput contains the parameters for registering a new user.
type RegisterInput struct {
	SlackID           string
	Name              string
	Email             string
	IsAdmin           bool
	IsClubLeader      bool
	CanUseSuperpowers bool
	ImageUsageAllowed bool
	GPT4UsageAllowed  bool
}

// Register creates a user. The identity key is immutable and unique;
// registering an existing slack_id fails with already_exists.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	if strings.TrimSpace(input.SlackID) == "" {
		return nil, NewBadRequest("invalid_request", "slack_id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, NewBadRequest("invalid_request", "name is required")
	}

	user := &model.User{
		SlackID:           input.SlackID,
		Name:              input.Name,
		Email:             input.Email,
		IsAdmin:           input.IsAdmin,
		IsClubLeader:      input.IsClubLeader,
		CanUseSuperpowers: input.CanUseSuperpowers,
		ImageUsageAllowed: input.ImageUsageAllowed,
		GPT4UsageAllowed:  input.GPT4UsageAllowed,
		IsActive:          true,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, NewAlreadyExists("already_exists", "A user with this slack_id is already registered")
		}
		log.Error().Err(err).Str("slack_id", input.SlackID).Msg("failed to create user")
		return nil, NewPersistence("persistence_error", "Failed to create user")
	}

	return user, nil
}

// Get returns a user by slack_id.
func (s *UserService) Get(ctx context.Context, slackID string) (*model.User, error) {
	user, err := s.store.GetUser(ctx, slackID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFound("not_found", "User not found")
		}
		log.Error().Err(err).Str("slack_id", slackID).Msg("failed to get user")
		return nil, NewPersistence("persistence_error", "Failed to load user")
	}
	return user, nil
}

// List returns users with server-side clamped pagination.
func (s *UserService) List(ctx context.Context, skip, limit int) ([]*model.User, error) {
	users, err := s.store.ListUsers(ctx, skip, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list users")
		return nil, NewPersistence("persistence_error", "Failed to list users")
	}
	if len(users) == 0 {
		return nil, NewNotFound("not_found", "No users found")
	}
	return users, nil
}
