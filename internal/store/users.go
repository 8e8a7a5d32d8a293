package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openai-token-gateway/internal/model"
)

const userColumns = `slack_id, name, email, is_admin, is_club_leader, can_use_superpowers,
	image_usage_allowed, gpt4_usage_allowed, is_banned, is_active, created_at`

func (p *Postgres) CreateUser(ctx context.Context, user *model.User) error {
	// email is nullable — pass nil when empty
	var email interface{}
	if user.Email != "" {
		email = user.Email
	}

	err := p.pool.QueryRow(ctx, `
		INSERT INTO users (
			slack_id, name, email, is_admin, is_club_leader, can_use_superpowers,
			image_usage_allowed, gpt4_usage_allowed, is_banned, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`,
		user.SlackID, user.Name, email,
		user.IsAdmin, user.IsClubLeader, user.CanUseSuperpowers,
		user.ImageUsageAllowed, user.GPT4UsageAllowed,
		user.IsBanned, user.IsActive,
	).Scan(&user.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (p *Postgres) GetUser(ctx context.Context, slackID string) (*model.User, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE slack_id = $1`, slackID)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, pgx.ErrNoRows
	}
	return scanUserFromRow(rows)
}

func (p *Postgres) ListUsers(ctx context.Context, offset, limit int) ([]*model.User, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users ORDER BY created_at LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUserFromRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (p *Postgres) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func scanUserFromRow(rows pgx.Rows) (*model.User, error) {
	var user model.User
	var email *string

	err := rows.Scan(
		&user.SlackID, &user.Name, &email,
		&user.IsAdmin, &user.IsClubLeader, &user.CanUseSuperpowers,
		&user.ImageUsageAllowed, &user.GPT4UsageAllowed,
		&user.IsBanned, &user.IsActive, &user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if email != nil {
		user.Email = *email
	}
	return &user, nil
}
