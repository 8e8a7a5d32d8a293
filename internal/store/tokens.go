package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openai-token-gateway/internal/model"
)

const tokenColumns = `token, owner_slack_id, is_active, is_revoked, is_expired, is_blocked,
	uses_left, created_at, last_used`

func (p *Postgres) CreateToken(ctx context.Context, token *model.Token) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO tokens (token, owner_slack_id, is_active, is_revoked, is_expired, is_blocked, uses_left)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`,
		token.Value, token.OwnerSlackID,
		token.IsActive, token.IsRevoked, token.IsExpired, token.IsBlocked,
		token.UsesLeft,
	).Scan(&token.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) || IsForeignKeyViolation(err) {
			return err
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (p *Postgres) GetToken(ctx context.Context, value string) (*model.Token, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE token = $1`, value)
	if err != nil {
		return nil, fmt.Errorf("query token: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, pgx.ErrNoRows
	}
	return scanTokenFromRow(rows)
}

func (p *Postgres) ListTokens(ctx context.Context, offset, limit int) ([]*model.Token, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+tokenColumns+` FROM tokens ORDER BY created_at LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()
	return collectTokens(rows)
}

func (p *Postgres) ListTokensByOwner(ctx context.Context, slackID string) ([]*model.Token, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+tokenColumns+` FROM tokens WHERE owner_slack_id = $1 ORDER BY created_at
	`, slackID)
	if err != nil {
		return nil, fmt.Errorf("list tokens by owner: %w", err)
	}
	defer rows.Close()
	return collectTokens(rows)
}

func (p *Postgres) CountTokens(ctx context.Context) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tokens`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return count, nil
}

// ConsumeToken atomically decrements uses_left by n. The WHERE clause makes
// the decrement conditional, so the row either has enough uses and is
// decremented, or is left untouched; pgx.ErrNoRows is returned in the latter
// case (the token may be absent or exhausted; callers disambiguate with a
// follow-up GetToken).
func (p *Postgres) ConsumeToken(ctx context.Context, value string, n int) (*model.Token, error) {
	rows, err := p.pool.Query(ctx, `
		UPDATE tokens SET uses_left = uses_left - $2, last_used = NOW()
		WHERE token = $1 AND uses_left >= $2
		RETURNING `+tokenColumns,
		value, n)
	if err != nil {
		return nil, fmt.Errorf("consume token: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, pgx.ErrNoRows
	}
	return scanTokenFromRow(rows)
}

func (p *Postgres) SetTokenRevoked(ctx context.Context, value string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE tokens SET is_revoked = TRUE WHERE token = $1`, value)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (p *Postgres) SetTokenBlocked(ctx context.Context, value string, blocked bool) error {
	tag, err := p.pool.Exec(ctx, `UPDATE tokens SET is_blocked = $2 WHERE token = $1`, value, blocked)
	if err != nil {
		return fmt.Errorf("set token blocked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (p *Postgres) DeleteToken(ctx context.Context, value string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM tokens WHERE token = $1`, value)
	if err != nil {
		// The usages FK is ON DELETE RESTRICT: a token with recorded
		// usage cannot be deleted.
		if IsForeignKeyViolation(err) {
			return err
		}
		return fmt.Errorf("delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func collectTokens(rows pgx.Rows) ([]*model.Token, error) {
	var tokens []*model.Token
	for rows.Next() {
		token, err := scanTokenFromRow(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func scanTokenFromRow(rows pgx.Rows) (*model.Token, error) {
	var token model.Token
	err := rows.Scan(
		&token.Value, &token.OwnerSlackID,
		&token.IsActive, &token.IsRevoked, &token.IsExpired, &token.IsBlocked,
		&token.UsesLeft, &token.CreatedAt, &token.LastUsed,
	)
	if err != nil {
		return nil, fmt.Errorf("scan token: %w", err)
	}
	return &token, nil
}
