package store

import (
	"context"
	"fmt"

	"github.com/openai-token-gateway/internal/model"
)

func (p *Postgres) CreateUsage(ctx context.Context, rec *model.UsageRecord) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO usages (token_id, owner_slack_id, endpoint, request_data, response_data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`,
		rec.TokenValue, rec.OwnerSlackID, rec.Endpoint, rec.RequestData, rec.ResponseData,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}
	return nil
}

func (p *Postgres) ListUsageByToken(ctx context.Context, tokenValue string, offset, limit int) ([]*model.UsageRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, token_id, owner_slack_id, endpoint, request_data, response_data, created_at
		FROM usages WHERE token_id = $1 ORDER BY id LIMIT $2 OFFSET $3
	`, tokenValue, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list usages: %w", err)
	}
	defer rows.Close()

	var records []*model.UsageRecord
	for rows.Next() {
		var rec model.UsageRecord
		if err := rows.Scan(
			&rec.ID, &rec.TokenValue, &rec.OwnerSlackID,
			&rec.Endpoint, &rec.RequestData, &rec.ResponseData, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
