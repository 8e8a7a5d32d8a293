package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/openai-token-gateway/internal/model"
	"github.com/openai-token-gateway/internal/store"
)

// UsageLedger is the durable, append-only audit trail of authorized calls.
type UsageLedger struct {
	store store.UsageStore
}

// NewUsageLedger creates a new usage ledger.
func NewUsageLedger(s store.UsageStore) *UsageLedger {
	return &UsageLedger{store: s}
}

// Record appends one usage row. A write failure degrades observability, not
// correctness: it is logged operationally and never surfaced to the caller,
// and it never rolls back an already-forwarded upstream call. The write is
// detached from the request's cancellation so a client disconnect after the
// dispatch decision still gets audited.
func (l *UsageLedger) Record(ctx context.Context, auth *AuthorizedToken, endpoint, requestData, responseData string) {
	rec := &model.UsageRecord{
		TokenValue:   auth.Token.Value,
		OwnerSlackID: auth.Owner.SlackID,
		Endpoint:     endpoint,
		RequestData:  requestData,
		ResponseData: responseData,
	}
	if err := l.store.CreateUsage(context.WithoutCancel(ctx), rec); err != nil {
		log.Error().Err(err).
			Str("endpoint", endpoint).
			Str("owner", auth.Owner.SlackID).
			Msg("failed to record usage")
	}
}

// ListByToken returns the usage rows for a token in append order.
func (l *UsageLedger) ListByToken(ctx context.Context, tokenValue string, skip, limit int) ([]*model.UsageRecord, error) {
	records, err := l.store.ListUsageByToken(ctx, tokenValue, skip, limit)
	if err != nil {
		log.Error().Err(err).Str("token", tokenValue).Msg("failed to list usage")
		return nil, NewPersistence("persistence_error", "Failed to list usage")
	}
	if len(records) == 0 {
		return nil, NewNotFound("not_found", "No usage records found")
	}
	return records, nil
}
