package model

import "time"

// UsageRecord is one append-only audit row for an authorized upstream call.
// Records are never mutated or deleted after creation.
type UsageRecord struct {
	ID           int64     `json:"id"`
	TokenValue   string    `json:"token"`
	OwnerSlackID string    `json:"owner_slack_id"`
	Endpoint     string    `json:"endpoint"`
	RequestData  string    `json:"request_data"`
	ResponseData string    `json:"response_data"`
	CreatedAt    time.Time `json:"created_at"`
}
