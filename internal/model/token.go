package model

import "time"

// Token is an opaque metered credential owned by a user.
//
// The four state flags are independent, not a single enum: a token can be
// revoked and blocked at the same time. Revoked is set by the owner, expired
// by the system on age, blocked by the system on abuse. Unblocking clears
// only the blocked flag.
type Token struct {
	Value        string     `json:"token"`
	OwnerSlackID string     `json:"owner_slack_id"`
	IsActive     bool       `json:"is_active"`
	IsRevoked    bool       `json:"is_revoked"`
	IsExpired    bool       `json:"is_expired"`
	IsBlocked    bool       `json:"is_blocked"`
	UsesLeft     int        `json:"uses_left"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
}

// Usable reports whether the token may authorize a call right now.
// Quota is checked separately so exhaustion can be reported distinctly.
func (t *Token) Usable() bool {
	return t.IsActive && !t.IsRevoked && !t.IsExpired && !t.IsBlocked
}
