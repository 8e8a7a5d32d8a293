package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openai-token-gateway/internal/store"
)

// Greeting is the root route, kept from the original deployment.
func Greeting(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{
		"message": "You have reached the OpenAI token gateway. See /healthz for status; get a token from an administrator to use the /v1 endpoints.",
	})
}

type HealthHandler struct {
	users     store.UserStore
	tokens    store.TokenStore
	startTime time.Time
}

func NewHealthHandler(users store.UserStore, tokens store.TokenStore) *HealthHandler {
	return &HealthHandler{users: users, tokens: tokens, startTime: time.Now()}
}

type HealthResponse struct {
	Status        string `json:"status"`
	TotalUsers    int    `json:"total_users"`
	TotalTokens   int    `json:"total_tokens"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	totalUsers, err := h.users.CountUsers(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to count users")
		status = "degraded"
	}
	totalTokens, err := h.tokens.CountTokens(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to count tokens")
		status = "degraded"
	}

	RespondJSON(w, http.StatusOK, HealthResponse{
		Status:        status,
		TotalUsers:    totalUsers,
		TotalTokens:   totalTokens,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	})
}
