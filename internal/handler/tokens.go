package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openai-token-gateway/internal/httputil"
	"github.com/openai-token-gateway/internal/model"
	"github.com/openai-token-gateway/internal/service"
)

type TokenHandler struct {
	tokens *service.TokenService
}

func NewTokenHandler(tokens *service.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// TokenOwnerRequest names the owner for create and mutation calls; ownership
// is re-validated against the stored record before any state change.
type TokenOwnerRequest struct {
	OwnerSlackID string `json:"owner_slack_id"`
}

func (h *TokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeOwner(w, r)
	if !ok {
		return
	}
	token, err := h.tokens.Create(r.Context(), req.OwnerSlackID)
	if err != nil {
		service.RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, token)
}

func (h *TokenHandler) Get(w http.ResponseWriter, r *http.Request) {
	token, err := h.tokens.Get(r.Context(), chi.URLParam(r, "value"))
	if err != nil {
		service.RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, token)
}

func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit := httputil.ParsePagination(r.URL.Query().Get("skip"), r.URL.Query().Get("limit"))
	tokens, err := h.tokens.List(r.Context(), skip, limit)
	if err != nil {
		service.RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, tokens)
}

func (h *TokenHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.tokens.ListByOwner(r.Context(), chi.URLParam(r, "slackID"))
	if err != nil {
		service.RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, tokens)
}

func (h *TokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.tokens.Revoke)
}

func (h *TokenHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.tokens.Block)
}

func (h *TokenHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.tokens.Unblock)
}

func (h *TokenHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.tokens.Delete)
}

func (h *TokenHandler) mutate(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, value, owner string) (*model.Token, error)) {
	req, ok := decodeOwner(w, r)
	if !ok {
		return
	}
	token, err := op(r.Context(), chi.URLParam(r, "value"), req.OwnerSlackID)
	if err != nil {
		service.RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, token)
}

func decodeOwner(w http.ResponseWriter, r *http.Request) (TokenOwnerRequest, bool) {
	var req TokenOwnerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return req, false
	}
	if req.OwnerSlackID == "" {
		RespondError(w, http.StatusBadRequest, "invalid_request", "owner_slack_id is required")
		return req, false
	}
	return req, true
}
