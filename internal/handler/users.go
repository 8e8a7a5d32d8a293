package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openai-token-gateway/internal/httputil"
	"github.com/openai-token-gateway/internal/service"
)

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type RegisterRequest struct {
	SlackID           string `json:"slack_id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	IsAdmin           bool   `json:"is_admin"`
	IsClubLeader      bool   `json:"is_club_leader"`
	CanUseSuperpowers bool   `json:"can_use_superpowers"`
	ImageUsageAllowed bool   `json:"image_usage_allowed"`
	GPT4UsageAllowed  bool   `json:"gpt4_usage_allowed"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		SlackID:           req.SlackID,
		Name:              req.Name,
		Email:             req.Email,
		IsAdmin:           req.IsAdmin,
		IsClubLeader:      req.IsClubLeader,
		CanUseSuperpowers: req.CanUseSuperpowers,
		ImageUsageAllowed: req.ImageUsageAllowed,
		GPT4UsageAllowed:  req.GPT4UsageAllowed,
	})
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "slackID"))
	if err != nil {
		service.RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, user)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit := httputil.ParsePagination(r.URL.Query().Get("skip"), r.URL.Query().Get("limit"))
	users, err := h.users.List(r.Context(), skip, limit)
	if err != nil {
		service.RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, users)
}
