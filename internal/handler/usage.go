package handler

import (
	"net/http"

	"github.com/openai-token-gateway/internal/httputil"
	"github.com/openai-token-gateway/internal/service"
)

type UsageHandler struct {
	ledger *service.UsageLedger
}

func NewUsageHandler(ledger *service.UsageLedger) *UsageHandler {
	return &UsageHandler{ledger: ledger}
}

// List returns the usage rows for one token, oldest first.
func (h *UsageHandler) List(w http.ResponseWriter, r *http.Request) {
	tokenValue := r.URL.Query().Get("token")
	if tokenValue == "" {
		RespondError(w, http.StatusBadRequest, "invalid_request", "token query parameter is required")
		return
	}

	skip, limit := httputil.ParsePagination(r.URL.Query().Get("skip"), r.URL.Query().Get("limit"))
	records, err := h.ledger.ListByToken(r.Context(), tokenValue, skip, limit)
	if err != nil {
		service.RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, records)
}
