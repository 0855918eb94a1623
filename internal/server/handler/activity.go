package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// ActivityHandler serves the stored activity ledger.
type ActivityHandler struct {
	activity domain.ActivityStore
	logger   *slog.Logger
}

// NewActivityHandler creates an ActivityHandler.
func NewActivityHandler(activity domain.ActivityStore, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{activity: activity, logger: logger}
}

type listActivityResponse struct {
	Activity []domain.ActivityRecord `json:"activity"`
}

// ListActivity returns stored activity for a wallet, newest first.
// GET /api/activity?wallet=0x...&since=...&until=...&limit=50&offset=0
func (h *ActivityHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	wallet := walletParam(w, r)
	if wallet == "" {
		return
	}

	records, err := h.activity.ListByWallet(r.Context(), wallet, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list activity failed",
			slog.String("wallet", wallet),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list activity")
		return
	}
	if records == nil {
		records = []domain.ActivityRecord{}
	}
	writeJSON(w, http.StatusOK, listActivityResponse{Activity: records})
}
