package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// PositionHandler serves the latest stored position snapshot.
type PositionHandler struct {
	positions domain.PositionStore
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(positions domain.PositionStore, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{positions: positions, logger: logger}
}

type listPositionsResponse struct {
	Positions []domain.PositionRecord `json:"positions"`
}

// ListPositions returns the most recent snapshot of a wallet's positions.
// GET /api/positions?wallet=0x...
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	wallet := walletParam(w, r)
	if wallet == "" {
		return
	}

	positions, err := h.positions.Latest(r.Context(), wallet)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed",
			slog.String("wallet", wallet),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}
	if positions == nil {
		positions = []domain.PositionRecord{}
	}
	writeJSON(w, http.StatusOK, listPositionsResponse{Positions: positions})
}
