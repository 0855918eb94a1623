package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// TraderRanker lists currently active leaderboard traders.
type TraderRanker interface {
	TopActiveTraders(ctx context.Context, limit int, threshold float64) ([]domain.ActiveTrader, error)
}

// TraderHandler serves the active-trader leaderboard.
type TraderHandler struct {
	traders          TraderRanker
	defaultThreshold float64
	logger           *slog.Logger
}

// NewTraderHandler creates a TraderHandler.
func NewTraderHandler(traders TraderRanker, defaultThreshold float64, logger *slog.Logger) *TraderHandler {
	return &TraderHandler{traders: traders, defaultThreshold: defaultThreshold, logger: logger}
}

type listTradersResponse struct {
	Traders []domain.ActiveTrader `json:"traders"`
}

// ListTop returns leaderboard traders whose open value exceeds threshold.
// GET /api/traders/top?limit=10&threshold=100000
func (h *TraderHandler) ListTop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 10
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	threshold := h.defaultThreshold
	if v := q.Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			writeError(w, http.StatusBadRequest, "threshold must be a non-negative number")
			return
		}
		threshold = f
	}

	traders, err := h.traders.TopActiveTraders(r.Context(), limit, threshold)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list traders failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to fetch leaderboard")
		return
	}
	if traders == nil {
		traders = []domain.ActiveTrader{}
	}
	writeJSON(w, http.StatusOK, listTradersResponse{Traders: traders})
}
