package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// OrderHandler serves the copy-order log and the audit trail.
type OrderHandler struct {
	orders domain.OrderStore
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(orders domain.OrderStore, audit domain.AuditStore, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, audit: audit, logger: logger}
}

type listOrdersResponse struct {
	Orders []domain.OrderRecord `json:"orders"`
}

type listAuditResponse struct {
	Entries []domain.AuditEntry `json:"entries"`
}

// ListOrders returns recently recorded copy orders, newest first.
// GET /api/orders?since=...&limit=50&offset=0
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListRecent(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list orders failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []domain.OrderRecord{}
	}
	writeJSON(w, http.StatusOK, listOrdersResponse{Orders: orders})
}

// ListAudit returns audit entries, optionally filtered by event name.
// GET /api/audit?event=pass_completed&limit=50
func (h *OrderHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	event := r.URL.Query().Get("event")
	entries, err := h.audit.List(r.Context(), event, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list audit failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, listAuditResponse{Entries: entries})
}
