package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reparoja/reparoja-ai-platform/internal/orders"
	"github.com/reparoja/reparoja-ai-platform/pkg/logging"
)

// AdminOrdersHandler exposes service orders to the operations dashboard.
type AdminOrdersHandler struct {
	store  *orders.Store
	logger *logging.Logger
}

// NewAdminOrdersHandler creates the orders admin handler.
func NewAdminOrdersHandler(store *orders.Store, logger *logging.Logger) *AdminOrdersHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminOrdersHandler{store: store, logger: logger}
}

// ListOrders handles GET /admin/orders?session_key=...
func (h *AdminOrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "order store not configured", http.StatusServiceUnavailable)
		return
	}
	sessionKey := r.URL.Query().Get("session_key")
	if sessionKey == "" {
		http.Error(w, "session_key parameter required", http.StatusBadRequest)
		return
	}

	out, err := h.store.ListBySession(r.Context(), sessionKey)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "session_key", sessionKey)
		http.Error(w, "failed to list orders", http.StatusInternalServerError)
		return
	}
	if out == nil {
		out = []orders.ServiceOrder{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out})
}

// GetOrder handles GET /admin/orders/{orderID}.
func (h *AdminOrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "order store not configured", http.StatusServiceUnavailable)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	order, err := h.store.Get(r.Context(), id)
	if errors.Is(err, orders.ErrNotFound) {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load order", "error", err, "order_id", id)
		http.Error(w, "failed to load order", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

var validOrderStatuses = map[string]bool{
	orders.StatusScheduled: true,
	orders.StatusDone:      true,
	orders.StatusCanceled:  true,
}

// SetOrderStatus handles PATCH /admin/orders/{orderID}/status.
func (h *AdminOrdersHandler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "order store not configured", http.StatusServiceUnavailable)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}
	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if !validOrderStatuses[req.Status] {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	err = h.store.SetStatus(r.Context(), id, req.Status)
	if errors.Is(err, orders.ErrNotFound) {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to update order", "error", err, "order_id", id)
		http.Error(w, "failed to update order", http.StatusInternalServerError)
		return
	}

	h.logger.Info("order status updated", "order_id", id, "status", req.Status)
	w.WriteHeader(http.StatusNoContent)
}
