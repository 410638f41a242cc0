// internal/handlers/cart.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/core/ports"
	"github.com/ammerola/cartsync/internal/handlers/middleware"
)

// maxBodyBytes bounds cart request bodies
const maxBodyBytes = 1 << 16

// CartHandler serves the per-user remote cart routes
type CartHandler struct {
	service ports.CartAPIService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(service ports.CartAPIService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "cart")),
	}
}

// ListResponse is the body of GET /api/users/cart
type ListResponse struct {
	Items []domain.RemoteCartItem `json:"items"`
}

// Register mounts the cart routes on mux behind auth
func (h *CartHandler) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("GET /api/users/cart", auth(http.HandlerFunc(h.ListCart)))
	mux.Handle("POST /api/users/cart", auth(http.HandlerFunc(h.AddItem)))
	mux.Handle("PUT /api/users/cart/{id}", auth(http.HandlerFunc(h.UpdateItem)))
	mux.Handle("DELETE /api/users/cart/{id}", auth(http.HandlerFunc(h.RemoveItem)))
}

// ListCart handles GET /api/users/cart
func (h *CartHandler) ListCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	lines, err := h.service.List(ctx, userID)
	if err != nil {
		h.handleServiceError(w, r, "list", err)
		return
	}

	resp := ListResponse{Items: make([]domain.RemoteCartItem, 0, len(lines))}
	for _, line := range lines {
		resp.Items = append(resp.Items, line.ToRemote())
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// AddItem handles POST /api/users/cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req ports.AddCartItemRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	line, err := h.service.Add(ctx, userID, req)
	if err != nil {
		h.handleServiceError(w, r, "add", err)
		return
	}

	h.respondJSON(w, http.StatusCreated, line.ToRemote())
}

// UpdateItem handles PUT /api/users/cart/{id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	itemID, err := parseItemID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid cart item ID")
		return
	}

	var req ports.UpdateCartItemRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	line, err := h.service.UpdateQuantity(ctx, userID, itemID, req.Quantity)
	if err != nil {
		h.handleServiceError(w, r, "update", err)
		return
	}

	h.respondJSON(w, http.StatusOK, line.ToRemote())
}

// RemoveItem handles DELETE /api/users/cart/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	itemID, err := parseItemID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid cart item ID")
		return
	}

	if err := h.service.Remove(ctx, userID, itemID); err != nil {
		h.handleServiceError(w, r, "remove", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) handleServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "cart operation failed",
			slog.String("op", op),
			slog.String("error", err.Error()))
	} else {
		h.logger.DebugContext(r.Context(), "cart operation rejected",
			slog.String("op", op),
			slog.Int("status", status),
			slog.String("error", err.Error()))
	}
	h.respondError(w, status, msg)
}

// statusFor maps service errors onto the statuses the sync client classifies
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Cart item not found"
	case errors.Is(err, domain.ErrAuthExpired):
		return http.StatusUnauthorized, "Authentication required"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

func parseItemID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("cart item id must be positive")
	}
	return id, nil
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// Helper methods

func (h *CartHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func (h *CartHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
