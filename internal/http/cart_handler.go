package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CartService interface {
	ListItems(ctx context.Context, userID string) ([]domain.CartItem, error)
	AddItem(ctx context.Context, userID string, item domain.CartItem) (*domain.CartItem, bool, error)
	UpdateQuantity(ctx context.Context, userID string, productID primitive.ObjectID, quantity int) error
	RemoveItem(ctx context.Context, userID string, productID primitive.ObjectID) error
	ClearCart(ctx context.Context, userID string) error
}

type CartHandler struct {
	service CartService
	timeout time.Duration
}

func NewCartHandler(service CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		service: service,
		timeout: timeout,
	}
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

func userIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "user_id is required")
		return "", false
	}
	return userID, true
}

func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	items, err := h.service.ListItems(ctx, userID)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, items)
}

// AddItem answers 201 with the inserted item, or 200 with the merged line
// when the user already had the product in their cart.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var item domain.CartItem
	if !decodeAndValidate(w, r, &item) {
		return
	}
	if item.Product.ID.IsZero() {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product._id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, created, err := h.service.AddItem(ctx, userID, item)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, result)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	productID, ok := objectIDParam(w, r, "product_id")
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.service.UpdateQuantity(ctx, userID, productID, req.Quantity); err != nil {
		handleStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, req)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	productID, ok := objectIDParam(w, r, "product_id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.service.RemoveItem(ctx, userID, productID); err != nil {
		handleStoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.service.ClearCart(ctx, userID); err != nil {
		handleStoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
