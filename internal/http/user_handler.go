package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserStore interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	ReplaceUser(ctx context.Context, id primitive.ObjectID, user *domain.User) error
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
}

type UserHandler struct {
	store   UserStore
	timeout time.Duration
}

func NewUserHandler(store UserStore, timeout time.Duration) *UserHandler {
	return &UserHandler{
		store:   store,
		timeout: timeout,
	}
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "user_id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, err := h.store.GetUser(ctx, id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var user domain.User
	if !decodeAndValidate(w, r, &user) {
		return
	}
	// ids are always generated by the store
	user.ID = primitive.NilObjectID

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.CreateUser(ctx, &user); err != nil {
		handleStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Replace(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "user_id")
	if !ok {
		return
	}

	var user domain.User
	if !decodeAndValidate(w, r, &user) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.ReplaceUser(ctx, id, &user); err != nil {
		handleStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "user_id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.DeleteUser(ctx, id); err != nil {
		handleStoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
