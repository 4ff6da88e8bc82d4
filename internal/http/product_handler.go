package http

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductService interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	ReplaceProduct(ctx context.Context, id primitive.ObjectID, product *domain.Product) error
	DeleteProduct(ctx context.Context, id primitive.ObjectID) error
}

type ProductHandler struct {
	service ProductService
	timeout time.Duration
}

func NewProductHandler(service ProductService, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		service: service,
		timeout: timeout,
	}
}

// parseProductFilter reads max-price, includes and limit. Empty or malformed
// values, NaN prices and non-positive limits are ignored.
func parseProductFilter(q url.Values) domain.ProductFilter {
	var f domain.ProductFilter

	if v := q.Get("max-price"); v != "" {
		if price, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(price) {
			f.MaxPrice = &price
		}
	}

	if v := q.Get("includes"); v != "" {
		f.Includes = &v
	}

	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.ParseInt(v, 10, 64); err == nil && limit > 0 {
			f.Limit = &limit
		}
	}

	return f
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.service.ListProducts(ctx, parseProductFilter(r.URL.Query()))
	if err != nil {
		handleStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.service.GetProduct(ctx, id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var product domain.Product
	if !decodeAndValidate(w, r, &product) {
		return
	}
	product.ID = primitive.NilObjectID

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.service.CreateProduct(ctx, &product); err != nil {
		handleStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) Replace(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "id")
	if !ok {
		return
	}

	var product domain.Product
	if !decodeAndValidate(w, r, &product) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.service.ReplaceProduct(ctx, id, &product); err != nil {
		handleStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.service.DeleteProduct(ctx, id); err != nil {
		handleStoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
