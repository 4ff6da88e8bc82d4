package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func ptr[T any](v T) *T { return &v }

func TestParseProductFilter(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  domain.ProductFilter
	}{
		{"none", "", domain.ProductFilter{}},
		{"max price", "max-price=10.5", domain.ProductFilter{MaxPrice: ptr(10.5)}},
		{"includes", "includes=Mug", domain.ProductFilter{Includes: ptr("Mug")}},
		{"limit", "limit=3", domain.ProductFilter{Limit: ptr(int64(3))}},
		{"all", "max-price=5&includes=a&limit=1", domain.ProductFilter{
			MaxPrice: ptr(5.0), Includes: ptr("a"), Limit: ptr(int64(1)),
		}},
		{"malformed price", "max-price=cheap", domain.ProductFilter{}},
		{"nan price", "max-price=NaN", domain.ProductFilter{}},
		{"empty values", "max-price=&includes=&limit=", domain.ProductFilter{}},
		{"malformed limit", "limit=ten", domain.ProductFilter{}},
		{"fractional limit", "limit=2.5", domain.ProductFilter{}},
		{"zero limit", "limit=0", domain.ProductFilter{}},
		{"negative limit", "limit=-4", domain.ProductFilter{}},
		{"negative price kept", "max-price=-1", domain.ProductFilter{MaxPrice: ptr(-1.0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, parseProductFilter(q))
		})
	}
}

func TestListProducts(t *testing.T) {
	router, deps := newTestRouter()
	deps.products.products = []domain.Product{
		{ID: primitive.NewObjectID(), Name: "Blue Mug", Price: 8},
		{ID: primitive.NewObjectID(), Name: "Teapot", Price: 30},
	}

	rec := doRequest(t, router, http.MethodGet, "/products?max-price=abc&includes=mug&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []domain.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Len(t, got, 2)

	f := deps.products.lastFilter
	assert.Nil(t, f.MaxPrice)
	require.NotNil(t, f.Includes)
	assert.Equal(t, "mug", *f.Includes)
	require.NotNil(t, f.Limit)
	assert.Equal(t, int64(2), *f.Limit)
}

func TestListProducts_EmptyIsArray(t *testing.T) {
	router, _ := newTestRouter()

	rec := doRequest(t, router, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListProducts_StoreFailure(t *testing.T) {
	router, deps := newTestRouter()
	deps.products.err = errBoom

	rec := doRequest(t, router, http.MethodGet, "/products", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestProductLifecycle(t *testing.T) {
	router, deps := newTestRouter()

	rec := doRequest(t, router, http.MethodPost, "/products", map[string]interface{}{
		"name":  "Teapot",
		"price": 30,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.False(t, created.ID.IsZero())

	path := "/products/" + created.ID.Hex()
	rec = doRequest(t, router, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodPut, path, map[string]interface{}{
		"name":  "Teapot XL",
		"price": 42.5,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var replaced domain.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&replaced))
	assert.Equal(t, created.ID, replaced.ID)
	assert.Equal(t, "Teapot XL", deps.products.products[0].Name)

	rec = doRequest(t, router, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec = doRequest(t, router, method, path, nil)
		require.Equal(t, http.StatusNotFound, rec.Code, method)
		assert.JSONEq(t, `{"message":"Product not found"}`, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodPut, path, map[string]interface{}{"name": "x", "price": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProduct_Validation(t *testing.T) {
	router, _ := newTestRouter()

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing name", map[string]interface{}{"price": 1}},
		{"negative price", map[string]interface{}{"name": "x", "price": -1}},
		{"price as string", map[string]interface{}{"name": "x", "price": "1"}},
		{"not json", "price=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/products", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestProductRoutes_BadID(t *testing.T) {
	router, _ := newTestRouter()

	rec := doRequest(t, router, http.MethodGet, "/products/123", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPut, "/products/123", map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
