package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/fjod/go_cart/shop-api/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Message: message,
		Code:    code,
	})
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes a 400 response and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		resp := ErrorResponse{Message: "validation failed", Code: "validation_failed"}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			resp.Details = validationDetails(verrs)
		}
		respondJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

func validationDetails(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// drop the root type name from "CartItem.product.name"
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		parts = append(parts, fmt.Sprintf("%s failed on %s", field, fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// objectIDParam parses a hex ObjectID path parameter, writing 400 on failure.
func objectIDParam(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", name+" must be a 24 character hex ObjectID")
		return primitive.NilObjectID, false
	}
	return id, true
}

var notFoundMessages = []struct {
	err     error
	message string
}{
	{repository.ErrUserNotFound, "User not found"},
	{repository.ErrProductNotFound, "Product not found"},
	{repository.ErrItemNotFound, "Cart item not found"},
	{repository.ErrCartNotFound, "Cart not found"},
}

// handleStoreError maps a store or service error to a response. Details of
// 5xx errors are logged and never returned to the client.
func handleStoreError(w http.ResponseWriter, r *http.Request, err error) {
	for _, nf := range notFoundMessages {
		if errors.Is(err, nf.err) {
			respondJSON(w, http.StatusNotFound, ErrorResponse{Message: nf.message})
			return
		}
	}

	if isUnavailable(err) {
		slog.WarnContext(r.Context(), "store unavailable", "method", r.Method, "path", r.URL.Path, "error", err)
		respondJSON(w, http.StatusServiceUnavailable, ErrorResponse{Message: "Service Unavailable"})
		return
	}

	slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	respondJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "Internal Server Error"})
}

func isUnavailable(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		mongo.IsTimeout(err) ||
		mongo.IsNetworkError(err) ||
		errors.Is(err, mongo.ErrClientDisconnected)
}
