package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

// NewRouter wires the resource handlers behind the shared middleware stack.
func NewRouter(cfg RouterConfig, users *UserHandler, products *ProductHandler, cart *CartHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/", users.Create)
		r.Route("/{user_id}", func(r chi.Router) {
			r.Get("/", users.Get)
			r.Put("/", users.Replace)
			r.Delete("/", users.Delete)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cart.List)
				r.Post("/", cart.AddItem)
				r.Delete("/", cart.ClearCart)
				r.Patch("/{product_id}", cart.UpdateQuantity)
				r.Delete("/{product_id}", cart.RemoveItem)
			})
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", products.List)
		r.Post("/", products.Create)
		r.Get("/{id}", products.Get)
		r.Put("/{id}", products.Replace)
		r.Delete("/{id}", products.Delete)
	})

	return otelhttp.NewHandler(r, "shop-api")
}
