package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/correlation"
)

const requestTimeout = 30 * time.Second

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(correlation.Middleware)
	r.Use(RequestLogger(h.logger))
	r.Use(Recover(h.logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products/{name}", h.GetProduct)
		r.Post("/quote", h.Quote)

		r.Route("/cart/{userId}", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/items", h.AddItem)
			r.Post("/checkout", h.Checkout)
		})
	})

	return r
}
