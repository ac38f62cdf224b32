// Package httpapi exposes the storefront over JSON/HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"florashop-be/internal/cart"
	"florashop-be/internal/logger"
	"florashop-be/internal/metrics"
	"florashop-be/internal/middleware"
	"florashop-be/internal/order"
	"florashop-be/internal/payment"
	"florashop-be/internal/product"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

type Deps struct {
	Carts           cart.Service
	Orders          order.Service
	Products        product.Service
	Reconciliations payment.ReconciliationService

	JWTSecret      []byte
	Limiter        *middleware.Limiter
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration

	// Ping reports whether the database is reachable.
	Ping func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(logger.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware(d.Metrics))
	r.Use(middleware.AuthMiddleware(d.JWTSecret))
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware)
	}
	if d.RequestTimeout > 0 {
		r.Use(chimw.Timeout(d.RequestTimeout))
	}

	r.Get("/health", healthHandler(d.Ping))
	if d.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(d.Gatherer))
	}

	carts := NewCartHandler(d.Carts, d.Orders)
	orders := NewOrderHandler(d.Orders)
	products := NewProductHandler(d.Products)
	recs := NewReconciliationHandler(d.Reconciliations)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", carts.GetCart)
				r.Post("/", carts.AddItem)
				r.Delete("/", carts.Clear)
				r.Post("/check-stock", carts.CheckStock)
				r.Put("/{itemId}", carts.UpdateQuantity)
				r.Delete("/{itemId}", carts.RemoveItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orders.Checkout)
				r.Get("/mine", orders.ListMine)
				r.Get("/{id}", orders.Get)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireStaff)

			r.Get("/orders", orders.ListAll)
			r.Put("/orders/{id}/status", orders.UpdateStatus)
			r.Put("/orders/{id}/payment", orders.UpdatePayment)

			r.Get("/products", products.List)
			r.Post("/products", products.Create)
			r.Get("/products/{id}", products.Get)
			r.Put("/products/{id}", products.Update)
			r.Delete("/products/{id}", products.Deactivate)
			r.Put("/products/{id}/stock", products.SetStock)

			r.Get("/reconciliations", recs.List)
			r.Post("/reconciliations/{id}/resolve", recs.Resolve)
		})
	})

	return r
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
