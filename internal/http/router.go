package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/auth"
)

type Config struct {
	Production         bool
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

type Dependencies struct {
	Verifier  *auth.Verifier
	Health    HealthChecker
	Catalog   CatalogService
	Orders    OrderService
	Customers CustomerService
	Payments  PaymentService
	Cash      CashService
	Contact   ContactService
	Settings  SettingsService
}

// NewRouter builds the public HTTP API.
func NewRouter(cfg Config, deps Dependencies) http.Handler {
	ew := errorWriter{production: cfg.Production}
	h := ew.handle

	catalog := NewCatalogHandler(deps.Catalog)
	orders := NewOrdersHandler(deps.Orders)
	customers := NewCustomersHandler(deps.Customers)
	payments := NewPaymentsHandler(deps.Payments)
	admin := NewAdminHandler(deps.Cash, deps.Contact, deps.Settings)

	authenticated := auth.Authenticate(deps.Verifier, ew.authError)
	staff := auth.RequireRole(ew.authError, auth.RoleAdmin, auth.RoleSeller)
	adminOnly := auth.RequireRole(ew.authError, auth.RoleAdmin)

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.Compress(5))
	r.Use(MaxBodySize(cfg.MaxRequestBodySize))
	r.Use(auth.Identify(deps.Verifier))

	r.NotFound(h(func(w http.ResponseWriter, r *http.Request) error {
		return apperr.NotFound("route not found")
	}))
	r.MethodNotAllowed(h(func(w http.ResponseWriter, r *http.Request) error {
		return &apperr.Error{Status: http.StatusMethodNotAllowed, Message: "method not allowed"}
	}))

	r.Get("/health", h(func(w http.ResponseWriter, r *http.Request) error {
		if deps.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Health.Ping(ctx); err != nil {
				return apperr.Unavailable("database unreachable", err)
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return nil
	}))

	r.Route("/api", func(r chi.Router) {
		r.With(authenticated).Get("/auth/me", h(func(w http.ResponseWriter, r *http.Request) error {
			id, err := identity(r)
			if err != nil {
				return err
			}
			respondData(w, http.StatusOK, id)
			return nil
		}))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h(catalog.ListProducts))
			r.With(authenticated, staff).Get("/low-stock", h(catalog.LowStock))
			r.Get("/{id}", h(catalog.GetProduct))

			r.With(authenticated, adminOnly).Post("/", h(catalog.CreateProduct))
			r.With(authenticated, adminOnly).Put("/{id}", h(catalog.UpdateProduct))
			r.With(authenticated, adminOnly).Delete("/{id}", h(catalog.DeleteProduct))
			r.With(authenticated, staff).Put("/{id}/stock", h(catalog.SetStock))
			r.With(authenticated, staff).Patch("/{id}/stock", h(catalog.AdjustStock))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h(catalog.ListCategories))

			r.Group(func(r chi.Router) {
				r.Use(authenticated, adminOnly)
				r.Post("/", h(catalog.CreateCategory))
				r.Put("/order", h(catalog.ReorderCategories))
				r.Put("/{id}", h(catalog.UpdateCategory))
				r.Delete("/{id}", h(catalog.DeleteCategory))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/", h(orders.Create))
			r.Get("/{id}", h(orders.Get))
			r.With(staff).Get("/", h(orders.List))
			r.With(staff).Patch("/{id}/status", h(orders.UpdateStatus))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Use(authenticated)
			r.With(staff).Get("/", h(customers.List))
			r.With(staff).Post("/", h(customers.Create))
			r.Get("/{id}", h(customers.Get))
			r.Put("/{id}", h(customers.Update))
			r.With(adminOnly).Delete("/{id}", h(customers.Delete))
			r.Get("/{id}/orders", h(customers.Orders))
			r.Get("/{id}/favorites", h(customers.Favorites))
			r.Post("/{id}/favorites", h(customers.AddFavorite))
			r.Delete("/{id}/favorites/{productID}", h(customers.RemoveFavorite))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/preference", h(payments.CreatePreference))
			r.Post("/webhook", h(payments.Webhook))
		})

		r.Post("/contact", h(admin.SubmitContact))
		r.Get("/coupons/{code}", h(admin.ValidateCoupon))

		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticated)

			r.With(staff).Get("/products", h(catalog.ListAllProducts))
			r.With(adminOnly).Get("/categories", h(catalog.ListAllCategories))

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/cash", h(admin.ListCash))
				r.Post("/cash", h(admin.CreateCash))

				r.Get("/contact", h(admin.ListContact))
				r.Patch("/contact/{id}/read", h(admin.MarkContactRead))

				r.Get("/coupons", h(admin.ListCoupons))
				r.Post("/coupons", h(admin.CreateCoupon))
				r.Delete("/coupons/{id}", h(admin.DeactivateCoupon))

				r.Get("/config", h(admin.ListConfig))
				r.Get("/config/{key}", h(admin.GetConfig))
				r.Put("/config/{key}", h(admin.PutConfig))
			})
		})
	})

	return otelhttp.NewHandler(r, "kairos-http")
}
