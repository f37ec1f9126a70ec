package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"shop-service/internal/api/handlers"
	"shop-service/internal/metrics"
	"shop-service/internal/repository"
)

type Deps struct {
	Products   repository.ProductRepository
	Categories repository.CategoryRepository
	Movements  repository.StockMovementRepository
	Carts      handlers.CartService
	Orders     handlers.OrderService
	Users      interface {
		handlers.UserService
		handlers.Authenticator
	}
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	products := handlers.NewProductHandler(d.Products, d.Movements, d.Logger)
	categories := handlers.NewCategoryHandler(d.Categories, d.Logger)
	carts := handlers.NewCartHandler(d.Carts, d.Logger)
	orders := handlers.NewOrderHandler(d.Orders, d.Logger)
	users := handlers.NewUserHandler(d.Users, d.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(d.Logger.Named("http")))
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(instrument(d.Metrics))
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(handlers.Identity(d.Users, d.Logger))

		r.Post("/auth/register", users.Register)
		r.Post("/auth/token", users.Token)

		r.Route("/users/me", func(r chi.Router) {
			r.Use(handlers.RequireUser)
			r.Get("/", users.Me)
			r.Patch("/", users.UpdateMe)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categories.List)
			r.Get("/{slug}", categories.Get)
			r.Get("/{slug}/products", products.GetByCategory)

			r.Group(func(r chi.Router) {
				r.Use(handlers.RequireStaff)
				r.Post("/", categories.Create)
				r.Put("/{slug}", categories.Update)
				r.Delete("/{slug}", categories.Delete)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.List)
			r.Get("/latest", products.Latest)
			r.Get("/slug/{slug}", products.GetBySlug)
			r.Get("/{id}", products.GetByID)

			r.Group(func(r chi.Router) {
				r.Use(handlers.RequireStaff)
				r.Post("/", products.Create)
				r.Put("/{id}", products.Update)
				r.Delete("/{id}", products.Delete)
				r.Post("/{id}/stock", products.AdjustStock)
				r.Get("/{id}/movements", products.Movements)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(handlers.CartSession)
			r.Get("/", carts.Get)
			r.Post("/add", carts.Add)
			r.Post("/set-quantity", carts.SetQuantity)
			r.Post("/remove", carts.Remove)
			r.Post("/clear", carts.Clear)
			r.Post("/checkout", carts.Checkout)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(handlers.RequireUser)
			r.Get("/", orders.List)

			r.Group(func(r chi.Router) {
				r.Use(handlers.RequireStaff)
				r.Get("/statistics", orders.Statistics)
				r.Get("/sales", orders.Sales)
				r.Get("/customers", orders.Customers)
				r.Post("/{id}/confirm", orders.Confirm)
				r.Patch("/{id}/status", orders.UpdateStatus)
			})

			r.Get("/{id}", orders.Get)
		})
	})

	return r
}
