package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/grocerycart/api/controllers"
	"github.com/angelmondragon/grocerycart/api/middleware"
	"github.com/angelmondragon/grocerycart/pkg/config"
	"github.com/angelmondragon/grocerycart/pkg/logger"
)

// Backend is everything the sandbox API serves.
type Backend interface {
	controllers.AuthService
	controllers.CartService
	controllers.CheckoutService
	controllers.OrderService
}

// NewRouter wires the sandbox commerce API under /api.
func NewRouter(cfg *config.Config, logg *logger.Logger, backend Backend) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Sandbox.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Latency(cfg.Sandbox.ArtificialLatency))

		r.Post("/login", controllers.AuthLogin(backend, cfg.Sandbox, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Sandbox, logg))

			r.Get("/me", controllers.AuthMe(backend, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(backend, logg))
				r.Post("/add", controllers.CartAdd(backend, logg))
				r.Put("/increment", controllers.CartIncrement(backend, logg))
				r.Put("/decrement", controllers.CartDecrement(backend, logg))
			})

			r.Get("/addresses", controllers.AddressList(backend, logg))
			r.Post("/checkout", controllers.Checkout(backend, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(backend, logg))
				r.Get("/{orderId}", controllers.OrderDetail(backend, logg))
			})
		})
	})

	return r
}
