package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Pesokrava/storefront/internal/config"
	"github.com/Pesokrava/storefront/internal/delivery/http/handler"
	"github.com/Pesokrava/storefront/internal/delivery/http/middleware"
	"github.com/Pesokrava/storefront/internal/delivery/http/response"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
)

// Handlers groups the HTTP handlers served under /api/v1
type Handlers struct {
	Products  *handler.ProductHandler
	Purchases *handler.PurchaseHandler
	Returns   *handler.ReturnHandler
}

// Router holds HTTP handlers and router configuration
type Router struct {
	handlers Handlers
	authn    middleware.Authenticator
	logger   *logger.Logger
	cfg      *config.Config
}

// NewRouter creates a new HTTP router
func NewRouter(
	handlers Handlers,
	authn middleware.Authenticator,
	cfg *config.Config,
	log *logger.Logger,
) *Router {
	return &Router{
		handlers: handlers,
		authn:    authn,
		logger:   log,
		cfg:      cfg,
	}
}

// Setup configures and returns the HTTP router
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logger(rt.logger))
	r.Use(chimw.Timeout(rt.cfg.Server.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", rt.healthCheck)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(rt.authn, rt.logger))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", rt.handlers.Products.List)
			r.Get("/{id}", rt.handlers.Products.GetByID)
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Post("/", rt.handlers.Purchases.Create)
			r.Get("/", rt.handlers.Purchases.List)
		})

		r.Route("/returns", func(r chi.Router) {
			r.Post("/", rt.handlers.Returns.Create)
			r.Get("/", rt.handlers.Returns.List)
			r.Post("/{id}/confirm", rt.handlers.Returns.Confirm)
			r.Post("/{id}/reject", rt.handlers.Returns.Reject)
		})
	})

	return r
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
