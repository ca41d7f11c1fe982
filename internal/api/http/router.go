package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Users         *handlers.UsersHandler
	Cards         *handlers.CardsHandler
	Authenticator *auth.RequestAuthenticator
	Metrics       *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	user := cfg.Authenticator.Require(auth.RoleUser)
	admin := cfg.Authenticator.Require(auth.RoleAdmin)

	api := app.Group("/app")

	users := api.Group("/users")
	users.Post("/", admin, cfg.Users.Create)
	users.Get("/", admin, cfg.Users.List)
	users.Get("/filter", admin, cfg.Users.Filter)
	users.Get("/:id", user, cfg.Users.Get)
	users.Put("/:id", user, cfg.Users.Update)
	users.Delete("/:id", admin, cfg.Users.Delete)
	users.Put("/:id/activate", admin, cfg.Users.Activate)
	users.Get("/:id/cards", user, cfg.Users.Cards)

	cards := api.Group("/cards")
	cards.Get("/", admin, cfg.Cards.List)
	cards.Get("/search", admin, cfg.Cards.Search)
	cards.Post("/user/:userId", user, cfg.Cards.Create)
	cards.Get("/:id", user, cfg.Cards.Get)
	cards.Put("/:id", user, cfg.Cards.Update)
	cards.Delete("/:id", user, cfg.Cards.Delete)
	cards.Put("/:id/activate", admin, cfg.Cards.Activate)
}
