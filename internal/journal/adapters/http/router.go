// Package http собирает HTTP API журнала на fiber.
package http

import (
	nethttp "net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"moodnote/internal/journal/adapters/http/entries"
	"moodnote/internal/journal/adapters/http/feed"
	"moodnote/internal/journal/adapters/http/identity"
	"moodnote/internal/journal/adapters/http/middleware"
	"moodnote/internal/journal/adapters/http/stream"
	"moodnote/internal/journal/ports/services"
	"moodnote/pkg/logger"
)

// Dependencies сервисы, которые обслуживает роутер.
type Dependencies struct {
	Logger      *logger.Logger
	Identity    services.IdentityService
	Publication services.PublicationService
	Queries     services.QueryService
	Likes       services.LikeService
	Leaderboard services.LeaderboardService
	Suggestions services.SuggestionService
	Drafts      services.DraftSealer
	Hub         stream.Subscriber

	// Metrics может быть nil.
	Metrics        middleware.RequestObserver
	MetricsHandler nethttp.Handler

	DefaultLocation *time.Location
	LeaderboardPage int
	KeepAlive       time.Duration
}

// SetupRouter настраивает маршрутизацию для HTTP сервера.
func SetupRouter(app *fiber.App, deps Dependencies) {
	entriesHandler := entries.NewHandler(deps.Publication, deps.Queries, deps.Drafts, deps.DefaultLocation)
	feedHandler := feed.NewHandler(deps.Queries, deps.Likes, deps.Leaderboard, deps.DefaultLocation, deps.LeaderboardPage)
	identityHandler := identity.NewHandler(deps.Identity, deps.Suggestions)
	streamHandler := stream.NewHandler(deps.Hub, deps.Queries, deps.Leaderboard, deps.DefaultLocation, deps.KeepAlive)

	// Middleware для всех запросов.
	app.Use(middleware.NewLoggerMiddleware(deps.Logger))
	app.Use(middleware.NewRecoveryMiddleware())
	if deps.Metrics != nil {
		app.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	if deps.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.MetricsHandler))
	}
	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	apiV1 := app.Group("/api/v1")

	// Публичные маршруты.
	apiV1.Post("/identity/anonymous", identityHandler.Anonymous)
	apiV1.Get("/moods", identityHandler.Moods)

	// Остальное требует токен личности.
	authed := apiV1.Group("", middleware.NewIdentityMiddleware(deps.Identity))

	authed.Post("/suggestions", identityHandler.Suggest)

	authed.Post("/entries", entriesHandler.Save)
	authed.Post("/entries/swap", entriesHandler.Swap)
	authed.Get("/entries", entriesHandler.History)
	authed.Put("/entries/:id/visibility", entriesHandler.SetVisibility)
	authed.Post("/entries/:id/visibility/swap", entriesHandler.ResolveToggleSwap)

	authed.Get("/feed", feedHandler.Feed)
	authed.Post("/feed/:id/likes", feedHandler.Like)
	authed.Get("/leaderboard/:window", feedHandler.Leaderboard)

	authed.Get("/live/history", streamHandler.History)
	authed.Get("/live/feed", streamHandler.Feed)
	authed.Get("/live/leaderboard/:window", streamHandler.Leaderboard)

	// Обработчик для несуществующих маршрутов.
	app.Use(func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Route not found",
		})
	})
}
