package routes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"

	"github.com/Dosada05/sports-scheduling/handlers"
	"github.com/Dosada05/sports-scheduling/metrics"
	"github.com/Dosada05/sports-scheduling/middleware"
)

// Common собирает то, что нужно обоим сервисам.
type Common struct {
	Auth           *middleware.Authenticator
	Metrics        *metrics.Manager
	Health         *handlers.HealthHandler
	GenderCache    *handlers.GenderCacheHandler
	AllowedOrigins []string
	Logger         *slog.Logger
}

func newRouter(c Common) *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RequestLogger(c.Logger, c.Metrics))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   c.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", c.Health.Health)
	if c.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", c.Metrics.Handler())
	}
	return router
}

// SetupSchedulingRoutes монтирует API сервиса расписания под /schedulings.
func SetupSchedulingRoutes(c Common, schedule *handlers.ScheduleHandler, ws *handlers.WebSocketHandler) *chi.Mux {
	router := newRouter(c)

	router.Route("/schedulings", func(r chi.Router) {
		// Браузер не передаёт заголовок Authorization при открытии сокета.
		r.Get("/ws/event-schedule/{sport}", ws.ServeWs)

		r.Group(func(r chi.Router) {
			r.Use(c.Auth.Authenticate)

			r.Get("/event-schedule/{sport}", schedule.ListMatches)
			r.Get("/event-schedule/{sport}/teams-players", schedule.TeamsPlayers)
			r.Post("/event-schedule", schedule.CreateMatch)
			r.Put("/event-schedule/{id}", schedule.UpdateMatch)
			r.Delete("/event-schedule/{id}", schedule.DeleteMatch)

			r.Post("/internal/gender-cache/invalidate", c.GenderCache.Invalidate)
		})
	})

	return router
}

// SetupScoringRoutes монтирует API сервиса очков под /scorings.
func SetupScoringRoutes(c Common, points *handlers.PointsTableHandler, updates *handlers.PointsUpdateHandler) *chi.Mux {
	router := newRouter(c)

	router.Route("/scorings", func(r chi.Router) {
		r.Use(c.Auth.Authenticate)

		r.Get("/points-table/{sport}", points.PointsTable)
		r.Post("/points-table/backfill/{sport}", points.Backfill)

		r.Post("/internal/points-table/update", updates.Update)
		r.Post("/internal/gender-cache/invalidate", c.GenderCache.Invalidate)
	})

	return router
}
