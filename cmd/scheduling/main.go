package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/sports-scheduling/cache"
	"github.com/Dosada05/sports-scheduling/clients"
	"github.com/Dosada05/sports-scheduling/config"
	"github.com/Dosada05/sports-scheduling/db"
	"github.com/Dosada05/sports-scheduling/handlers"
	"github.com/Dosada05/sports-scheduling/metrics"
	"github.com/Dosada05/sports-scheduling/middleware"
	"github.com/Dosada05/sports-scheduling/realtime"
	"github.com/Dosada05/sports-scheduling/repositories"
	api "github.com/Dosada05/sports-scheduling/routes"
	"github.com/Dosada05/sports-scheduling/server"
	"github.com/Dosada05/sports-scheduling/services"
)

const serviceName = "scheduling"

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With(slog.String("service", serviceName))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	loc, _ := cfg.Location() // проверено в Validate
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("timezone", loc.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, db.DefaultPool)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	if err := db.EnsureSchema(ctx, dbConn); err != nil {
		logger.Error("failed to apply schema", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database connection established")

	responseCache, closeCache := cache.Open(cfg.RedisURL, cfg.CacheTTL, logger)
	defer closeCache()
	m := metrics.NewManager(serviceName)

	// WebSocket Hub
	wsHub := realtime.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	// Соседние сервисы
	eventYears := clients.NewEventYearClient(cfg.EventConfigurationURL, cfg.HTTPClientTimeout, responseCache, cfg.EventYearCacheTTL, loc, logger)
	sports := clients.NewSportClient(cfg.SportsParticipationURL, cfg.HTTPClientTimeout, logger)
	players := clients.NewPlayerClient(cfg.IdentityURL, cfg.HTTPClientTimeout, logger)
	scoring := clients.NewScoringClient(cfg.ScoringURL, cfg.HTTPClientTimeout, logger)

	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	genders := services.NewGenderResolver(players, cache.NewGenderMemo(), logger)

	scheduleService := services.NewScheduleService(services.ScheduleDeps{
		Matches:        matchRepo,
		EventYears:     eventYears,
		Sports:         sports,
		Players:        players,
		Genders:        genders,
		Eligibility:    services.NewEligibilityTracker(matchRepo, genders, logger),
		Points:         scoring,
		Cache:          responseCache,
		Broadcaster:    wsHub,
		Metrics:        m,
		AdminRegNumber: cfg.AdminRegNumber,
		Location:       loc,
		Logger:         logger,
	})
	logger.Info("Services initialized")

	common := api.Common{
		Auth:           middleware.NewAuthenticator(cfg.JWTSecretKey, logger),
		Metrics:        m,
		Health:         handlers.NewHealthHandler("scheduling-service"),
		GenderCache:    handlers.NewGenderCacheHandler(genders.Memo(), responseCache, cache.ScheduleViewKeys, logger),
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         logger,
	}
	router := api.SetupSchedulingRoutes(common,
		handlers.NewScheduleHandler(scheduleService),
		handlers.NewWebSocketHandler(wsHub, eventYears, cfg.AllowedOrigins(), logger),
	)
	logger.Info("Routes configured")

	srv := server.New(cfg.ServerPort, router, logger)
	if err := server.Run(ctx, srv, nil, logger); err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}
