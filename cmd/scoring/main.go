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
	"github.com/Dosada05/sports-scheduling/repositories"
	api "github.com/Dosada05/sports-scheduling/routes"
	"github.com/Dosada05/sports-scheduling/server"
	"github.com/Dosada05/sports-scheduling/services"
	"github.com/Dosada05/sports-scheduling/storage"
)

const serviceName = "scoring"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With(slog.String("service", serviceName))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	loc, _ := cfg.Location()
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("timezone", loc.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, db.DefaultPool)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
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

	// Снимки после backfill пишутся в R2, только если он настроен.
	var archiver services.SnapshotArchiver
	if cfg.R2Enabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = storage.NewSnapshotArchiver(uploader, "points-table")
		logger.Info("Cloudflare R2 uploader initialized")
	}

	eventYears := clients.NewEventYearClient(cfg.EventConfigurationURL, cfg.HTTPClientTimeout, responseCache, cfg.EventYearCacheTTL, loc, logger)
	sports := clients.NewSportClient(cfg.SportsParticipationURL, cfg.HTTPClientTimeout, logger)
	players := clients.NewPlayerClient(cfg.IdentityURL, cfg.HTTPClientTimeout, logger)
	schedule := clients.NewScheduleClient(cfg.SchedulingURL, cfg.HTTPClientTimeout, logger)

	genders := services.NewGenderResolver(players, cache.NewGenderMemo(), logger)
	pointsService := services.NewPointsTableService(services.PointsTableDeps{
		Points:         repositories.NewPostgresPointsTableRepository(dbConn),
		EventYears:     eventYears,
		Sports:         sports,
		Matches:        schedule,
		Genders:        genders,
		Cache:          responseCache,
		Archiver:       archiver,
		Metrics:        m,
		AdminRegNumber: cfg.AdminRegNumber,
		Logger:         logger,
	})

	common := api.Common{
		Auth:           middleware.NewAuthenticator(cfg.JWTSecretKey, logger),
		Metrics:        m,
		Health:         handlers.NewHealthHandler("scoring-service"),
		GenderCache:    handlers.NewGenderCacheHandler(genders.Memo(), responseCache, cache.PointsTableKeys, logger),
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         logger,
	}
	router := api.SetupScoringRoutes(common,
		handlers.NewPointsTableHandler(pointsService),
		handlers.NewPointsUpdateHandler(pointsService),
	)

	srv := server.New(cfg.ServerPort, router, logger)
	if err := server.Run(ctx, srv, nil, logger); err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}
