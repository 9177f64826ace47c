package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/shipment-tracker/internal/api/http"
	"github.com/spec-kit/shipment-tracker/internal/api/http/handlers"
	"github.com/spec-kit/shipment-tracker/internal/auth"
	"github.com/spec-kit/shipment-tracker/internal/config"
	"github.com/spec-kit/shipment-tracker/internal/events"
	"github.com/spec-kit/shipment-tracker/internal/observability"
	"github.com/spec-kit/shipment-tracker/internal/persistence"
	"github.com/spec-kit/shipment-tracker/internal/repository"
	"github.com/spec-kit/shipment-tracker/internal/service"
	"github.com/spec-kit/shipment-tracker/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	shipmentRepo := repository.NewShipmentRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	fixRepo := repository.NewGpsFixRepository(pool)
	liveRepo := repository.NewLiveViewRepository(pool)
	fixCache := repository.NewLatestFixCache(redis.Client, cfg.Tracking.LatestFixCacheTTL())

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, userRepo)
	shipmentService := service.NewShipmentService(service.ShipmentDependencies{
		ShipmentRepo: shipmentRepo,
		UserRepo:     userRepo,
		HistoryRepo:  historyRepo,
		Dispatcher:   dispatcher,
		Timeout:      cfg.Tracking.PersistTimeout(),
	})
	positionService := service.NewPositionService(service.PositionDependencies{
		FixRepo:    fixRepo,
		Cache:      fixCache,
		Dispatcher: dispatcher,
		Timeout:    cfg.Tracking.PersistTimeout(),
		MaxHistory: cfg.Tracking.FixHistoryLimit,
	})
	liveService := service.NewLiveService(liveRepo, cfg.Tracking.PersistTimeout(), cfg.Tracking.LiveSnapshotMaxRows)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewMiddleware(authService.TokenManager(), userRepo)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Shipments:      handlers.NewShipmentsHandler(shipmentService),
		Gps:            handlers.NewGpsHandler(positionService, liveService),
		Tracking:       handlers.NewTrackingHandler(shipmentService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
