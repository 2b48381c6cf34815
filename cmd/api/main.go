package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/outletops/maintenance-tickets/internal/api/http"
	"github.com/outletops/maintenance-tickets/internal/api/http/handlers"
	"github.com/outletops/maintenance-tickets/internal/auth"
	"github.com/outletops/maintenance-tickets/internal/config"
	"github.com/outletops/maintenance-tickets/internal/events"
	"github.com/outletops/maintenance-tickets/internal/observability"
	"github.com/outletops/maintenance-tickets/internal/persistence"
	"github.com/outletops/maintenance-tickets/internal/realtime"
	"github.com/outletops/maintenance-tickets/internal/repository"
	"github.com/outletops/maintenance-tickets/internal/service"
	"github.com/outletops/maintenance-tickets/internal/worker"
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

	shutdownTracing := observability.SetupTracing(ctx, cfg.App.Name, cfg.Tracing, logger)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	pool := pg.PoolHandle()
	if pool == nil {
		logger.Fatal("POSTGRES_DSN is required")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	ticketRepo := repository.NewTicketRepository(pool)
	accountRepo := repository.NewAccountRepository(pool)
	revocations := auth.NewRedisRevocationStore(redis.Client)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		AccountRepo: accountRepo,
		Revocations: revocations,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:        ticketRepo,
		Dispatcher:        dispatcher,
		Logger:            logger,
		StrictTransitions: cfg.Lifecycle.StrictTransitions,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), revocations, logger)

	historyService := service.NewHistoryService(repository.NewTicketHistoryRepository(pool), logger)
	historyService.RegisterHandlers(dispatcher)
	notifications := service.NewNotificationService(dispatcher, logger, metrics, cfg.Notification)
	worker.StartNotificationWorker(notifications)

	hub := realtime.NewHub(ticketRepo, logger)
	feed := realtime.NewRedisFeed(redis.Client, cfg.Realtime.Channel, hub, cfg.Realtime.RefreshTimeout, logger)
	worker.StartChangeFeed(dispatcher, feed.HandleEvent)
	go feed.Run(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		OutletTickets:  handlers.NewOutletTicketsHandler(ticketService),
		AdminTickets:   handlers.NewAdminTicketsHandler(ticketService, historyService, cfg.Export.Location()),
		AuthMiddleware: authMiddleware,
	})

	mux := http.NewServeMux()
	mux.Handle("/realtime/", realtime.NewSockJSServer(hub, authMiddleware, logger).Handler())
	realtimeServer := &http.Server{
		Addr:        cfg.Realtime.Addr(),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("realtime listening", zap.String("addr", realtimeServer.Addr))
		if err := realtimeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("realtime listen", zap.Error(err))
		}
	}()

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := realtimeServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("realtime shutdown", zap.Error(err))
	}
	_ = app.ShutdownWithContext(shutdownCtx)
	notifications.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
