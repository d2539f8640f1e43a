package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sme-router/internal/api/http"
	"github.com/spec-kit/sme-router/internal/api/http/handlers"
	"github.com/spec-kit/sme-router/internal/classify"
	"github.com/spec-kit/sme-router/internal/config"
	"github.com/spec-kit/sme-router/internal/directory"
	"github.com/spec-kit/sme-router/internal/events"
	"github.com/spec-kit/sme-router/internal/hunt"
	"github.com/spec-kit/sme-router/internal/notify"
	"github.com/spec-kit/sme-router/internal/observability"
	"github.com/spec-kit/sme-router/internal/persistence"
	"github.com/spec-kit/sme-router/internal/repository"
	"github.com/spec-kit/sme-router/internal/service"
	"github.com/spec-kit/sme-router/internal/storage"
	"github.com/spec-kit/sme-router/internal/worker"
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

	var (
		ticketRepo    repository.TicketRepository
		directoryRepo repository.DirectoryRepository
		store         storage.Store
		pg            *persistence.Postgres
	)
	switch cfg.Store.Driver {
	case "postgres":
		pg, err = persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		ticketRepo = repository.NewPostgresTicketRepository(pg.PoolHandle())
		directoryRepo = repository.NewPostgresDirectoryRepository(pg.PoolHandle())
	default:
		local, err := storage.NewLocal(cfg.Store.DataDir)
		if err != nil {
			logger.Fatal("failed to open data dir", zap.Error(err))
		}
		store = local
		ticketRepo = repository.NewFileTicketRepository(local)
		directoryRepo = repository.NewFileDirectoryRepository(local)
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	dir := directory.NewService(directoryRepo, logger)
	notifier := notify.ForConfig(cfg.Chat, logger)

	var classifier classify.Classifier = classify.NewHTTPClassifier(cfg.Classifier, logger)
	classifier = classify.WithCache(classifier, redis, cfg.Classifier.CacheTTL(), logger)
	classifier = classify.WithDegrade(classifier, logger)

	engine := hunt.NewEngine(hunt.ConfigFrom(cfg.Hunt, cfg.Chat), hunt.Dependencies{
		Tickets:    ticketRepo,
		Directory:  dir,
		Notifier:   notifier,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	intakeService := service.NewIntakeService(service.IntakeServiceDependencies{
		Tickets:    ticketRepo,
		Directory:  dir,
		Classifier: classifier,
		Engine:     engine,
		Dispatcher: dispatcher,
		Hunt:       cfg.Hunt,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketServiceDependencies{
		Tickets: ticketRepo,
		Engine:  engine,
		Logger:  logger,
	})
	auditService := service.NewAuditService(logger)
	worker.StartAuditWorker(auditService, dispatcher)

	if err := engine.Resume(ctx); err != nil {
		logger.Fatal("failed to resume hunts", zap.Error(err))
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:       handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, store, pg, redis),
		Requests:     handlers.NewRequestsHandler(intakeService),
		Tickets:      handlers.NewTicketsHandler(ticketService),
		Experts:      handlers.NewExpertsHandler(dir),
		ServiceToken: cfg.App.ServiceToken,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := engine.Shutdown(shutdownCtx); err != nil {
		logger.Warn("hunt engine shutdown incomplete", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
