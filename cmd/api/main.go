package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/deskops/ticket-desk/internal/api/http"
	"github.com/deskops/ticket-desk/internal/api/http/handlers"
	"github.com/deskops/ticket-desk/internal/auth"
	"github.com/deskops/ticket-desk/internal/config"
	"github.com/deskops/ticket-desk/internal/events"
	"github.com/deskops/ticket-desk/internal/gateway"
	"github.com/deskops/ticket-desk/internal/observability"
	"github.com/deskops/ticket-desk/internal/persistence"
	"github.com/deskops/ticket-desk/internal/repository"
	"github.com/deskops/ticket-desk/internal/service"
	"github.com/deskops/ticket-desk/internal/worker"
	"github.com/deskops/ticket-desk/internal/workspace"
)

func main() {
	envFile := pflag.String("env-file", "", "load environment variables from this file")
	backend := pflag.String("backend", "", "record backend: memory, airtable, baserow or postgres")
	columns := pflag.String("columns", "", "YAML file overriding backend column names")
	migrationsDir := pflag.String("migrations", persistence.DefaultMigrationsDir, "directory of SQL migrations")
	pflag.Parse()

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *backend != "" {
		cfg.Gateway.Backend = *backend
	}
	if *columns != "" {
		cfg.Gateway.ColumnsFile = *columns
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	cols, err := config.LoadColumns(cfg.Gateway.ColumnsFile)
	if err != nil {
		logger.Fatal("failed to load column mapping", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), *migrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	records, err := gateway.New(cfg, cols, pg, logger)
	if err != nil {
		logger.Fatal("failed to build record gateway", zap.Error(err))
	}
	logger.Info("record gateway ready", zap.String("backend", cfg.Gateway.Backend))

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	notificationService := service.NewNotificationService(dispatcher, redis, logger, metrics, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	var historyRepo repository.TicketHistoryRepository
	if pool := pg.PoolHandle(); pool != nil {
		historyRepo = repository.NewTicketHistoryRepository(pool)
	}
	historyService := service.NewHistoryService(dispatcher, historyRepo, logger)
	historyService.RegisterHandlers()

	authService := service.NewAuthService(cfg.Auth, records, logger)
	if err := authService.BootstrapAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		logger.Warn("admin bootstrap failed", zap.Error(err))
	}
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())

	ticketService := service.NewTicketService(records, cols, dispatcher, logger)
	workspaceService := service.NewWorkspaceService(records, workspace.Options{
		Columns:        cols,
		SearchDebounce: cfg.Workspace.SearchDebounce(),
		Logger:         logger,
		Metrics:        metrics,
	}, dispatcher)
	defer workspaceService.CloseAll()

	janitorDone := worker.StartWorkspaceJanitor(ctx, workspaceService, cfg.Workspace.SweepInterval(), cfg.Workspace.IdleTTL(), logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, redis, metrics, workspaceService,
		handlers.Check{Name: "postgres", Ping: pg.Ping},
		handlers.Check{Name: "gateway", Ping: func(ctx context.Context) error {
			_, err := records.ListTickets(ctx)
			return err
		}},
	)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Auth:           handlers.NewAuthHandler(authService, workspaceService),
		Tickets:        handlers.NewTicketsHandler(ticketService, cols),
		Admin:          handlers.NewAdminHandler(workspaceService, historyService, cols),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	<-janitorDone
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	notificationService.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
