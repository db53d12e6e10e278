package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecoroute/crm-api/internal/auth"
	"github.com/ecoroute/crm-api/internal/cache"
	"github.com/ecoroute/crm-api/internal/config"
	"github.com/ecoroute/crm-api/internal/database"
	"github.com/ecoroute/crm-api/internal/eventlog"
	"github.com/ecoroute/crm-api/internal/http/handler"
	"github.com/ecoroute/crm-api/internal/http/middleware"
	"github.com/ecoroute/crm-api/internal/http/router"
	"github.com/ecoroute/crm-api/internal/jobs"
	"github.com/ecoroute/crm-api/internal/logger"
	"github.com/ecoroute/crm-api/internal/repository"
	"github.com/ecoroute/crm-api/internal/service"
	"github.com/ecoroute/crm-api/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// @title EcoRoute CRM API
// @version 1.0
// @description Role-scoped file browsing, pipeline records and dashboard aggregation for the waste-management CRM
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Basic configuration first, for logging setup
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Full configuration: environment variables in development, Key Vault in staging/production
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	fileStorage, err := storage.NewStorage(ctx, &cfg.Storage, cfg.App.PublicBaseURL, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Report cache is optional; the API runs uncached without Redis
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, dashboard reports will not be cached",
				zap.String("addr", cfg.Redis.Addr),
				zap.Error(err),
			)
			redisClient = nil
		} else {
			log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
		}
	}
	reportCache := cache.New(redisClient, cfg.Redis.CacheTTLDuration())

	// Repositories
	userRepo := repository.NewUserRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	proposalRepo := repository.NewProposalRepository(db)
	contractRepo := repository.NewContractRepository(db)
	clientRepo := repository.NewClientRepository(db)
	fileRepo := repository.NewFileRepository(db)
	eventRepo := repository.NewCalendarEventRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activitySink := eventlog.NewSink(activityRepo, cfg.ActivitySink, log)
	activitySink.Start()

	// Services
	fileService := service.NewFileService(fileRepo, fileStorage, activitySink, cfg.Storage.PresignTTL(), log)
	pipelineService := service.NewPipelineService(proposalRepo, contractRepo, activitySink, log)
	dashboardService := service.NewDashboardService(
		leadRepo,
		proposalRepo,
		contractRepo,
		clientRepo,
		eventRepo,
		activityRepo,
		reportCache,
		cfg.Dashboard,
		log,
	)

	// Middleware
	authMiddleware := auth.NewMiddleware(cfg, userRepo, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Handlers
	fileHandler := handler.NewFileHandler(fileService, log)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, log)
	pipelineHandler := handler.NewPipelineHandler(pipelineService, log)

	var localStorageHandler *handler.LocalStorageHandler
	if local, ok := fileStorage.(*storage.LocalStorage); ok {
		localStorageHandler = handler.NewLocalStorageHandler(local, log)
	}

	rt := router.NewRouter(
		cfg,
		log,
		db,
		redisClient,
		authMiddleware,
		rateLimiter,
		fileHandler,
		dashboardHandler,
		pipelineHandler,
		localStorageHandler,
	)

	// Background jobs
	var scheduler *jobs.Scheduler
	if reportCache.Enabled() {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterCacheRefreshJob(
			scheduler,
			dashboardService,
			log,
			cfg.Dashboard.CacheRefreshCron,
			cfg.Dashboard.QueryTimeoutDuration(),
		); err != nil {
			log.Error("Failed to register cache refresh job", zap.Error(err))
		}
		scheduler.Start()
	} else {
		log.Info("Dashboard cache disabled, skipping cache refresh job")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		// Requests are finished, so no more activity entries can arrive
		if err := activitySink.Close(ctx); err != nil {
			log.Warn("Activity log entries may have been lost on shutdown", zap.Error(err))
		}

		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Warn("Error closing redis connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
