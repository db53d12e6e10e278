package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ecoroute/crm-api/internal/auth"
	"github.com/ecoroute/crm-api/internal/config"
	"github.com/ecoroute/crm-api/internal/database"
	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/ecoroute/crm-api/internal/http/handler"
	"github.com/ecoroute/crm-api/internal/http/middleware"
	"github.com/ecoroute/crm-api/internal/metrics"
	"github.com/ecoroute/crm-api/internal/storage"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const healthCheckTimeout = 3 * time.Second

type Router struct {
	cfg                 *config.Config
	logger              *zap.Logger
	db                  *gorm.DB
	redis               *redis.Client
	authMiddleware      *auth.Middleware
	rateLimiter         *middleware.RateLimiter
	fileHandler         *handler.FileHandler
	dashboardHandler    *handler.DashboardHandler
	pipelineHandler     *handler.PipelineHandler
	localStorageHandler *handler.LocalStorageHandler
}

// NewRouter wires the HTTP surface. redisClient and localStorageHandler may be nil
// when the report cache is off or storage is not local.
func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	fileHandler *handler.FileHandler,
	dashboardHandler *handler.DashboardHandler,
	pipelineHandler *handler.PipelineHandler,
	localStorageHandler *handler.LocalStorageHandler,
) *Router {
	return &Router{
		cfg:                 cfg,
		logger:              logger,
		db:                  db,
		redis:               redisClient,
		authMiddleware:      authMiddleware,
		rateLimiter:         rateLimiter,
		fileHandler:         fileHandler,
		dashboardHandler:    dashboardHandler,
		pipelineHandler:     pipelineHandler,
		localStorageHandler: localStorageHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Liveness
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)
	r.With(
		rt.authMiddleware.Authenticate,
		rt.authMiddleware.RequireRole(domain.RoleSuperAdmin),
	).Handle("/metrics", metrics.Handler())

	// Signed links for local storage carry their own credential
	if rt.localStorageHandler != nil {
		r.Get(storage.LocalRoutePrefix+"*", rt.localStorageHandler.Serve)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.rateLimiter.Limit)
			if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
				r.Use(chimw.Timeout(timeout))
			}

			r.Route("/files", func(r chi.Router) {
				r.Get("/", rt.fileHandler.List)
				r.Get("/{id}", rt.fileHandler.GetByID)
				r.Get("/{id}/download", rt.fileHandler.Download)
			})

			r.Get("/dashboard", rt.dashboardHandler.Get)

			r.Route("/proposals", func(r chi.Router) {
				r.Get("/", rt.pipelineHandler.ListProposals)
				r.Get("/{id}", rt.pipelineHandler.GetProposal)
			})

			r.Route("/contracts", func(r chi.Router) {
				r.Get("/", rt.pipelineHandler.ListContracts)
				r.Get("/{id}", rt.pipelineHandler.GetContract)
			})
		})
	})

	return r
}

func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	stats, err := database.HealthCheckWithStats(ctx, rt.db)
	if err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		writeHealth(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats":   stats,
	})
}

// readiness checks the database and, when configured, the report cache
func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := make(map[string]interface{})
	allHealthy := true

	if err := database.HealthCheck(ctx, rt.db); err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		checks["database"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
		allHealthy = false
	} else {
		checks["database"] = map[string]interface{}{"status": "healthy"}
	}

	if rt.redis != nil {
		// The cache is optional at runtime, so a failed ping degrades instead of failing readiness
		if err := rt.redis.Ping(ctx).Err(); err != nil {
			rt.logger.Warn("Redis health check failed", zap.Error(err))
			checks["cache"] = map[string]interface{}{"status": "degraded", "error": err.Error()}
		} else {
			checks["cache"] = map[string]interface{}{"status": "healthy"}
		}
	}

	status, code := "healthy", http.StatusOK
	if !allHealthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	writeHealth(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

func writeHealth(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
