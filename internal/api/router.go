// Package api wires together all HTTP routes for the application catalog.
//
// Route grouping philosophy:
//   - Web pages under /application/ are public: the catalog is a browsing
//     surface, and the forms carry no credentials of their own.
//   - The JSON admin API under /admin/ requires a JWT from /admin/login for
//     everything except the login endpoint itself. Mutating admin routes
//     additionally require the admin role; viewers can read but not write.
package api

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/application-catalog/application-catalog/internal/api/admin"
	"github.com/application-catalog/application-catalog/internal/api/web"
	"github.com/application-catalog/application-catalog/internal/audit"
	"github.com/application-catalog/application-catalog/internal/cache"
	"github.com/application-catalog/application-catalog/internal/config"
	"github.com/application-catalog/application-catalog/internal/db/repositories"
	"github.com/application-catalog/application-catalog/internal/jobs"
	"github.com/application-catalog/application-catalog/internal/middleware"
)

// Version is the service version reported by /version and the admin index.
const Version = "0.1.0"

// BackgroundServices holds references to background jobs and resources that
// must be stopped during graceful shutdown. The caller (cmd/catalog) is
// responsible for calling Shutdown() when the process receives a termination
// signal.
type BackgroundServices struct {
	treeMaintenanceJob *jobs.TreeMaintenanceJob
	rateLimiters       []middleware.Limiter
	auditShipper       *audit.MultiShipper
	listCache          *cache.Cache
}

// Shutdown stops all background goroutines and closes shared resources. It
// should be called after the HTTP server has been shut down so that in-flight
// requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.treeMaintenanceJob != nil {
		bg.treeMaintenanceJob.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.auditShipper != nil {
		if err := bg.auditShipper.Close(); err != nil {
			slog.Error("failed to close audit shipper", "error", err)
		}
	}
	if bg.listCache.Enabled() {
		if err := bg.listCache.Close(); err != nil {
			slog.Error("failed to close cache connection", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sqlx.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Optional Redis read cache. A nil cache is a valid no-op backend, so a
	// broken cache config degrades to uncached reads rather than refusing to
	// start.
	listCache, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache, continuing without it", "error", err)
		listCache = nil
	}
	if listCache.Enabled() {
		slog.Info("list cache enabled", "key_prefix", cfg.Cache.KeyPrefix)
	}

	userRepo := repositories.NewAdminUserRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// External audit shipping is optional; the database audit log always runs.
	var shipper *audit.MultiShipper
	if cfg.Audit.Enabled && len(cfg.Audit.Shippers) > 0 {
		shipper, err = audit.NewMultiShipper(cfg.Audit.Shippers)
		if err != nil {
			log.Fatalf("Failed to initialize audit shippers: %v", err)
		}
	}

	// Tree maintenance repairs hierarchy columns changed outside the
	// application. Normal writes rebuild inline, so drift is rare.
	treeJob := jobs.NewTreeMaintenanceJob(db)
	treeJob.Start(context.Background(), cfg.Jobs.TreeMaintenanceIntervalMinutes)

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.DefaultSecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint
	router.GET("/ready", readinessHandler(db))

	// API version
	router.GET("/version", versionHandler())

	// Rate limiters: Redis-backed when the cache is configured so limits hold
	// across replicas, in-process token buckets otherwise.
	var authRateLimiter, generalRateLimiter middleware.Limiter
	if listCache.Enabled() {
		authRateLimiter = middleware.NewRedisRateLimiter(listCache.Client(), middleware.AuthRateLimitConfig())
		generalRateLimiter = middleware.NewRedisRateLimiter(listCache.Client(), middleware.DefaultRateLimitConfig())
	} else {
		authRateLimiter = middleware.NewRateLimiter(middleware.AuthRateLimitConfig())
		generalRateLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	}

	rateLimit := func(limiter middleware.Limiter) gin.HandlerFunc {
		if !cfg.Security.RateLimiting.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimitMiddleware(limiter)
	}

	// Web surface: server-rendered catalog pages
	webHandlers := web.NewHandlers(db, listCache)
	router.GET("/", webHandlers.HomeHandler())
	webGroup := router.Group("/application")
	webGroup.Use(rateLimit(generalRateLimiter))
	{
		webGroup.GET("/", webHandlers.ListHandler())
		webGroup.GET("/new/", webHandlers.NewFormHandler())
		webGroup.POST("/new/", webHandlers.CreateHandler())
		webGroup.GET("/:id/", webHandlers.DetailHandler())
		webGroup.GET("/:id/edit/", webHandlers.EditFormHandler())
		webGroup.POST("/:id/edit/", webHandlers.UpdateHandler())
		webGroup.GET("/:id/delete/", webHandlers.DeleteConfirmHandler())
		webGroup.POST("/:id/delete/", webHandlers.DeleteHandler())
	}

	// Admin JSON API
	authHandlers := admin.NewAuthHandlers(cfg, db)
	appHandlers := admin.NewApplicationHandlers(db)
	attrHandlers := admin.NewAttributeHandlers(db)
	orgHandlers := admin.NewOrganisationHandlers(db)
	userHandlers := admin.NewUserHandlers(db)
	auditHandlers := admin.NewAuditHandlers(db)
	statsHandlers := admin.NewStatsHandlers(db, Version)

	adminGroup := router.Group("/admin")
	adminGroup.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Login is public but carries the strictest rate limit
	adminGroup.POST("/login", rateLimit(authRateLimiter), authHandlers.LoginHandler())

	authenticated := adminGroup.Group("")
	authenticated.Use(middleware.AuthMiddleware(userRepo))
	authenticated.Use(rateLimit(generalRateLimiter))
	authenticated.Use(middleware.AuditMiddlewareWithShipper(auditRepo, shipperOrNil(shipper), &cfg.Audit))
	{
		authenticated.GET("/", statsHandlers.IndexHandler())
		authenticated.GET("/me", authHandlers.MeHandler())
		authenticated.GET("/stats", statsHandlers.DashboardStatsHandler())

		applications := authenticated.Group("/applications")
		{
			applications.GET("", appHandlers.ListApplicationsHandler())
			applications.GET("/:id", appHandlers.GetApplicationHandler())
			applications.POST("", middleware.RequireAdmin(), appHandlers.CreateApplicationHandler())
			applications.PUT("/:id", middleware.RequireAdmin(), appHandlers.UpdateApplicationHandler())
			applications.DELETE("/:id", middleware.RequireAdmin(), appHandlers.DeleteApplicationHandler())
		}

		attributes := authenticated.Group("/attributes")
		{
			attributes.GET("", attrHandlers.ListAttributesHandler())
			attributes.GET("/:id", attrHandlers.GetAttributeHandler())
			attributes.POST("", middleware.RequireAdmin(), attrHandlers.CreateAttributeHandler())
			attributes.PUT("/:id", middleware.RequireAdmin(), attrHandlers.UpdateAttributeHandler())
			attributes.DELETE("/:id", middleware.RequireAdmin(), attrHandlers.DeleteAttributeHandler())
		}

		organisations := authenticated.Group("/organisations")
		{
			organisations.GET("", orgHandlers.ListOrganisationsHandler())
			organisations.GET("/:id", orgHandlers.GetOrganisationHandler())
			organisations.POST("", middleware.RequireAdmin(), orgHandlers.CreateOrganisationHandler())
			organisations.PUT("/:id", middleware.RequireAdmin(), orgHandlers.UpdateOrganisationHandler())
			organisations.DELETE("/:id", middleware.RequireAdmin(), orgHandlers.DeleteOrganisationHandler())
		}

		// User management is admin-only end to end
		users := authenticated.Group("/users")
		users.Use(middleware.RequireAdmin())
		{
			users.GET("", userHandlers.ListUsersHandler())
			users.POST("", userHandlers.CreateUserHandler())
			users.PUT("/:id", userHandlers.UpdateUserHandler())
			users.PUT("/:id/password", userHandlers.ChangePasswordHandler())
			users.DELETE("/:id", userHandlers.DeleteUserHandler())
		}

		auditLogs := authenticated.Group("/audit-logs")
		{
			auditLogs.GET("", auditHandlers.ListAuditLogsHandler())
			auditLogs.GET("/:id", auditHandlers.GetAuditLogHandler())
		}
	}

	bg := &BackgroundServices{
		treeMaintenanceJob: treeJob,
		rateLimiters:       []middleware.Limiter{authRateLimiter, generalRateLimiter},
		auditShipper:       shipper,
		listCache:          listCache,
	}

	return router, bg
}

// shipperOrNil converts a possibly-nil *MultiShipper into the Shipper
// interface without producing a typed nil.
func shipperOrNil(ms *audit.MultiShipper) audit.Shipper {
	if ms == nil {
		return nil
	}
	return ms
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Runs a bounded query against the database.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service. Unlike the
// liveness probe (/health), this runs an actual query with a deadline so a
// wedged connection pool fails the readiness gate instead of hanging it.
func readinessHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		var one int
		if err := db.GetContext(ctx, &one, "SELECT 1"); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready": false,
				"error": "database not ready",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ready": true,
			"time":  time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current service version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the service version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		// Log the request
		if cfg.Logging.Format == "json" {
			logJSON(c, latency, path, query)
		} else {
			logText(c, latency, path, query)
		}
	}
}

// logJSON logs a request as a JSON-structured slog record.
func logJSON(c *gin.Context, latency time.Duration, path, query string) {
	requestID, _ := c.Get(middleware.RequestIDKey)
	slog.LogAttrs(
		c.Request.Context(),
		slog.LevelInfo,
		"http request",
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", fmt.Sprintf("%v", requestID)),
		slog.String("user_agent", c.Request.UserAgent()),
	)
}

// logText logs a request as a human-readable slog text record.
func logText(c *gin.Context, latency time.Duration, path, query string) {
	// reuse the same structured output; slog will emit text format when the global
	// handler is a TextHandler (configured in telemetry.SetupLogger).
	logJSON(c, latency, path, query)
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
