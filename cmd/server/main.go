package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/houzhh15/standup/cmd/server/internal/api"
	"github.com/houzhh15/standup/cmd/server/internal/audit"
	"github.com/houzhh15/standup/cmd/server/internal/config"
	"github.com/houzhh15/standup/cmd/server/internal/feed"
	"github.com/houzhh15/standup/cmd/server/internal/middleware"
	"github.com/houzhh15/standup/cmd/server/internal/projects"
	"github.com/houzhh15/standup/cmd/server/internal/reports"
	"github.com/houzhh15/standup/cmd/server/internal/store"
	"github.com/houzhh15/standup/cmd/server/internal/updates"
	"github.com/houzhh15/standup/cmd/server/internal/users"
	"github.com/houzhh15/standup/pkg/logger"
)

func main() {
	// Load and validate configuration before anything else
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("config load failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logInstance, err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		FilePath:    cfg.Log.File,
	})
	if err != nil {
		os.Stderr.WriteString("logger init failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	appLogger := logInstance.With("component", "main")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// User manager with default admin bootstrap
	userManager, err := users.NewManager(cfg.Data.UsersDir, []byte(cfg.Security.JWTSecret))
	if err != nil {
		appLogger.Error("user manager init failed", "error", err)
		os.Exit(1)
	}
	adminPassword := cfg.Security.AdminDefaultPassword
	if adminPassword == "" {
		if cfg.IsProduction() {
			appLogger.Error("admin default password not set in production")
			os.Exit(1)
		}
		adminPassword = "admin123"
		appLogger.Warn("using default admin password, set ADMIN_DEFAULT_PASSWORD")
	}
	if err := userManager.EnsureDefaultAdmin(adminPassword); err != nil {
		appLogger.Warn("failed to ensure default admin", "error", err)
	}

	// Row store backing updates, projects and report schedules
	rows, err := store.NewFileStore(cfg.Data.Dir)
	if err != nil {
		appLogger.Error("store init failed", "error", err)
		os.Exit(1)
	}

	auditLogger, err := audit.NewFileAuditLogger(cfg.Data.AuditLogsDir)
	if err != nil {
		appLogger.Error("audit logger init failed", "error", err)
		os.Exit(1)
	}

	updateStore := updates.NewStore(rows, logInstance.With("component", "updates"))
	registry := projects.NewRegistry(rows)
	projection := feed.NewService(updateStore, registry, userManager,
		logInstance.With("component", "feed"), cfg.Report.MaxFeedUpdates)
	scheduler := reports.NewScheduler(rows, auditLogger, logInstance.With("component", "reports"))
	appLogger.Info("services ready")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	startTime := time.Now()
	r.GET("/health", healthCheckHandler(cfg, startTime))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api.RegisterRoutes(r, api.Deps{
		Users:      userManager,
		Updates:    updateStore,
		Mutator:    updates.NewMutator(updateStore, auditLogger),
		Projection: projection,
		Projects:   registry,
		Scheduler:  scheduler,
		Audit:      auditLogger,
	})

	srv := &http.Server{
		Addr:    cfg.GetServerAddr(),
		Handler: r,
	}

	go func() {
		appLogger.Info("server starting", "addr", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	appLogger.Info("shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	appLogger.Info("server shutdown complete")
}

// healthCheckHandler reports process liveness and uptime
func healthCheckHandler(cfg *config.Config, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"env":    cfg.Server.Env,
			"uptime": time.Since(startTime).String(),
		})
	}
}
