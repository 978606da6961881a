package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pizza-api/auth"
	"pizza-api/config"
	"pizza-api/handlers"
	"pizza-api/logger"
	"pizza-api/metrics"
	"pizza-api/middleware"
	"pizza-api/repository"
	"pizza-api/routes"
	"pizza-api/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Default().Fatal("Failed to load configuration", "error", err)
	}
	log := logger.Init(logger.Config{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	if cfg.UsesDefaultSecret() {
		log.Warn("Signing tokens with the built-in development secret; set PIZZA_JWT_SECRET")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	gin.SetMode(cfg.Server.Mode)

	db, err := config.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatal("Failed to initialize database", "error", err)
	}
	log.Info("Database connected and migrated", "path", cfg.DB.Path)
	repo := repository.New(db)

	revocations, closeRevocations := newRevocations(ctx, cfg.Redis)
	defer closeRevocations()

	reg := metrics.NewRegistry()
	ledger := auth.NewLedger([]byte(cfg.JWT.Secret), cfg.JWT.TTL, revocations)
	sessions := service.NewSessions(repo, auth.BcryptHasher{}, ledger, reg)
	franchises := service.NewFranchises(repo, reg)
	orders := service.NewOrders(repo, reg)

	if cfg.Admin.Email != "" {
		if _, err := sessions.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			log.Fatal("Failed to create admin account", "error", err)
		}
	}

	if cfg.Metrics.URL != "" {
		reporter := metrics.NewReporter(reg, metrics.ReporterConfig{
			URL:    cfg.Metrics.URL,
			Source: cfg.Metrics.Source,
			UserID: cfg.Metrics.UserID,
			APIKey: cfg.Metrics.APIKey,
			Period: cfg.Metrics.Period,
		})
		go reporter.Run(ctx)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.RequestTracker(reg))
	if gin.Mode() == gin.DebugMode {
		r.Use(gin.Logger())
	}

	// CORS middleware for frontend integration
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	routes.SetupRoutes(r, handlers.New(sessions, franchises, orders), sessions,
		middleware.RateLimit(cfg.RateLimit.AuthLimit, cfg.RateLimit.AuthPeriod), reg)

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: r}
	go func() {
		log.Info("Server running", "addr", "http://localhost:"+cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
	}
	log.Info("Server stopped")
}

// newRevocations picks the shared Redis set when configured, else process memory
func newRevocations(ctx context.Context, cfg config.RedisConfig) (auth.Revocations, func()) {
	log := logger.FromContext(ctx)
	if cfg.Addr == "" {
		log.Info("Using in-memory token revocation set")
		return auth.NewMemoryRevocations(), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to redis", "addr", cfg.Addr, "error", err)
	}
	log.Info("Using redis token revocation set", "addr", cfg.Addr)
	return auth.NewRedisRevocations(client), func() { _ = client.Close() }
}
