package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/stockroom-api/api/swagger"
	"github.com/noah-isme/stockroom-api/internal/handler"
	"github.com/noah-isme/stockroom-api/internal/middleware"
	"github.com/noah-isme/stockroom-api/internal/models"
	"github.com/noah-isme/stockroom-api/internal/repository"
	"github.com/noah-isme/stockroom-api/internal/service"
	"github.com/noah-isme/stockroom-api/pkg/cache"
	"github.com/noah-isme/stockroom-api/pkg/config"
	"github.com/noah-isme/stockroom-api/pkg/database"
	"github.com/noah-isme/stockroom-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/stockroom-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/stockroom-api/pkg/middleware/requestid"
)

// @title Stockroom API
// @version 1.0.0
// @description Shared stockroom request ledger and approval workflow
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	userRepo := repository.NewUserRepository(db)
	itemRepo := repository.NewItemRepository(db)
	requestRepo := repository.NewRequestRepository(db)

	metricsSvc := service.NewMetricsService()
	notifier := service.NewWebhookNotifier(cfg.Notifier.WebhookURL, cfg.Notifier.Timeout, logr)

	authSvc := service.NewAuthService(userRepo, validator.New(), logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	stockSvc := service.NewStockService(itemRepo, logr)
	catalogSvc := service.NewCatalogService(itemRepo, userRepo, logr)
	requestSvc := service.NewRequestService(requestRepo, itemRepo, userRepo, notifier, logr)
	approvalSvc := service.NewApprovalService(requestRepo, stockSvc, userRepo, notifier, logr,
		service.WithApprovalMetrics(metricsSvc))

	var reportSvc *service.ReportService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		reportSvc = service.NewReportService(requestRepo, cacheRepo, cfg.Reports.CacheTTL, logr)
	} else {
		reportSvc = service.NewReportService(requestRepo, nil, cfg.Reports.CacheTTL, logr)
	}

	var limiter middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Store == "redis" && redisClient != nil {
			limiter = middleware.NewRedisLimiter(redisClient, cfg.RateLimit.Limit, cfg.RateLimit.Window, logr)
		} else {
			limiter = middleware.NewWindowLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
		}
	}

	authHandler := handler.NewAuthHandler(authSvc)
	itemHandler := handler.NewItemHandler(catalogSvc)
	borrowHandler := handler.NewBorrowHandler(requestSvc, approvalSvc)
	requisitionHandler := handler.NewRequisitionHandler(requestSvc, approvalSvc)
	requestHandler := handler.NewRequestHandler(requestSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	// The limiter sits in front of token validation so invalid tokens
	// still count against the client's window.
	api.Use(middleware.RateLimit(limiter, metricsSvc))

	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	anyRole := middleware.RequireRoles(models.RoleUser, models.RoleAdmin)
	userOnly := middleware.RequireRoles(models.RoleUser)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	authed.GET("/items", anyRole, itemHandler.List)
	authed.POST("/items", adminOnly, itemHandler.Create)
	authed.PUT("/items/:id", adminOnly, itemHandler.Update)

	authed.POST("/requests/borrow", userOnly, borrowHandler.Create)
	authed.PUT("/requests/borrow/approve", adminOnly, borrowHandler.Approve)
	authed.PUT("/requests/borrow/reject", adminOnly, borrowHandler.Reject)
	authed.POST("/requests/borrow/return", adminOnly, borrowHandler.Return)

	authed.POST("/requests/requisition", userOnly, requisitionHandler.Create)
	authed.PUT("/requests/requisition/approve", adminOnly, requisitionHandler.Approve)
	authed.POST("/requests/requisition/notapproved", adminOnly, requisitionHandler.NotApproved)

	authed.GET("/requests", adminOnly, requestHandler.List)
	authed.GET("/requests/mine", anyRole, requestHandler.Mine)
	authed.GET("/requests/batches/:id", anyRole, requestHandler.GetBatch)

	authed.GET("/reports/requests/summary", adminOnly, reportHandler.Summary)
	authed.GET("/reports/requests/export", adminOnly, reportHandler.Export)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
