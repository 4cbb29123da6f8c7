package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lms-admin-api/api/swagger"
	"github.com/noah-isme/lms-admin-api/internal/handler"
	internalmiddleware "github.com/noah-isme/lms-admin-api/internal/middleware"
	"github.com/noah-isme/lms-admin-api/internal/repository"
	"github.com/noah-isme/lms-admin-api/internal/service"
	"github.com/noah-isme/lms-admin-api/pkg/cache"
	"github.com/noah-isme/lms-admin-api/pkg/config"
	"github.com/noah-isme/lms-admin-api/pkg/database"
	"github.com/noah-isme/lms-admin-api/pkg/export"
	"github.com/noah-isme/lms-admin-api/pkg/jobs"
	"github.com/noah-isme/lms-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-admin-api/pkg/middleware/requestid"
	"github.com/noah-isme/lms-admin-api/pkg/signedlink"
)

// @title LMS Admin API
// @version 1.0.0
// @description Student fee ledger for the LMS admin console
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logr); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()

	var (
		redisClient *redis.Client
		cacheRepo   *repository.CacheRepository
		cacheSvc    *service.CacheService
	)
	if cfg.Analytics.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Analytics.CacheTTL, logr, true)
		}
	}

	loc := cfg.Ledger.Location()
	validate := validator.New()

	users := repository.NewUserRepository(db)
	students := repository.NewStudentRepository(db, loc, cfg.Ledger.ReceiptRetries)
	transactions := repository.NewTransactionRepository(db, loc, cfg.Ledger.ReceiptRetries)
	plans := repository.NewEMIRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "lms-admin-api",
	})
	studentSvc := service.NewStudentService(students, users, cacheSvc, validate, logr)
	paymentSvc := service.NewPaymentService(students, transactions, users, cacheSvc, metrics, validate, logr)
	transactionSvc := service.NewTransactionService(transactions, students, users, logr)
	reconciliationSvc := service.NewReconciliationService(students, transactions, users, cacheSvc, metrics, cfg.Ledger.DriftTolerance, logr)
	emiSvc := service.NewEMIService(plans, students, transactions, users, validate, logr)
	receiptSvc := service.NewReceiptService(transactions, students, export.NewPDFExporter(),
		signedlink.NewSigner(cfg.Receipt.LinkSecret, cfg.Receipt.LinkTTL),
		service.ReceiptConfig{
			Organization:    receiptOrganization(cfg.Receipt),
			CurrencyUnit:    cfg.Receipt.CurrencyUnit,
			CurrencySubunit: cfg.Receipt.CurrencySubunit,
			SharedURLBase:   cfg.PublicBaseURL + cfg.APIPrefix + "/receipts/shared",
			Location:        loc,
		}, logr)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cacheSvc, metrics, logr)

	ledgerQueue := jobs.NewQueue("ledger", service.LedgerVerifyHandler(reconciliationSvc, logr), jobs.QueueConfig{
		Workers:    1,
		BufferSize: 2,
		Logger:     logr,
	})
	ledgerQueue.Start(ctx)
	defer ledgerQueue.Stop()
	service.ScheduleLedgerVerify(ledgerQueue, cfg.Ledger.ReconcileInterval)

	checks := map[string]handler.Pinger{"database": handler.PingFunc(db.PingContext)}
	if cacheRepo != nil {
		checks["redis"] = cacheRepo
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics.Handler(), checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeDeps{
		tokens:       authSvc,
		audit:        users,
		auth:         handler.NewAuthHandler(authSvc),
		students:     handler.NewStudentHandler(studentSvc),
		payments:     handler.NewPaymentHandler(paymentSvc, reconciliationSvc),
		transactions: handler.NewTransactionHandler(transactionSvc, paymentSvc),
		receipts:     handler.NewReceiptHandler(receiptSvc),
		plans:        handler.NewEMIHandler(emiSvc),
		analytics:    handler.NewAnalyticsHandler(analyticsSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
