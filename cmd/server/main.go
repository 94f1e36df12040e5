package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/medcoding/api/internal/audit"
	"github.com/medcoding/api/internal/cache"
	"github.com/medcoding/api/internal/catalog"
	"github.com/medcoding/api/internal/config"
	"github.com/medcoding/api/internal/database"
	"github.com/medcoding/api/internal/eventbus"
	"github.com/medcoding/api/internal/grpcserver"
	"github.com/medcoding/api/internal/handlers"
	"github.com/medcoding/api/internal/logging"
	"github.com/medcoding/api/internal/middleware"
	"github.com/medcoding/api/internal/prediction"
	"github.com/medcoding/api/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/medcoding/api/docs" // Swagger docs
)

// @title Medical Coding Prediction API
// @version 0.1.0
// @description Predicts ICD-10, CPT and HCPCS billing codes from clinical text.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	boot := logging.New("api", zapcore.InfoLevel, os.Stdout)
	if err := godotenv.Load(); errors.Is(err, os.ErrNotExist) {
		boot.Info("no .env file, using process environment")
	} else if err != nil {
		boot.Warning("failed to read .env file", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		boot.Error("invalid configuration", zap.Error(err))
		return 1
	}
	if err := cfg.Validate(); err != nil {
		boot.Error("invalid configuration", zap.Error(err))
		return 1
	}

	log, err := logging.Get("api", cfg.LogLevel)
	if err != nil {
		boot.Error("invalid LOG_LEVEL", zap.Error(err))
		return 1
	}
	defer log.Sync()
	defer log.RedirectStdLog()()
	logger := log.Zap()

	logger.Info("medical coding API starting",
		zap.String("model_version", cfg.ModelVersion),
		zap.String("environment", cfg.Environment),
	)

	shutdownTracer, err := telemetry.InitTracer(ctx, logging.ServiceName, cfg.ModelVersion, cfg.OTLPEndpoint)
	if err != nil {
		// Tracing is optional; keep serving without it.
		logger.Error("failed to initialize tracing", zap.Error(err))
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error("failed to shutdown tracing", zap.Error(err))
			}
		}()
	}

	applied, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to run migrations", zap.Error(err))
		return 1
	}
	logger.Info("migrations checked", zap.Bool("applied", applied))

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", zap.Error(err))
		return 1
	}
	defer db.Close()

	codes, err := catalog.Load()
	if err != nil {
		logger.Error("failed to load code catalog", zap.Error(err))
		return 1
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(registry)

	predictionHandler := handlers.NewPredictionHandler(
		prediction.NewService(logger.Named("prediction")), metrics, cfg.ModelVersion, logger,
	).WithAudit(audit.NewService(db, logger.Named("audit")))

	// Redis and NATS are optional; the API runs without them.
	var redisPinger handlers.Pinger
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("prediction cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			redisPinger = rdb
			predictionHandler.WithCache(cache.New(rdb.Client(), cfg.CacheTTL))
			logger.Info("prediction cache enabled", zap.Duration("ttl", cfg.CacheTTL))
		}
	}

	var natsPinger handlers.Pinger
	if cfg.NATSURL != "" {
		nc, err := eventbus.Connect(cfg.NATSURL, logger.Named("nats"))
		if err != nil {
			logger.Warn("prediction events disabled", zap.Error(err))
		} else {
			defer nc.Close()
			natsPinger = nc
			publisher, err := eventbus.NewPublisher(nc.JetStream())
			if err != nil {
				logger.Warn("prediction events disabled", zap.Error(err))
			} else {
				predictionHandler.WithEvents(publisher)
				logger.Info("prediction events enabled", zap.String("stream", eventbus.StreamName))
			}
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger.Named("http")))

	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	healthHandler := handlers.NewHealthHandler(db, redisPinger, natsPinger, cfg.ModelPath, cfg.ModelVersion)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/deep", healthHandler.DeepHealth)

	codesHandler := handlers.NewCodesHandler(codes)

	breaker := middleware.NewCircuitBreaker()
	breaker.OnStateChange = func(from, to middleware.CircuitState) {
		logger.Warn("predictor circuit changed state", zap.Stringer("from", from), zap.Stringer("to", to))
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTSecret))
	v1.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(100, 10, 6*time.Second)))
	{
		predict := v1.Group("")
		predict.Use(middleware.CircuitBreakerMiddleware(breaker))
		{
			predict.POST("/predict", predictionHandler.Predict)
		}

		v1.GET("/predictions/recent", predictionHandler.Recent)
		v1.GET("/codes", codesHandler.List)
		v1.GET("/codes/:code", codesHandler.Lookup)
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		logger.Error("failed to listen for gRPC", zap.Error(err))
		return 1
	}
	grpcSrv := grpcserver.New(cfg.JWTSecret, logger.Named("grpc"))

	serveErr := make(chan error, 2)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	go func() {
		if err := grpcSrv.Serve(grpcListener); err != nil {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-quit:
		logger.Info("shutting down server...", zap.String("signal", sig.String()))
	case err := <-serveErr:
		logger.Error("server failed", zap.Error(err))
		exitCode = 1
	}

	grpcSrv.SetServing(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		exitCode = 1
	}
	grpcSrv.Stop()

	logger.Info("server exited")
	return exitCode
}
