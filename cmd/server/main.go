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

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/irfndi/predictarena-go/internal/api"
	"github.com/irfndi/predictarena-go/internal/api/handlers"
	"github.com/irfndi/predictarena-go/internal/cache"
	"github.com/irfndi/predictarena-go/internal/config"
	"github.com/irfndi/predictarena-go/internal/database"
	"github.com/irfndi/predictarena-go/internal/logging"
	"github.com/irfndi/predictarena-go/internal/middleware"
	"github.com/irfndi/predictarena-go/internal/models"
	"github.com/irfndi/predictarena-go/internal/services"
	"github.com/irfndi/predictarena-go/internal/telemetry"
	"github.com/irfndi/predictarena-go/pkg/quotes"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "seed" {
		if err := runSeeder(); err != nil {
			fmt.Fprintf(os.Stderr, "Seeding failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.NewLogrusLogger(cfg.LogLevel, cfg.Environment)
	stdLogger, otlpLogger := newStandardLogger(cfg)
	defer func() {
		if err := otlpLogger.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Warn("Failed to flush OTLP logs")
		}
	}()

	tracing, err := telemetry.InitTracer(ctx, cfg.Telemetry, telemetry.Options{Environment: cfg.Environment})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Failed to flush traces")
		}
	}()
	logger.WithField("exporter", tracing.Exporter).Info("Tracing initialized")

	db, err := database.NewPostgresConnection(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	pool := database.NewTracedPool(db.Pool)
	if err := database.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	store := database.NewStore(pool, cfg.Database.GetQueryTimeout())

	bus := services.NewChannelBus(64, logger)
	defer bus.Close()
	publishers := services.MultiPublisher{bus}

	var (
		quoteCache services.QuoteCache
		lease      services.ContestLease
		redisCheck handlers.HealthChecker
	)
	redisClient, err := database.NewRedisConnection(ctx, cfg.Redis)
	if err != nil {
		logger.WithError(err).Warn("Failed to connect to Redis - continuing without quote cache, resolution lease and pub/sub")
	} else {
		defer redisClient.Close()
		rc := cache.NewRedisQuoteCache(redisClient.Client, cfg.MarketData.GetQuoteCacheTTL(), logger)
		defer rc.LogStats()
		quoteCache = rc
		lease = cache.NewRedisContestLease(redisClient.Client)
		publishers = append(publishers, cache.NewRedisEventPublisher(redisClient.Client))
		redisCheck = redisClient
	}

	breaker := services.NewCircuitBreaker("market-data", services.CircuitBreakerConfig{IsSuccessful: services.ProviderResponded}, logger)
	market := services.NewMarketDataService(
		quotes.NewClient(cfg.MarketData.ProviderURL, cfg.MarketData.GetTimeout()),
		quoteCache,
		breaker,
		services.MarketDataOptions{
			Timeout:         cfg.MarketData.GetTimeout(),
			MaxConcurrency:  cfg.MarketData.MaxConcurrency,
			HistoryInterval: cfg.MarketData.HistoryInterval,
			HistoryRange:    cfg.MarketData.HistoryRange,
			Retry:           retryPolicy(cfg.MarketData.MaxRetries),
		},
		logger,
	)

	scoring, err := services.NewScoringPolicy(cfg.Scoring.Tolerance, cfg.Scoring.MaxErrorBand)
	if err != nil {
		return fmt.Errorf("invalid scoring policy: %w", err)
	}

	ledger := services.NewPredictionLedger(store, market, lease, publishers, services.LedgerOptions{
		Scoring:         scoring,
		OverwritePolicy: models.HouseOverwritePolicy(cfg.House.OverwritePolicy),
		LeaseTTL:        cfg.Contest.GetResolutionLeaseTTL(),
	}, logger)
	predictor := services.NewHousePredictor(cfg.House.ModelRevision)
	contests := services.NewContestService(store, ledger, market, predictor, logger)

	if err := startEventConsumers(ctx, cfg.Telegram, bus, stdLogger, logger); err != nil {
		return err
	}

	if cfg.Security.AdminAPIKey == "" {
		logger.Warn("ADMIN_API_KEY is not set - admin endpoints will reject every request")
	}

	router := newRouter(cfg, stdLogger, api.Dependencies{
		Contests: handlers.NewContestHandler(contests, logger),
		Health:   handlers.NewHealthHandler(db, redisCheck, cfg.Telemetry.ServiceVersion),
		Auth:     middleware.NewAuthMiddleware(cfg.Security.JWTSecret),
		Admin:    middleware.NewAdminMiddleware(cfg.Security.AdminAPIKey),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		stdLogger.LogStartup(serviceName(cfg), cfg.Telemetry.ServiceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		stdLogger.LogShutdown(serviceName(cfg), "signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exited")
	return nil
}

func serviceName(cfg *config.Config) string {
	if cfg.Telemetry.ServiceName != "" {
		return cfg.Telemetry.ServiceName
	}
	return telemetry.ServiceName
}

// newStandardLogger exports business logs over OTLP when a collector is
// configured and writes JSON to stdout otherwise.
func newStandardLogger(cfg *config.Config) (*logging.StandardLogger, *logging.OTLPLogger) {
	if !cfg.Telemetry.Enabled || cfg.Telemetry.OTLPEndpoint == "" {
		return logging.NewStandardLogger(cfg.LogLevel, cfg.Environment), nil
	}
	addr, err := telemetry.CollectorAddress(cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return logging.NewStandardLogger(cfg.LogLevel, cfg.Environment), nil
	}
	return logging.NewStandardOTLPLogger(logging.OTLPConfig{
		Endpoint:       addr,
		ServiceName:    serviceName(cfg),
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Environment,
		LogLevel:       cfg.LogLevel,
	})
}

// startEventConsumers subscribes the domain-event log and, when a bot token
// is configured, the Telegram broadcaster.
func startEventConsumers(ctx context.Context, tg config.TelegramConfig, bus *services.ChannelBus, stdLogger *logging.StandardLogger, logger *logrus.Logger) error {
	events := bus.Subscribe()
	go func() {
		for event := range events {
			stdLogger.LogDomainEvent(event)
		}
	}()

	if tg.BotToken == "" {
		logger.Info("Telegram bot token not set - resolution broadcasts disabled")
		return nil
	}
	notifier, err := services.NewTelegramNotificationService(tg.BotToken, tg.ChatID, logger)
	if err != nil {
		return fmt.Errorf("failed to start telegram notifier: %w", err)
	}
	go notifier.Run(ctx, bus.Subscribe())
	return nil
}

func newRouter(cfg *config.Config, stdLogger *logging.StandardLogger, deps api.Dependencies) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName(cfg)))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestLogger(stdLogger))

	api.SetupRoutes(router, deps)
	return router
}

func retryPolicy(maxRetries int) services.RetryPolicy {
	policy := services.DefaultRetryPolicy()
	policy.MaxRetries = maxRetries
	return policy
}
