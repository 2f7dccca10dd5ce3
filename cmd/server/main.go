package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shop-service/config"
	"shop-service/internal/api"
	"shop-service/internal/broker"
	"shop-service/internal/catalog"
	"shop-service/internal/redisclient"
	"shop-service/internal/service"
	"shop-service/internal/store"
	"shop-service/internal/util"
	"shop-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(util.LoggerConfig{
		Env:         cfg.Server.Env,
		ServiceName: "shop-service",
		Level:       cfg.Server.LogLevel,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting shop service")

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer(util.TracerConfig{
			ServiceName:    "shop-service",
			JaegerEndpoint: cfg.Observ.JaegerEndpoint,
			SampleRatio:    cfg.Observ.TracingSampleRatio,
		})
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	seeds, err := catalog.LoadSeeds(cfg.Shop.CatalogSeedPath)
	if err != nil {
		logger.Warn("Using built-in seed catalog", zap.Error(err))
		seeds = catalog.DefaultProducts()
	}

	ctx := context.Background()
	checks := map[string]api.Pinger{}

	var (
		backend     store.Backend
		idempotency service.IdempotencyStore
		redisClient *redisclient.Client
	)

	if cfg.Store.Backend == config.BackendRedis || cfg.Redis.CacheEnabled {
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))

		idempotency = redisClient
		checks["redis"] = redisClient
	}

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := store.NewStore(cfg.Store.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Info("Database connected")
		checks["postgres"] = db

		backend = db
		if redisClient != nil {
			backend = store.NewCachedBackend(db, redisClient, cfg.Redis.CacheTTL)
			logger.Info("Record cache enabled", zap.Duration("ttl", cfg.Redis.CacheTTL))
		}
	case config.BackendRedis:
		backend = redisClient
	case config.BackendMemory:
		backend = store.NewMemoryBackend()
	default:
		logger.Fatal("Unknown store backend", zap.String("backend", cfg.Store.Backend))
	}

	records := store.NewRecords(backend)

	var writer broker.EventWriter
	if cfg.Kafka.Enabled {
		writer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicShop)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		writer = broker.NewLogProducer()
	}
	defer writer.Close()

	eventPublisher := broker.NewEventPublisher(writer)

	// Without a broker, product updates reach the restock handler in process.
	var events service.EventPublisher = eventPublisher
	var inline *worker.InlinePublisher
	if !cfg.Kafka.Enabled {
		inline = worker.NewInlinePublisher(eventPublisher)
		events = inline
	}

	shopService, err := service.NewShopService(ctx, records, seeds, events, idempotency)
	if err != nil {
		logger.Fatal("Failed to start shop service", zap.Error(err))
	}
	notificationService := service.NewNotificationService(records, shopService, eventPublisher)
	reviewService := service.NewReviewService(records, shopService)
	newsletterService := service.NewNewsletterService(records)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var restockWorker *worker.RestockWorker
	if inline != nil {
		inline.Bind(notificationService.HandleProductUpdated)
	} else {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicShop, cfg.Kafka.ConsumerGroup)
		restockWorker = worker.NewRestockWorker(consumer, notificationService.HandleProductUpdated)
		go func() {
			if err := restockWorker.Start(workerCtx); err != nil {
				logger.Error("Restock worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(shopService, notificationService, reviewService, newsletterService, api.Options{
		AdminToken:    cfg.Shop.AdminToken,
		SessionHeader: cfg.Shop.SessionHeader,
		Checks:        checks,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if restockWorker != nil {
		if err := restockWorker.Stop(); err != nil {
			logger.Error("Failed to stop restock worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
