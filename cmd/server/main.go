package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listing-sync/config"
	"listing-sync/internal/api"
	"listing-sync/internal/broker"
	"listing-sync/internal/catalog"
	"listing-sync/internal/redisclient"
	"listing-sync/internal/service"
	"listing-sync/internal/store"
	"listing-sync/internal/util"
	"listing-sync/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting listing sync service")

	tp, err := util.InitTracer(cfg.Observ.JaegerEndpoint)
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

	var (
		kv     store.KV
		locker service.Locker = store.NewLocalLocker()
	)
	switch cfg.Store.Backend {
	case config.StoreRedis:
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		kv = redisClient
		locker = redisClient
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))

	case config.StorePostgres:
		db, err := store.NewPostgresKV(cfg.Store.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		kv = db
		logger.Info("Database connected")

	default:
		kv = store.NewMemoryKV()
		logger.Warn("Using in-memory store, data is lost on restart")
	}

	profiles := store.NewProfileStore(kv)
	settings := store.NewSettingsStore(kv, cfg.CatalogDefaults())
	listingService := service.NewListingService(profiles)

	httpClient := catalog.NewHTTPClient(cfg.Catalog.Timeout)
	images, err := catalog.NewImageFetcher(httpClient, cfg.Sync.ImageCacheSize)
	if err != nil {
		logger.Fatal("Failed to create image fetcher", zap.Error(err))
	}

	sessions := service.NewCatalogSessionFactory(service.CatalogSessionConfig{
		Doer:       httpClient,
		Images:     images,
		Vocabulary: service.DefaultVocabulary(),
		Mapper: service.MapperConfig{
			TaxName:    cfg.Catalog.TaxName,
			SourceSite: cfg.Catalog.SourceSite,
		},
		UserAgent: cfg.Catalog.UserAgent,
	})

	// publisher stays a nil interface when Kafka is off
	var publisher service.ExportPublisher
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicExports)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicExports))
	}

	orchestrator := service.NewSyncOrchestrator(
		listingService,
		settings,
		sessions,
		locker,
		publisher,
		cfg.Sync.OverwriteProducts,
	)
	dispatcher := api.NewDispatcher(listingService, settings, orchestrator)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var scrapeWorker *worker.ScrapeWorker
	if cfg.Kafka.Enabled {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicScrapes, cfg.Kafka.ConsumerGroup)
		scrapeWorker = worker.NewScrapeWorker(consumer, dispatcher)
		go func() {
			if err := scrapeWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Scrape worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(dispatcher)
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
	if scrapeWorker != nil {
		if err := scrapeWorker.Stop(); err != nil {
			logger.Error("Error stopping scrape worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
