package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"helpdesk-kb-platform/internal/ai"
	"helpdesk-kb-platform/internal/config"
	"helpdesk-kb-platform/internal/extract"
	"helpdesk-kb-platform/internal/logger"
	"helpdesk-kb-platform/internal/telemetry"
	"helpdesk-kb-platform/internal/vectorstore"
	"helpdesk-kb-platform/middleware"
	"helpdesk-kb-platform/routes"
	"helpdesk-kb-platform/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Initialize OpenTelemetry
	shutdownTracer, err := telemetry.InitTracer("helpdesk-kb-platform")
	if err != nil {
		log.Printf("Tracing disabled: %v", err)
	} else {
		defer shutdownTracer()
	}
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	// Redis is optional: caching, rate limiting and provisioning locks
	// degrade to local behavior without it.
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Printf("Redis unavailable, running without cache and distributed locks: %v", err)
		rdb = nil
	}

	// Vector backend
	backend, cleanup, err := newBackend(cfg)
	if err != nil {
		log.Fatal("Failed to initialize vector backend:", err)
	}
	defer cleanup()
	manager := vectorstore.NewManager(backend)
	provisioner := vectorstore.NewProvisioner(manager, rdb)

	// Embeddings
	embedder, err := ai.NewGeminiEmbedder(cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel, cfg.VectorDimensions)
	if err != nil {
		log.Fatal("Failed to initialize embeddings client:", err)
	}
	defer embedder.Close()

	// Make sure the default index exists before serving traffic.
	ensureDefaultIndex(manager, cfg)

	var chunkCache *services.ChunkCacheService
	if rdb != nil && cfg.ChunkCacheTTL > 0 {
		chunkCache = services.NewChunkCacheService(rdb, time.Duration(cfg.ChunkCacheTTL)*time.Second)
	}

	ingestService := services.NewIngestService(cfg, extract.NewFileExtractor(), embedder, manager, chunkCache, metrics)
	batchService := services.NewBatchService(ingestService, cfg.BatchWorkers)
	retrievalService := services.NewRetrievalService(cfg, embedder, manager, metrics)

	var asynqClient *asynq.Client
	if opt, err := asynqRedisOpt(cfg); err == nil {
		asynqClient = asynq.NewClient(opt)
		defer asynqClient.Close()
	} else {
		log.Printf("Background ingestion disabled: %v", err)
	}

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("helpdesk-kb-platform"))
	router.Use(middleware.RequestID())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	api := router.Group("/api")
	api.Use(middleware.RateLimit(rdb, cfg.RateLimitReqs, time.Duration(cfg.RateLimitWindow)*time.Second))

	routes.NewIngestHandler(cfg, ingestService, batchService, chunkCache, asynqClient).Register(api)
	routes.NewQueryHandler(cfg, retrievalService).Register(api)
	routes.NewIndexHandler(cfg, manager, provisioner, metrics).Register(api)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

func newBackend(cfg *config.Config) (vectorstore.Backend, func(), error) {
	if cfg.VectorBackend == "memory" {
		return vectorstore.NewMemoryBackend(), func() {}, nil
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}
	backend := vectorstore.NewMongoBackend(mongoClient.Database(cfg.DBName), cfg.VectorSearchEnabled, cfg.SearchIndexName)
	return backend, cleanup, nil
}

func ensureDefaultIndex(manager *vectorstore.Manager, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	exists, err := manager.Exists(ctx, cfg.DefaultIndexName)
	if err != nil {
		log.Printf("Could not check default index: %v", err)
		return
	}
	if exists {
		return
	}
	if err := manager.Create(ctx, cfg.DefaultIndexName, cfg.VectorDimensions); err != nil {
		log.Printf("Could not create default index: %v", err)
		return
	}
	log.Printf("Created default index %q (dimension %d)", cfg.DefaultIndexName, cfg.VectorDimensions)
}

func asynqRedisOpt(cfg *config.Config) (asynq.RedisConnOpt, error) {
	if strings.HasPrefix(cfg.RedisURL, "redis://") || strings.HasPrefix(cfg.RedisURL, "rediss://") {
		return asynq.ParseRedisURI(cfg.RedisURL)
	}
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}
