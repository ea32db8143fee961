package main

import (
	"context"
	"log"
	"strings"

	"helpdesk-kb-platform/internal/ai"
	"helpdesk-kb-platform/internal/config"
	"helpdesk-kb-platform/internal/extract"
	"helpdesk-kb-platform/internal/logger"
	"helpdesk-kb-platform/internal/queue"
	"helpdesk-kb-platform/internal/vectorstore"
	"helpdesk-kb-platform/services"

	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Vector backend
	backend, cleanup, err := newBackend(cfg)
	if err != nil {
		log.Fatal("Failed to initialize vector backend:", err)
	}
	defer cleanup()
	manager := vectorstore.NewManager(backend)

	// Embeddings
	embedder, err := ai.NewGeminiEmbedder(cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel, cfg.VectorDimensions)
	if err != nil {
		log.Fatal("Failed to initialize embeddings client:", err)
	}
	defer embedder.Close()

	ingestService := services.NewIngestService(cfg, extract.NewFileExtractor(), embedder, manager, nil, nil)
	processor := queue.NewTaskProcessor(ingestService)

	redisOpt, err := asynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Failed to parse Redis settings:", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("Task failed: %s, error: %v", task.Type(), err)
			}),
		},
	)

	mux := queue.NewServeMux(processor)

	log.Println("Starting ingestion worker...")
	log.Printf("   Redis: %s", cfg.RedisURL)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
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
		mongoClient.Disconnect(context.Background())
	}
	backend := vectorstore.NewMongoBackend(mongoClient.Database(cfg.DBName), cfg.VectorSearchEnabled, cfg.SearchIndexName)
	return backend, cleanup, nil
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
