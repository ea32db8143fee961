package main

import (
	"context"
	"flag"
	"log"
	"time"

	"helpdesk-kb-platform/internal/config"
	"helpdesk-kb-platform/internal/logger"
	"helpdesk-kb-platform/internal/vectorstore"
)

// Rebuilds a vector index from scratch. Run before a full re-ingestion so
// stale chunks from earlier document versions cannot survive.
func main() {
	var (
		name      = flag.String("index", "", "index name (defaults to the configured default index)")
		dimension = flag.Int("dimension", 0, "vector dimension (defaults to the configured dimension)")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	if *name == "" {
		*name = cfg.DefaultIndexName
	}
	if *dimension <= 0 {
		*dimension = cfg.VectorDimensions
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(context.Background())

	backend := vectorstore.NewMongoBackend(mongoClient.Database(cfg.DBName), cfg.VectorSearchEnabled, cfg.SearchIndexName)
	manager := vectorstore.NewManager(backend)

	var provisioner *vectorstore.Provisioner
	if rdb, err := config.NewRedisClient(cfg); err == nil {
		defer rdb.Close()
		provisioner = vectorstore.NewProvisioner(manager, rdb)
	} else {
		log.Printf("Redis unavailable, provisioning without a distributed lock: %v", err)
		provisioner = vectorstore.NewProvisioner(manager, nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := provisioner.Recreate(ctx, *name, *dimension); err != nil {
		log.Fatalf("Failed to recreate index %q: %v", *name, err)
	}
	log.Printf("Index %q recreated with dimension %d", *name, *dimension)
}
