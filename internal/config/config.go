package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Embeddings configuration
	GeminiAPIKey          string
	EmbeddingsProvider    string // "google" (default), "openai"
	GoogleEmbeddingsModel string // e.g., "text-embedding-004"

	// Vector index configuration
	VectorBackend       string // "mongo" (default), "memory"
	VectorSearchEnabled bool   // Atlas $vectorSearch; cosine fallback otherwise
	SearchIndexName     string
	DefaultIndexName    string
	VectorDimensions    int

	// Chunking defaults (overridable per ingestion call)
	ChunkSize      int
	ChunkOverlap   int
	ChunkSeparator string

	// Batch ingestion
	BatchWorkers int

	// Chunk cache
	ChunkCacheTTL int // seconds, 0 disables caching

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/helpdesk_kb"),
		DBName:      getEnv("DB_NAME", "helpdesk_kb"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "google"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),

		VectorBackend:       getEnv("VECTOR_BACKEND", "mongo"),
		VectorSearchEnabled: getEnvBool("MONGODB_VECTOR_ENABLED", false),
		SearchIndexName:     getEnv("MONGODB_VECTOR_INDEX", "vector_index"),
		DefaultIndexName:    getEnv("DEFAULT_INDEX_NAME", "helpdesk_troubleshooting_documents"),
		VectorDimensions:    getEnvInt("VECTOR_DIM", 768),

		ChunkSize:      getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap:   getEnvInt("CHUNK_OVERLAP", 250),
		ChunkSeparator: getEnv("CHUNK_SEPARATOR", "\n\n"),

		BatchWorkers: getEnvInt("BATCH_WORKERS", 4),

		ChunkCacheTTL: getEnvInt("CHUNK_CACHE_TTL", 3600),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must satisfy 0 <= overlap < MAX_CHUNK_SIZE")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
