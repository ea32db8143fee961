package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"helpdesk-kb-platform/utils"

	"github.com/redis/go-redis/v9"
)

const chunkCacheKeyPrefix = "chunks:"

// ChunkCacheService keeps the chunk texts of recently ingested documents in
// redis so re-processing and debugging endpoints can read them back without
// re-extracting the source file. Entries are compressed with brotli above the
// small-payload threshold.
type ChunkCacheService struct {
	rdb *redis.Client
	ttl time.Duration
}

type cachedChunks struct {
	Algorithm utils.CompressionAlgorithm `json:"algorithm"`
	Payload   []byte                     `json:"payload"`
	Count     int                        `json:"count"`
}

func NewChunkCacheService(rdb *redis.Client, ttl time.Duration) *ChunkCacheService {
	return &ChunkCacheService{rdb: rdb, ttl: ttl}
}

// CacheDocumentChunks stores the chunk texts for one upload. Failures are
// returned so the caller can log them, but callers treat the cache as
// best-effort.
func (s *ChunkCacheService) CacheDocumentChunks(ctx context.Context, uploadID string, chunks []string) error {
	if s == nil || s.rdb == nil || uploadID == "" {
		return nil
	}

	raw, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("failed to marshal chunks: %w", err)
	}

	payload, algorithm, err := utils.CompressText(string(raw))
	if err != nil {
		return fmt.Errorf("failed to compress chunks: %w", err)
	}

	entry, err := json.Marshal(cachedChunks{
		Algorithm: algorithm,
		Payload:   payload,
		Count:     len(chunks),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	return s.rdb.Set(ctx, chunkCacheKeyPrefix+uploadID, entry, s.ttl).Err()
}

// GetDocumentChunks returns the cached chunk texts for an upload, or false
// when the entry is missing or unreadable.
func (s *ChunkCacheService) GetDocumentChunks(ctx context.Context, uploadID string) ([]string, bool) {
	if s == nil || s.rdb == nil || uploadID == "" {
		return nil, false
	}

	raw, err := s.rdb.Get(ctx, chunkCacheKeyPrefix+uploadID).Bytes()
	if err != nil {
		return nil, false
	}

	var entry cachedChunks
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}

	text, err := utils.DecompressText(entry.Payload, entry.Algorithm)
	if err != nil {
		return nil, false
	}

	var chunks []string
	if err := json.Unmarshal([]byte(text), &chunks); err != nil {
		return nil, false
	}
	return chunks, true
}

// InvalidateDocumentChunks drops the cached chunks for an upload.
func (s *ChunkCacheService) InvalidateDocumentChunks(ctx context.Context, uploadID string) error {
	if s == nil || s.rdb == nil || uploadID == "" {
		return nil
	}
	return s.rdb.Del(ctx, chunkCacheKeyPrefix+uploadID).Err()
}
