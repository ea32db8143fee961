package services

import (
	"context"
	"testing"
	"time"
)

func TestChunkCacheNilClientIsNoop(t *testing.T) {
	cache := NewChunkCacheService(nil, time.Hour)

	if err := cache.CacheDocumentChunks(context.Background(), "upload-1", []string{"a", "b"}); err != nil {
		t.Fatalf("nil-client cache write should be a no-op, got %v", err)
	}
	if _, ok := cache.GetDocumentChunks(context.Background(), "upload-1"); ok {
		t.Fatal("nil-client cache read should miss")
	}
	if err := cache.InvalidateDocumentChunks(context.Background(), "upload-1"); err != nil {
		t.Fatalf("nil-client invalidate should be a no-op, got %v", err)
	}
}
