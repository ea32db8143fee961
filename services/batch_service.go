package services

import (
	"context"
	"fmt"
	"sync"

	"helpdesk-kb-platform/internal/logger"
	"helpdesk-kb-platform/models"
)

// BatchService fans a set of file references out over a bounded worker pool.
// Results line up with the input order regardless of completion order, and a
// failure (or panic) in one document never stops the others.
type BatchService struct {
	ingest  *IngestService
	workers int
}

func NewBatchService(ingest *IngestService, workers int) *BatchService {
	if workers <= 0 {
		workers = 1
	}
	return &BatchService{ingest: ingest, workers: workers}
}

// IngestBatch processes every file reference and returns one result per
// input, in input order. An empty input yields a valid empty batch result.
func (s *BatchService) IngestBatch(ctx context.Context, files []models.FileRef, userID string) models.BatchResult {
	results := make([]models.IngestionResult, len(files))
	if len(files) == 0 {
		return models.BatchResult{Results: results}
	}

	workers := s.workers
	if workers > len(files) {
		workers = len(files)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.processOne(ctx, files[i], userID)
			}
		}()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	successful := 0
	for _, r := range results {
		if r.Success {
			successful++
		}
	}
	logger.Info("batch ingestion complete",
		"total", len(files), "successful", successful, "user_id", userID)

	return models.BatchResult{
		Results:         results,
		TotalProcessed:  len(files),
		TotalSuccessful: successful,
	}
}

func (s *BatchService) processOne(ctx context.Context, ref models.FileRef, userID string) (result models.IngestionResult) {
	doc := models.NewDocument(ref.FileName, ref.FilePath, userID)
	indexName := IndexNameFor(s.ingest.cfg, userID)

	// A panic while processing one document must not take down the pool.
	// No taxonomy kind fits an internal fault, so the result carries none.
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic during document ingestion",
				"file", ref.FileName, "panic", fmt.Sprint(r))
			result = models.IngestionResult{
				Success:   false,
				UploadID:  doc.UploadID,
				IndexName: indexName,
				FileName:  ref.FileName,
				Message:   "Internal error while processing document",
				Error:     fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	return s.ingest.Ingest(ctx, doc)
}
