package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"alfredoptarigan/resumatch/internal/logger"
)

// SkillIngester loads reference documents into the skill index. Chunks of one
// document are embedded by a fixed pool of workers.
type SkillIngester struct {
	parser      DocumentParser
	chunker     TextChunker
	embedder    GeminiService
	index       SkillIndex
	concurrency int
	chunkSize   int
	overlap     int
	logger      *zap.Logger
}

type IngestResult struct {
	Source string
	Chunks int
	Failed int
}

func NewSkillIngester(parser DocumentParser, embedder GeminiService, index SkillIndex, concurrency int, log *zap.Logger) *SkillIngester {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &SkillIngester{
		parser:      parser,
		chunker:     NewTextChunker(),
		embedder:    embedder,
		index:       index,
		concurrency: concurrency,
		chunkSize:   DefaultChunkSize,
		overlap:     DefaultChunkOverlap,
		logger:      logger.OrNop(log),
	}
}

// IngestFile replaces every chunk previously ingested from the same file name.
func (s *SkillIngester) IngestFile(ctx context.Context, path string) (*IngestResult, error) {
	text, err := s.parser.ExtractFile(path)
	if err != nil {
		return nil, err
	}

	source := filepath.Base(path)
	chunks := s.chunker.Chunk(text, s.chunkSize, s.overlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s: %w", source, ErrEmptyDocument)
	}

	if err := s.index.DeleteSource(ctx, source); err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String("source", source))
	log.Info("ingesting skill reference", zap.Int("chunks", len(chunks)), zap.Int("workers", s.concurrency))

	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failed   int
		firstErr error
	)

	for w := 0; w < s.concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				if err := s.ingestChunk(ctx, source, chunks[i]); err != nil {
					log.Warn("chunk ingestion failed", zap.Int("worker", workerID), zap.Int("chunk", i), zap.Error(err))
					mu.Lock()
					failed++
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}
		}(w + 1)
	}

feed:
	for i := range chunks {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &IngestResult{Source: source, Chunks: len(chunks), Failed: failed}
	if failed == len(chunks) {
		return result, fmt.Errorf("no chunks ingested from %s: %w", source, firstErr)
	}
	return result, nil
}

func (s *SkillIngester) ingestChunk(ctx context.Context, source, chunk string) error {
	embedding, err := s.embedder.GenerateEmbedding(ctx, chunk)
	if err != nil {
		return err
	}
	if len(embedding) == 0 {
		return errors.New("empty embedding")
	}
	return s.index.Upsert(ctx, source, chunk, embedding)
}
