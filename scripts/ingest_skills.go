package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"alfredoptarigan/resumatch/internal/config"
	"alfredoptarigan/resumatch/internal/logger"
	"alfredoptarigan/resumatch/internal/services"
)

const defaultSkillDocsDir = "./reference_docs/skills"

// Loads skill taxonomies and synonym lists into Qdrant.
//
//	go run ./scripts/ingest_skills.go [file.pdf|file.docx ...]
//
// Without arguments every PDF and DOCX under ./reference_docs/skills is ingested.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.Qdrant.URL == "" {
		log.Fatal("QDRANT_URL is required for skill ingestion")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gemini, err := services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel, log)
	if err != nil {
		log.Fatal("failed to initialize gemini", zap.Error(err))
	}

	index, err := services.NewSkillIndex(cfg.Qdrant, log)
	if err != nil {
		log.Fatal("failed to initialize qdrant", zap.Error(err))
	}
	if err := index.EnsureCollection(ctx); err != nil {
		log.Fatal("failed to initialize skill collection", zap.Error(err))
	}

	files := os.Args[1:]
	if len(files) == 0 {
		files = discoverSkillDocs(defaultSkillDocsDir)
	}
	if len(files) == 0 {
		log.Fatal("no reference documents found", zap.String("dir", defaultSkillDocsDir))
	}

	ingester := services.NewSkillIngester(services.NewDocumentParser(), gemini, index, 4, log)

	var succeeded, failed int
	for _, path := range files {
		result, err := ingester.IngestFile(ctx, path)
		if err != nil {
			failed++
			log.Error("ingestion failed", zap.String("path", path), zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		succeeded++
		log.Info("ingested",
			zap.String("source", result.Source),
			zap.Int("chunks", result.Chunks),
			zap.Int("failed_chunks", result.Failed),
		)
	}

	log.Info("ingestion finished", zap.Int("succeeded", succeeded), zap.Int("failed", failed))
	if failed > 0 {
		os.Exit(1)
	}
}

func discoverSkillDocs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".pdf", ".docx":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files
}
