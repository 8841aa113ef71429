package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/searchkit/docindex/internal/api"
	"github.com/searchkit/docindex/internal/blob"
	"github.com/searchkit/docindex/internal/categorize"
	"github.com/searchkit/docindex/internal/config"
	"github.com/searchkit/docindex/internal/embed"
	"github.com/searchkit/docindex/internal/index"
	"github.com/searchkit/docindex/internal/layout"
	"github.com/searchkit/docindex/internal/pipeline"
	"github.com/searchkit/docindex/internal/section"
	"github.com/searchkit/docindex/internal/splitter"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Embedding provider. "none" leaves the index keyword-only.
	var embedder embed.Provider
	if cfg.EmbedProvider != "none" {
		p, err := embed.New(cfg.EmbedProvider, cfg.EmbedBaseURL, cfg.EmbedAPIKey, cfg.EmbedModel, cfg.EmbedDimensions)
		if err != nil {
			log.Error("embedding provider", "error", err)
			os.Exit(1)
		}
		embedder = embed.WithRetry(p)
	}

	// Search index backend.
	var idx index.Index
	var err error
	switch cfg.IndexBackend {
	case "remote":
		schema := index.DefaultSchema(cfg.IndexName, cfg.IndexAnalyzer, cfg.EmbedDimensions)
		idx = index.NewRemote(cfg.IndexURL, cfg.IndexAPIKey, schema)
	default:
		idx, err = index.NewSQLite(filepath.Join(cfg.DataDir, cfg.IndexName+".db"), log.With("component", "index"))
		if err != nil {
			log.Error("open index", "error", err)
			os.Exit(1)
		}
	}
	if err := idx.Ensure(ctx); err != nil {
		log.Error("ensure index", "error", err)
		os.Exit(1)
	}

	// Citation blob store.
	blobs, err := blob.NewFSStore(filepath.Join(cfg.DataDir, "blobs"))
	if err != nil {
		log.Error("open blob store", "error", err)
		os.Exit(1)
	}

	// Optional remote services.
	var layoutClient *layout.Client
	if cfg.Extractor == "layout" {
		layoutClient = layout.NewClient(cfg.LayoutURL, cfg.LayoutKey)
	}
	var categorizer *categorize.Client
	if cfg.CategorizerEnabled {
		categorizer = categorize.NewClient(cfg.CategorizerURL, cfg.CategorizerKey, cfg.CategorizerModel, cfg.CategoryLabels, cfg.Category)
	}

	builder := &section.Builder{
		Category: cfg.Category,
		Embedder: embedder,
	}
	if embedder != nil {
		builder.Batcher = embed.NewBatcher(embedder, cfg.EmbedTokenBudget, cfg.EmbedMaxBatch)
	}

	splitCfg := splitter.Config{
		MaxSectionLength:    cfg.MaxSectionLength,
		SentenceSearchLimit: cfg.SentenceSearchLimit,
		SectionOverlap:      cfg.SectionOverlap,
	}

	worker := pipeline.NewWorker(layoutClient, categorizer, builder, idx, blobs, splitCfg, log.With("component", "pipeline"))
	orch := pipeline.NewOrchestrator(cfg, worker, idx, blobs, log.With("component", "pipeline"))
	orch.Start(ctx)

	srv := api.NewServer(orch, embedder, log.With("component", "api"), cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		idx.Close()
	}()

	log.Info("starting docindex", "port", cfg.Port, "index_backend", cfg.IndexBackend, "embed_provider", cfg.EmbedProvider)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
