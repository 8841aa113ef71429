// Package config loads service configuration from the environment into one
// explicit value object handed to every component at construction time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Data directory for the embedded index and citation blobs.
	DataDir string

	// Splitter knobs.
	MaxSectionLength    int
	SentenceSearchLimit int
	SectionOverlap      int

	// Extraction: "local" parsers or a remote "layout" service.
	Extractor string
	LayoutURL string
	LayoutKey string

	// Embeddings: "none", "mock", "ollama" or "openai".
	EmbedProvider    string
	EmbedBaseURL     string
	EmbedAPIKey      string
	EmbedModel       string
	EmbedDimensions  int
	EmbedTokenBudget int
	EmbedMaxBatch    int

	// Index backend: "sqlite" or "remote".
	IndexBackend  string
	IndexName     string
	IndexURL      string
	IndexAPIKey   string
	IndexAnalyzer string

	// Category label attached to every record; the categorizer, when
	// enabled, refines it per document.
	Category           string
	CategorizerEnabled bool
	CategorizerURL     string
	CategorizerKey     string
	CategorizerModel   string
	CategoryLabels     []string

	// Worker pool and job state.
	WorkerCount  int
	MaxQueueSize int
	JobTTL       time.Duration

	// Upload limits.
	MaxUploadBytes int64
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("DOCINDEX_API_KEY"),

		DataDir: envOr("DATA_DIR", "./data"),

		MaxSectionLength:    envInt("MAX_SECTION_LENGTH", 1000),
		SentenceSearchLimit: envInt("SENTENCE_SEARCH_LIMIT", 100),
		SectionOverlap:      envInt("SECTION_OVERLAP", 100),

		Extractor: envOr("EXTRACTOR", "local"),
		LayoutURL: os.Getenv("LAYOUT_URL"),
		LayoutKey: os.Getenv("LAYOUT_API_KEY"),

		EmbedProvider:    envOr("EMBED_PROVIDER", "none"),
		EmbedBaseURL:     envOr("EMBED_BASE_URL", "https://api.openai.com"),
		EmbedAPIKey:      os.Getenv("EMBED_API_KEY"),
		EmbedModel:       envOr("EMBED_MODEL", "text-embedding-ada-002"),
		EmbedDimensions:  envInt("EMBED_DIMENSIONS", 1536),
		EmbedTokenBudget: envInt("EMBED_TOKEN_BUDGET", 8100),
		EmbedMaxBatch:    envInt("EMBED_MAX_BATCH", 16),

		IndexBackend:  envOr("INDEX_BACKEND", "sqlite"),
		IndexName:     envOr("INDEX_NAME", "docindex"),
		IndexURL:      os.Getenv("INDEX_URL"),
		IndexAPIKey:   os.Getenv("INDEX_API_KEY"),
		IndexAnalyzer: envOr("INDEX_ANALYZER", "en.standard"),

		Category:           envOr("CATEGORY", "default"),
		CategorizerEnabled: envBool("CATEGORIZER_ENABLED", false),
		CategorizerURL:     os.Getenv("CATEGORIZER_URL"),
		CategorizerKey:     os.Getenv("CATEGORIZER_API_KEY"),
		CategorizerModel:   envOr("CATEGORIZER_MODEL", "gpt-4o-mini"),
		CategoryLabels:     envList("CATEGORY_LABELS", []string{"finance", "hr", "legal", "technical", "general"}),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),
		JobTTL:       envDuration("JOB_TTL", 1*time.Hour),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCINDEX_API_KEY is required")
	}
	if c.SectionOverlap >= c.MaxSectionLength {
		return fmt.Errorf("SECTION_OVERLAP (%d) must be smaller than MAX_SECTION_LENGTH (%d)", c.SectionOverlap, c.MaxSectionLength)
	}
	if c.SentenceSearchLimit <= 0 || c.MaxSectionLength <= 0 || c.SectionOverlap <= 0 {
		return fmt.Errorf("splitter knobs must be positive")
	}
	switch c.Extractor {
	case "local":
	case "layout":
		if c.LayoutURL == "" {
			return fmt.Errorf("EXTRACTOR=layout requires LAYOUT_URL")
		}
	default:
		return fmt.Errorf("unknown EXTRACTOR %q", c.Extractor)
	}
	switch c.EmbedProvider {
	case "none", "mock", "ollama":
	case "openai":
		if c.EmbedAPIKey == "" {
			return fmt.Errorf("EMBED_PROVIDER=openai requires EMBED_API_KEY")
		}
	default:
		return fmt.Errorf("unknown EMBED_PROVIDER %q", c.EmbedProvider)
	}
	if c.EmbedProvider != "none" && c.EmbedDimensions <= 0 {
		return fmt.Errorf("EMBED_DIMENSIONS must be positive when embeddings are enabled")
	}
	switch c.IndexBackend {
	case "sqlite":
	case "remote":
		if c.IndexURL == "" {
			return fmt.Errorf("INDEX_BACKEND=remote requires INDEX_URL")
		}
	default:
		return fmt.Errorf("unknown INDEX_BACKEND %q", c.IndexBackend)
	}
	if c.CategorizerEnabled && c.CategorizerURL == "" {
		return fmt.Errorf("CATEGORIZER_ENABLED requires CATEGORIZER_URL")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
