// Package index stores indexable section records and serves full-text,
// vector and hybrid queries over them. Two backends exist: an embedded
// SQLite store and a client for a remote search service.
package index

import (
	"context"

	"github.com/searchkit/docindex/internal/section"
)

// upsertBatchSize bounds how many records go to the backend per call.
const upsertBatchSize = 1000

// Query is one search request. Text drives full-text matching, Vector drives
// similarity matching; with both set the backend merges the two rankings.
type Query struct {
	Text     string
	Vector   []float32
	Top      int
	Category string // optional exact filter
}

// Hit is one scored search result.
type Hit struct {
	Record section.Record `json:"record"`
	Score  float32        `json:"score"`
}

// Source summarizes one indexed source file.
type Source struct {
	SourceFile string `json:"sourcefile"`
	Sections   int    `json:"sections"`
}

// Index is the search index boundary the pipeline writes to.
type Index interface {
	// Ensure creates the index schema when it does not exist yet.
	Ensure(ctx context.Context) error
	// Upsert writes records in batches, replacing records with equal IDs.
	Upsert(ctx context.Context, records []section.Record) error
	// Remove deletes every record of a source file and reports how many
	// went away. The name "*" clears the whole index.
	Remove(ctx context.Context, sourcefile string) (int, error)
	Search(ctx context.Context, q Query) ([]Hit, error)
	// Sources lists indexed source files with their section counts.
	Sources(ctx context.Context) ([]Source, error)
	Close() error
}

// Field describes one schema field of the search index.
type Field struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Key        bool   `json:"key,omitempty"`
	Searchable bool   `json:"searchable,omitempty"`
	Filterable bool   `json:"filterable,omitempty"`
	Facetable  bool   `json:"facetable,omitempty"`
	Analyzer   string `json:"analyzer,omitempty"`

	VectorDimensions int    `json:"vectorDimensions,omitempty"`
	VectorAlgorithm  string `json:"vectorAlgorithm,omitempty"`
	VectorMetric     string `json:"vectorMetric,omitempty"`
}

// Schema is the index definition sent to a remote search service on Ensure.
type Schema struct {
	Name            string  `json:"name"`
	Fields          []Field `json:"fields"`
	SemanticContent string  `json:"semanticContent,omitempty"`
}

// DefaultSchema returns the section-record schema: id as key, searchable
// content, filterable facets, and an HNSW cosine vector field of the given
// dimensionality.
func DefaultSchema(name, analyzer string, dims int) Schema {
	return Schema{
		Name: name,
		Fields: []Field{
			{Name: "id", Type: "string", Key: true},
			{Name: "content", Type: "string", Searchable: true, Analyzer: analyzer},
			{Name: "embedding", Type: "vector", VectorDimensions: dims, VectorAlgorithm: "hnsw", VectorMetric: "cosine"},
			{Name: "category", Type: "string", Filterable: true, Facetable: true},
			{Name: "sourcepage", Type: "string", Filterable: true, Facetable: true},
			{Name: "sourcefile", Type: "string", Filterable: true, Facetable: true},
		},
		SemanticContent: "content",
	}
}
