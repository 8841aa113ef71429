// Package section turns split document text into indexable records: stable
// IDs, source metadata and optional embedding vectors.
package section

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/searchkit/docindex/internal/embed"
	"github.com/searchkit/docindex/internal/splitter"
)

// Record is one indexable unit of a source document.
type Record struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	SourcePage string    `json:"sourcepage"`
	SourceFile string    `json:"sourcefile"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

var idUnsafe = regexp.MustCompile(`[^0-9a-zA-Z_-]`)

// FileID returns the deterministic identifier prefix for a source file. The
// readable part keeps only ID-safe characters; the hex suffix of the raw
// name makes the result collision-free and reversible.
func FileID(filename string) string {
	safe := idUnsafe.ReplaceAllString(filename, "_")
	return fmt.Sprintf("file-%s-%X", safe, []byte(filename))
}

// BlobName returns the citation blob name for a page of a source file. PDFs
// get a synthetic per-page name; other formats cite the whole file.
func BlobName(filename string, page int) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	if strings.EqualFold(ext, ".pdf") {
		return fmt.Sprintf("%s-%d.pdf", strings.TrimSuffix(base, ext), page)
	}
	return base
}

// Builder assembles Records from split sections. With an Embedder set, each
// record carries an embedding vector; a provider failure aborts the whole
// file so a document is never indexed half-vectorized.
type Builder struct {
	Category string
	Embedder embed.Provider // nil disables embeddings
	Batcher  *embed.Batcher // nil disables the batch path
}

// Build creates one record per section, embedding section texts one call at
// a time.
func (b *Builder) Build(ctx context.Context, filename string, sections []splitter.Section) ([]Record, error) {
	records := b.assemble(filename, sections)
	if b.Embedder == nil {
		return records, nil
	}
	for i := range records {
		vec, err := b.Embedder.Embed(ctx, records[i].Content)
		if err != nil {
			return nil, fmt.Errorf("embed section %d of %s: %w", i, filename, err)
		}
		records[i].Embedding = vec
	}
	return records, nil
}

// BuildBatch creates one record per section, embedding all section texts
// through the batcher. Falls back to Build when no batcher is configured.
func (b *Builder) BuildBatch(ctx context.Context, filename string, sections []splitter.Section) ([]Record, error) {
	if b.Embedder == nil || b.Batcher == nil {
		return b.Build(ctx, filename, sections)
	}
	records := b.assemble(filename, sections)
	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Content
	}
	vecs, err := b.Batcher.EmbedAll(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("batch embed %s: %w", filename, err)
	}
	if len(vecs) != len(records) {
		return nil, fmt.Errorf("batch embed %s: got %d vectors for %d sections", filename, len(vecs), len(records))
	}
	for i := range records {
		records[i].Embedding = vecs[i]
	}
	return records, nil
}

func (b *Builder) assemble(filename string, sections []splitter.Section) []Record {
	base := filepath.Base(filename)
	fileID := FileID(base)
	records := make([]Record, 0, len(sections))
	for i, sec := range sections {
		records = append(records, Record{
			ID:         fmt.Sprintf("%s-page-%d", fileID, i),
			Content:    sec.Text,
			Category:   b.Category,
			SourcePage: BlobName(base, sec.Page),
			SourceFile: base,
		})
	}
	return records
}
