package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/searchkit/docindex/internal/section"
)

// Hybrid ranking: reciprocal rank fusion over the keyword and vector result
// lists. Vector rank carries more weight than keyword rank.
const (
	rrfK          = 60
	keywordWeight = 0.3

	// hybridOverfetch widens each candidate list before fusion so a record
	// ranked well in only one list can still reach the merged top.
	hybridOverfetch = 4
)

// SQLite is an embedded Index backed by a local SQLite file. Full-text
// queries use an FTS5 shadow table kept in sync on every write; vector
// queries run brute-force cosine similarity in-process.
type SQLite struct {
	db  *sql.DB
	log *slog.Logger
}

var _ Index = (*SQLite)(nil)

// NewSQLite opens (or creates) the database file at path. A single shared
// connection serializes writers, avoiding SQLITE_BUSY under the worker pool.
func NewSQLite(path string, log *slog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &SQLite{db: db, log: log}, nil
}

func (s *SQLite) Ensure(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS sections (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			sourcepage TEXT NOT NULL,
			sourcefile TEXT NOT NULL,
			embedding TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sections_sourcefile ON sections(sourcefile)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS sections_fts USING fts5(section_id UNINDEXED, content)`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
	}
	return nil
}

func (s *SQLite) Upsert(ctx context.Context, records []section.Record) error {
	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.upsertBatch(ctx, records[start:end]); err != nil {
			return err
		}
		s.log.Info("indexed sections", "count", end-start, "total", len(records))
	}
	return nil
}

func (s *SQLite) upsertBatch(ctx context.Context, records []section.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		var embJSON *string
		if len(rec.Embedding) > 0 {
			v := serializeEmbedding(rec.Embedding)
			embJSON = &v
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO sections (id, content, category, sourcepage, sourcefile, embedding)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Content, rec.Category, rec.SourcePage, rec.SourceFile, embJSON,
		)
		if err != nil {
			return fmt.Errorf("insert section %s: %w", rec.ID, err)
		}

		// Keep the FTS index in sync.
		if _, err := tx.ExecContext(ctx, `DELETE FROM sections_fts WHERE section_id = ?`, rec.ID); err != nil {
			return fmt.Errorf("clear section fts %s: %w", rec.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO sections_fts(section_id, content) VALUES (?, ?)`, rec.ID, rec.Content); err != nil {
			return fmt.Errorf("insert section fts %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLite) Remove(ctx context.Context, sourcefile string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var res sql.Result
	if sourcefile == "*" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sections_fts`); err != nil {
			return 0, fmt.Errorf("clear fts: %w", err)
		}
		res, err = tx.ExecContext(ctx, `DELETE FROM sections`)
	} else {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM sections_fts WHERE section_id IN (SELECT id FROM sections WHERE sourcefile = ?)`,
			sourcefile); err != nil {
			return 0, fmt.Errorf("clear fts: %w", err)
		}
		res, err = tx.ExecContext(ctx, `DELETE FROM sections WHERE sourcefile = ?`, sourcefile)
	}
	if err != nil {
		return 0, fmt.Errorf("delete sections: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return int(n), nil
}

func (s *SQLite) Search(ctx context.Context, q Query) ([]Hit, error) {
	top := q.Top
	if top <= 0 {
		top = 10
	}
	hasText := q.Text != ""
	hasVector := len(q.Vector) > 0

	switch {
	case hasText && hasVector:
		fetch := top * hybridOverfetch
		keyword, err := s.searchKeyword(ctx, q.Text, fetch, q.Category)
		if err != nil {
			return nil, err
		}
		vector, err := s.searchVector(ctx, q.Vector, fetch, q.Category)
		if err != nil {
			return nil, err
		}
		hits := fuseRanks(vector, keyword)
		if len(hits) > top {
			hits = hits[:top]
		}
		return hits, nil
	case hasVector:
		return s.searchVector(ctx, q.Vector, top, q.Category)
	case hasText:
		return s.searchKeyword(ctx, q.Text, top, q.Category)
	default:
		return nil, fmt.Errorf("search: query needs text or a vector")
	}
}

func (s *SQLite) searchKeyword(ctx context.Context, query string, top int, category string) ([]Hit, error) {
	stmt := `SELECT s.id, s.content, s.category, s.sourcepage, s.sourcefile, f.rank
		FROM sections_fts f
		JOIN sections s ON s.id = f.section_id
		WHERE sections_fts MATCH ?`
	args := []any{query}
	if category != "" {
		stmt += ` AND s.category = ?`
		args = append(args, category)
	}
	stmt += ` ORDER BY f.rank LIMIT ?`
	args = append(args, top)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var rec section.Record
		var rank float64
		if err := rows.Scan(&rec.ID, &rec.Content, &rec.Category, &rec.SourcePage, &rec.SourceFile, &rank); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		// FTS5 rank is negative, closer to zero is better.
		score := float32(-rank)
		if score < 0 {
			score = 0
		}
		hits = append(hits, Hit{Record: rec, Score: score})
	}
	return hits, rows.Err()
}

func (s *SQLite) searchVector(ctx context.Context, vector []float32, top int, category string) ([]Hit, error) {
	stmt := `SELECT id, content, category, sourcepage, sourcefile, embedding
		FROM sections WHERE embedding IS NOT NULL`
	var args []any
	if category != "" {
		stmt += ` AND category = ?`
		args = append(args, category)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var rec section.Record
		var embJSON string
		if err := rows.Scan(&rec.ID, &rec.Content, &rec.Category, &rec.SourcePage, &rec.SourceFile, &embJSON); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		stored, err := deserializeEmbedding(embJSON)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{Record: rec, Score: cosineSimilarity(vector, stored)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hits: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > top {
		hits = hits[:top]
	}
	return hits, nil
}

// fuseRanks merges the vector and keyword rankings with reciprocal rank
// fusion. A record present in both lists accumulates both contributions; the
// record payload comes from whichever list saw it first.
func fuseRanks(vector, keyword []Hit) []Hit {
	type entry struct {
		hit   Hit
		score float32
	}
	byID := make(map[string]*entry)
	order := make([]string, 0, len(vector)+len(keyword))

	add := func(hits []Hit, weight float32) {
		for rank, h := range hits {
			e, ok := byID[h.Record.ID]
			if !ok {
				e = &entry{hit: h}
				byID[h.Record.ID] = e
				order = append(order, h.Record.ID)
			}
			e.score += weight / float32(rrfK+rank+1)
		}
	}
	add(vector, 1-keywordWeight)
	add(keyword, keywordWeight)

	fused := make([]Hit, 0, len(order))
	for _, id := range order {
		e := byID[id]
		e.hit.Score = e.score
		fused = append(fused, e.hit)
	}
	sort.Slice(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	return fused
}

func (s *SQLite) Sources(ctx context.Context) ([]Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sourcefile, COUNT(*) FROM sections GROUP BY sourcefile ORDER BY sourcefile`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.SourceFile, &src.Sections); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func serializeEmbedding(embedding []float32) string {
	data, _ := json.Marshal(embedding)
	return string(data)
}

func deserializeEmbedding(s string) ([]float32, error) {
	var embedding []float32
	if err := json.Unmarshal([]byte(s), &embedding); err != nil {
		return nil, err
	}
	return embedding, nil
}
