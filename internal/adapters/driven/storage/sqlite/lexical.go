package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// lexicalIndex implements driven.LexicalIndex on the chunks_fts FTS5
// table. Filter columns are stored unindexed alongside the text so a
// query can restrict candidates without joining back to the metadata
// tables.
type lexicalIndex struct {
	store *Store
}

var _ driven.LexicalIndex = (*lexicalIndex)(nil)

// Index writes the chunks of one document, replacing earlier entries
// with the same chunk ids.
func (l *lexicalIndex) Index(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	tx, err := l.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	del, err := tx.PrepareContext(ctx, "DELETE FROM chunks_fts WHERE chunk_id = ?")
	if err != nil {
		return fmt.Errorf("preparing delete: %w", err)
	}
	defer del.Close()

	ins, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks_fts (chunk_id, content, source_id, language, category)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer ins.Close()

	for _, chunk := range chunks {
		if _, err := del.ExecContext(ctx, chunk.ID); err != nil {
			return fmt.Errorf("replacing indexed chunk: %w", err)
		}
		if _, err := ins.ExecContext(ctx, chunk.ID, chunk.Content,
			doc.SourceID, doc.Language, doc.Category); err != nil {
			return fmt.Errorf("indexing chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Delete removes entries by chunk id. Missing ids are not an error.
func (l *lexicalIndex) Delete(ctx context.Context, chunkIDs []string) error {
	tx, err := l.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM chunks_fts WHERE chunk_id = ?")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, id := range chunkIDs {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("deleting indexed chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Query returns the top-k keyword matches admitted by the filter,
// ranked by BM25.
func (l *lexicalIndex) Query(ctx context.Context, query string, filter driven.SearchFilter, k int) ([]driven.LexicalHit, error) {
	if k <= 0 {
		return nil, nil
	}
	match := ftsMatch(query)
	if match == "" {
		return nil, nil
	}

	sqlQuery := "SELECT chunk_id, bm25(chunks_fts) FROM chunks_fts WHERE chunks_fts MATCH ?"
	args := []any{match}
	sqlQuery += inFilter("source_id", filter.SourceIDs, &args)
	sqlQuery += inFilter("language", filter.Languages, &args)
	sqlQuery += inFilter("category", filter.Categories, &args)
	sqlQuery += " ORDER BY bm25(chunks_fts) LIMIT ?"
	args = append(args, k)

	rows, err := l.store.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("querying keyword index: %w", err)
	}
	defer rows.Close()

	var hits []driven.LexicalHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var hit driven.LexicalHit
		var rank float64
		if err := rows.Scan(&hit.ChunkID, &rank); err != nil {
			return nil, fmt.Errorf("scanning keyword hit: %w", err)
		}
		// bm25() reports better matches as more negative values;
		// flip the sign so higher is better, as the port promises.
		hit.Score = -rank
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keyword hits: %w", err)
	}

	return hits, nil
}

// ftsMatch turns free text into an FTS5 MATCH expression: each word
// becomes a quoted term, terms joined with OR so a chunk matching any
// of them ranks. Quoting keeps user punctuation from reading as FTS5
// operators.
func ftsMatch(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " OR ")
}

// inFilter appends an IN clause for the values, widening args in step.
// Empty values admit everything and add nothing.
func inFilter(column string, values []string, args *[]any) string {
	if len(values) == 0 {
		return ""
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	for _, v := range values {
		*args = append(*args, v)
	}
	return fmt.Sprintf(" AND %s IN (%s)", column, placeholders)
}
