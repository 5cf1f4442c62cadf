package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/korpus/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// Store is a unified SQLite-based storage that provides access to all
// metadata store interfaces through wrapper types. The same database
// also carries the FTS5 keyword index, so lexical search and metadata
// share one file and one transaction domain.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.korpus/data/korpus.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".korpus", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "korpus.db")

	// WAL keeps readers unblocked while a sync writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SourceStore returns a SourceStore interface backed by this store.
func (s *Store) SourceStore() driven.SourceStore {
	return &sourceStore{store: s}
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// SyncStateStore returns a SyncStateStore interface backed by this store.
func (s *Store) SyncStateStore() driven.SyncStateStore {
	return &syncStateStore{store: s}
}

// SyncRunStore returns a SyncRunStore interface backed by this store.
func (s *Store) SyncRunStore() driven.SyncRunStore {
	return &syncRunStore{store: s}
}

// FeedbackStore returns a FeedbackStore interface backed by this store.
func (s *Store) FeedbackStore() driven.FeedbackStore {
	return &feedbackStore{store: s}
}

// BudgetStore returns a BudgetStore interface backed by this store.
// The daily allowance is resolved once from the policy for the given
// principal and role; the per-day ledger lives in the database.
func (s *Store) BudgetStore(policy domain.BudgetPolicy, principal, role string) driven.BudgetStore {
	return &budgetStore{store: s, allowance: policy.Allowance(principal, role)}
}

// EmbeddingCache returns an EmbeddingCache interface backed by this store.
func (s *Store) EmbeddingCache() driven.EmbeddingCache {
	return &embeddingCache{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// LexicalIndex returns the FTS5-backed LexicalIndex.
func (s *Store) LexicalIndex() driven.LexicalIndex {
	return &lexicalIndex{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Source Store ====================

// sourceStore implements driven.SourceStore.
type sourceStore struct {
	store *Store
}

var _ driven.SourceStore = (*sourceStore)(nil)

// Save stores or updates a source.
func (s *sourceStore) Save(ctx context.Context, source domain.Source) error {
	configJSON, err := json.Marshal(source.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	languagesJSON, err := json.Marshal(source.Languages)
	if err != nil {
		return fmt.Errorf("marshalling languages: %w", err)
	}
	categoriesJSON, err := json.Marshal(source.Categories)
	if err != nil {
		return fmt.Errorf("marshalling categories: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sources (id, type, name, config, languages, categories, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			name = excluded.name,
			config = excluded.config,
			languages = excluded.languages,
			categories = excluded.categories,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`, source.ID, source.Type, source.Name, string(configJSON),
		string(languagesJSON), string(categoriesJSON), source.Enabled,
		source.CreatedAt, source.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving source: %w", err)
	}
	return nil
}

// Get retrieves a source by ID.
func (s *sourceStore) Get(ctx context.Context, id string) (*domain.Source, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, type, name, config, languages, categories, enabled, created_at, updated_at
		FROM sources WHERE id = ?
	`, id)

	return scanSource(row)
}

// Delete removes a source.
func (s *sourceStore) Delete(ctx context.Context, id string) error {
	result, err := s.store.db.ExecContext(ctx, "DELETE FROM sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns all sources ordered by name.
func (s *sourceStore) List(ctx context.Context) ([]domain.Source, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, type, name, config, languages, categories, enabled, created_at, updated_at
		FROM sources ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source //nolint:prealloc // size unknown from query
	for rows.Next() {
		source, err := scanSourceRows(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sources: %w", err)
	}

	return sources, nil
}

// scanSource scans a single source row.
func scanSource(row *sql.Row) (*domain.Source, error) {
	var source domain.Source
	var configJSON, languagesJSON, categoriesJSON string
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&source.ID, &source.Type, &source.Name, &configJSON,
		&languagesJSON, &categoriesJSON, &source.Enabled, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning source: %w", err)
	}

	if err := unmarshalSourceFields(&source, configJSON, languagesJSON, categoriesJSON); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		source.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		source.UpdatedAt = updatedAt.Time
	}
	return &source, nil
}

// scanSourceRows scans one source from a multi-row result.
func scanSourceRows(rows *sql.Rows) (*domain.Source, error) {
	var source domain.Source
	var configJSON, languagesJSON, categoriesJSON string
	var createdAt, updatedAt sql.NullTime
	if err := rows.Scan(&source.ID, &source.Type, &source.Name, &configJSON,
		&languagesJSON, &categoriesJSON, &source.Enabled, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scanning source: %w", err)
	}

	if err := unmarshalSourceFields(&source, configJSON, languagesJSON, categoriesJSON); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		source.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		source.UpdatedAt = updatedAt.Time
	}
	return &source, nil
}

// unmarshalSourceFields decodes the JSON-encoded source columns.
func unmarshalSourceFields(source *domain.Source, configJSON, languagesJSON, categoriesJSON string) error {
	if err := json.Unmarshal([]byte(configJSON), &source.Config); err != nil {
		return fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := json.Unmarshal([]byte(languagesJSON), &source.Languages); err != nil {
		return fmt.Errorf("unmarshalling languages: %w", err)
	}
	if err := json.Unmarshal([]byte(categoriesJSON), &source.Categories); err != nil {
		return fmt.Errorf("unmarshalling categories: %w", err)
	}
	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, source_id, external_id, uri, title, author, language,
			category, content, content_hash, version, indexed_version, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			external_id = excluded.external_id,
			uri = excluded.uri,
			title = excluded.title,
			author = excluded.author,
			language = excluded.language,
			category = excluded.category,
			content = excluded.content,
			content_hash = excluded.content_hash,
			version = excluded.version,
			indexed_version = excluded.indexed_version,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, doc.ID, doc.SourceID, doc.ExternalID, doc.URI, doc.Title, doc.Author,
		doc.Language, doc.Category, doc.Content, doc.ContentHash,
		doc.Version, doc.IndexedVersion, string(metadataJSON),
		doc.CreatedAt, doc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, source_id, external_id, uri, title, author, language,
			category, content, content_hash, version, indexed_version, metadata, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	return scanDocument(row)
}

// DeleteDocument removes a document. Chunks go with it via the foreign
// key cascade.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ListDocuments returns documents for a source. Empty sourceID lists all.
func (s *documentStore) ListDocuments(ctx context.Context, sourceID string) ([]domain.Document, error) {
	query := `
		SELECT id, source_id, external_id, uri, title, author, language,
			category, content, content_hash, version, indexed_version, metadata, created_at, updated_at
		FROM documents`
	var args []any
	if sourceID != "" {
		query += " WHERE source_id = ?"
		args = append(args, sourceID)
	}
	query += " ORDER BY id"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// ListDocumentIDs returns document ids for a source. Empty sourceID
// lists all.
func (s *documentStore) ListDocumentIDs(ctx context.Context, sourceID string) ([]string, error) {
	query := "SELECT id FROM documents"
	var args []any
	if sourceID != "" {
		query += " WHERE source_id = ?"
		args = append(args, sourceID)
	}
	query += " ORDER BY id"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying document ids: %w", err)
	}
	defer rows.Close()

	var ids []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning document id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document ids: %w", err)
	}

	return ids, nil
}

// CountDocuments returns the number of documents for a source. Empty
// sourceID counts all.
func (s *documentStore) CountDocuments(ctx context.Context, sourceID string) (int, error) {
	query := "SELECT COUNT(*) FROM documents"
	var args []any
	if sourceID != "" {
		query += " WHERE source_id = ?"
		args = append(args, sourceID)
	}

	var count int
	row := s.store.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// SaveChunks stores or updates chunks by id.
func (s *documentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, version, ordinal, content, token_count, start_token, end_token, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			version = excluded.version,
			ordinal = excluded.ordinal,
			content = excluded.content,
			token_count = excluded.token_count,
			start_token = excluded.start_token,
			end_token = excluded.end_token,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		embeddingBlob := float32SliceToBytes(chunk.Embedding)

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Version,
			chunk.Ordinal, chunk.Content, chunk.TokenCount, chunk.StartToken,
			chunk.EndToken, embeddingBlob); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *documentStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, document_id, version, ordinal, content, token_count, start_token, end_token, embedding
		FROM chunks WHERE id = ?
	`, id)

	return scanChunkRow(row)
}

// GetChunks returns a document's chunks ordered by ordinal.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, version, ordinal, content, token_count, start_token, end_token, embedding
		FROM chunks WHERE document_id = ?
		ORDER BY ordinal
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// ChunkIDsOtherVersions returns ids of the document's chunks whose
// version differs from the given one.
func (s *documentStore) ChunkIDsOtherVersions(ctx context.Context, documentID string, version int64) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id FROM chunks
		WHERE document_id = ? AND version != ?
		ORDER BY id
	`, documentID, version)
	if err != nil {
		return nil, fmt.Errorf("querying stale chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chunk id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk ids: %w", err)
	}

	return ids, nil
}

// DeleteChunks removes chunks by id.
func (s *documentStore) DeleteChunks(ctx context.Context, ids []string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM chunks WHERE id = ?")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("deleting chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var metadataJSON sql.NullString
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&doc.ID, &doc.SourceID, &doc.ExternalID, &doc.URI, &doc.Title,
		&doc.Author, &doc.Language, &doc.Category, &doc.Content, &doc.ContentHash,
		&doc.Version, &doc.IndexedVersion, &metadataJSON, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if metadataJSON.Valid && metadataJSON.String != jsonNull {
		if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
	}
	if createdAt.Valid {
		doc.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		doc.UpdatedAt = updatedAt.Time
	}
	return &doc, nil
}

// scanDocumentRows scans one document from a multi-row result.
func scanDocumentRows(rows *sql.Rows) (*domain.Document, error) {
	var doc domain.Document
	var metadataJSON sql.NullString
	var createdAt, updatedAt sql.NullTime
	if err := rows.Scan(&doc.ID, &doc.SourceID, &doc.ExternalID, &doc.URI, &doc.Title,
		&doc.Author, &doc.Language, &doc.Category, &doc.Content, &doc.ContentHash,
		&doc.Version, &doc.IndexedVersion, &metadataJSON, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if metadataJSON.Valid && metadataJSON.String != jsonNull {
		if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
	}
	if createdAt.Valid {
		doc.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		doc.UpdatedAt = updatedAt.Time
	}
	return &doc, nil
}

// scanChunk scans one chunk from a multi-row result.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embeddingBlob []byte
	if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Version, &chunk.Ordinal,
		&chunk.Content, &chunk.TokenCount, &chunk.StartToken, &chunk.EndToken,
		&embeddingBlob); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	return &chunk, nil
}

// scanChunkRow scans a single chunk row.
func scanChunkRow(row *sql.Row) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embeddingBlob []byte
	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Version, &chunk.Ordinal,
		&chunk.Content, &chunk.TokenCount, &chunk.StartToken, &chunk.EndToken,
		&embeddingBlob); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	return &chunk, nil
}

// ==================== Sync State Store ====================

// syncStateStore implements driven.SyncStateStore.
type syncStateStore struct {
	store *Store
}

var _ driven.SyncStateStore = (*syncStateStore)(nil)

// Save stores or updates sync state.
func (s *syncStateStore) Save(ctx context.Context, state domain.SyncState) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_states (source_id, cursor, last_sync, last_full)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			cursor = excluded.cursor,
			last_sync = excluded.last_sync,
			last_full = excluded.last_full
	`, state.SourceID, state.Cursor, state.LastSync, state.LastFull)

	if err != nil {
		return fmt.Errorf("saving sync state: %w", err)
	}
	return nil
}

// Get retrieves sync state for a source.
func (s *syncStateStore) Get(ctx context.Context, sourceID string) (*domain.SyncState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source_id, cursor, last_sync, last_full
		FROM sync_states WHERE source_id = ?
	`, sourceID)

	var state domain.SyncState
	var lastSync, lastFull sql.NullTime
	if err := row.Scan(&state.SourceID, &state.Cursor, &lastSync, &lastFull); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning sync state: %w", err)
	}

	if lastSync.Valid {
		state.LastSync = lastSync.Time
	}
	if lastFull.Valid {
		state.LastFull = lastFull.Time
	}

	return &state, nil
}

// Delete removes sync state for a source.
func (s *syncStateStore) Delete(ctx context.Context, sourceID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM sync_states WHERE source_id = ?", sourceID)
	if err != nil {
		return fmt.Errorf("deleting sync state: %w", err)
	}
	return nil
}

// ==================== Sync Run Store ====================

// syncRunStore implements driven.SyncRunStore.
type syncRunStore struct {
	store *Store
}

var _ driven.SyncRunStore = (*syncRunStore)(nil)

// Save stores or updates a run.
func (s *syncRunStore) Save(ctx context.Context, run *domain.SyncRun) error {
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("marshalling stats: %w", err)
	}
	failuresJSON, err := json.Marshal(run.Failures)
	if err != nil {
		return fmt.Errorf("marshalling failures: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, source_id, mode, status, started_at, ended_at, stats, failures, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			mode = excluded.mode,
			status = excluded.status,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			stats = excluded.stats,
			failures = excluded.failures,
			error = excluded.error
	`, run.ID, run.SourceID, run.Mode, run.Status, run.StartedAt, run.EndedAt,
		string(statsJSON), string(failuresJSON), run.Error)

	if err != nil {
		return fmt.Errorf("saving sync run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *syncRunStore) Get(ctx context.Context, id string) (*domain.SyncRun, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, source_id, mode, status, started_at, ended_at, stats, failures, error
		FROM sync_runs WHERE id = ?
	`, id)

	return scanSyncRun(row)
}

// Latest returns a source's most recent run by start time.
func (s *syncRunStore) Latest(ctx context.Context, sourceID string) (*domain.SyncRun, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, source_id, mode, status, started_at, ended_at, stats, failures, error
		FROM sync_runs WHERE source_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`, sourceID)

	return scanSyncRun(row)
}

// ListBySource returns a source's runs, newest first.
func (s *syncRunStore) ListBySource(ctx context.Context, sourceID string, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = -1 // no LIMIT
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, source_id, mode, status, started_at, ended_at, stats, failures, error
		FROM sync_runs WHERE source_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanSyncRunRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync runs: %w", err)
	}

	return runs, nil
}

// Prune drops all but the newest keep runs per source.
func (s *syncRunStore) Prune(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}

	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM sync_runs WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY source_id ORDER BY started_at DESC, id DESC
				) AS pos
				FROM sync_runs
			)
			WHERE pos > ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning sync runs: %w", err)
	}
	return nil
}

// scanSyncRun scans a single sync run row.
func scanSyncRun(row *sql.Row) (*domain.SyncRun, error) {
	var run domain.SyncRun
	var statsJSON, failuresJSON string
	var startedAt, endedAt sql.NullTime
	if err := row.Scan(&run.ID, &run.SourceID, &run.Mode, &run.Status,
		&startedAt, &endedAt, &statsJSON, &failuresJSON, &run.Error); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning sync run: %w", err)
	}

	if err := json.Unmarshal([]byte(statsJSON), &run.Stats); err != nil {
		return nil, fmt.Errorf("unmarshalling stats: %w", err)
	}
	if failuresJSON != jsonNull {
		if err := json.Unmarshal([]byte(failuresJSON), &run.Failures); err != nil {
			return nil, fmt.Errorf("unmarshalling failures: %w", err)
		}
	}
	if startedAt.Valid {
		run.StartedAt = startedAt.Time
	}
	if endedAt.Valid {
		run.EndedAt = endedAt.Time
	}
	return &run, nil
}

// scanSyncRunRows scans one sync run from a multi-row result.
func scanSyncRunRows(rows *sql.Rows) (*domain.SyncRun, error) {
	var run domain.SyncRun
	var statsJSON, failuresJSON string
	var startedAt, endedAt sql.NullTime
	if err := rows.Scan(&run.ID, &run.SourceID, &run.Mode, &run.Status,
		&startedAt, &endedAt, &statsJSON, &failuresJSON, &run.Error); err != nil {
		return nil, fmt.Errorf("scanning sync run: %w", err)
	}

	if err := json.Unmarshal([]byte(statsJSON), &run.Stats); err != nil {
		return nil, fmt.Errorf("unmarshalling stats: %w", err)
	}
	if failuresJSON != jsonNull {
		if err := json.Unmarshal([]byte(failuresJSON), &run.Failures); err != nil {
			return nil, fmt.Errorf("unmarshalling failures: %w", err)
		}
	}
	if startedAt.Valid {
		run.StartedAt = startedAt.Time
	}
	if endedAt.Valid {
		run.EndedAt = endedAt.Time
	}
	return &run, nil
}

// ==================== Feedback Store ====================

// feedbackStore implements driven.FeedbackStore.
type feedbackStore struct {
	store *Store
}

var _ driven.FeedbackStore = (*feedbackStore)(nil)

// Save appends one feedback record.
func (s *feedbackStore) Save(ctx context.Context, fb *domain.Feedback) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO feedback (id, chunk_id, document_id, query, signal, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, fb.ID, fb.ChunkID, fb.DocumentID, fb.Query, fb.Signal, fb.RecordedAt)

	if err != nil {
		return fmt.Errorf("saving feedback: %w", err)
	}
	return nil
}

// List returns the newest records, at most limit.
func (s *feedbackStore) List(ctx context.Context, limit int) ([]domain.Feedback, error) {
	if limit <= 0 {
		limit = -1 // no LIMIT
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, chunk_id, document_id, query, signal, recorded_at
		FROM feedback
		ORDER BY recorded_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	var records []domain.Feedback //nolint:prealloc // size unknown from query
	for rows.Next() {
		var fb domain.Feedback
		var recordedAt sql.NullTime
		if err := rows.Scan(&fb.ID, &fb.ChunkID, &fb.DocumentID, &fb.Query,
			&fb.Signal, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		if recordedAt.Valid {
			fb.RecordedAt = recordedAt.Time
		}
		records = append(records, fb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feedback: %w", err)
	}

	return records, nil
}

// ==================== Budget Store ====================

// budgetStore implements driven.BudgetStore over a per-day token ledger.
type budgetStore struct {
	store     *Store
	allowance int64
}

var _ driven.BudgetStore = (*budgetStore)(nil)

// Remaining returns the allowance left for the day, negative for
// unlimited.
func (b *budgetStore) Remaining(ctx context.Context, day string) (int64, error) {
	if domain.Unlimited(b.allowance) {
		return -1, nil
	}

	var spent int64
	row := b.store.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(tokens), 0) FROM budget_ledger WHERE day = ?", day)
	if err := row.Scan(&spent); err != nil {
		return 0, fmt.Errorf("scanning budget ledger: %w", err)
	}

	left := b.allowance - spent
	if left < 0 {
		left = 0
	}
	return left, nil
}

// Spend records token usage against the day's ledger.
func (b *budgetStore) Spend(ctx context.Context, day string, tokens int64) error {
	_, err := b.store.db.ExecContext(ctx, `
		INSERT INTO budget_ledger (day, tokens)
		VALUES (?, ?)
		ON CONFLICT(day) DO UPDATE SET tokens = tokens + excluded.tokens
	`, day, tokens)

	if err != nil {
		return fmt.Errorf("recording spend: %w", err)
	}
	return nil
}

// ==================== Embedding Cache ====================

// embeddingCache implements driven.EmbeddingCache.
type embeddingCache struct {
	store *Store
}

var _ driven.EmbeddingCache = (*embeddingCache)(nil)

// Get returns cached vectors for the given chunk ids. Missing ids are
// simply absent from the result.
func (c *embeddingCache) Get(ctx context.Context, model string, chunkIDs []string) (map[string][]float32, error) {
	stmt, err := c.store.db.PrepareContext(ctx,
		"SELECT vector FROM embedding_cache WHERE model = ? AND chunk_id = ?")
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	result := make(map[string][]float32, len(chunkIDs))
	for _, id := range chunkIDs {
		var blob []byte
		err := stmt.QueryRowContext(ctx, model, id).Scan(&blob)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scanning cached vector: %w", err)
		}
		result[id] = bytesToFloat32Slice(blob)
	}

	return result, nil
}

// Put stores one chunk's vector under the model's namespace.
func (c *embeddingCache) Put(ctx context.Context, model string, chunkID string, vector []float32) error {
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO embedding_cache (model, chunk_id, vector)
		VALUES (?, ?, ?)
		ON CONFLICT(model, chunk_id) DO UPDATE SET vector = excluded.vector
	`, model, chunkID, float32SliceToBytes(vector))

	if err != nil {
		return fmt.Errorf("caching vector: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// float32SliceToBytes converts a float32 slice to a little-endian byte
// slice for BLOB storage.
func float32SliceToBytes(floats []float32) []byte {
	if floats == nil {
		return nil
	}
	bytes := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(bytes[i*4:], math.Float32bits(f))
	}
	return bytes
}

// bytesToFloat32Slice converts a byte slice back to a float32 slice.
func bytesToFloat32Slice(bytes []byte) []float32 {
	if len(bytes) == 0 {
		return nil
	}
	floats := make([]float32, len(bytes)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(bytes[i*4:]))
	}
	return floats
}
