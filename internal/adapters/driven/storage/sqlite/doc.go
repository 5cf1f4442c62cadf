// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - SourceStore: source configuration persistence
//   - DocumentStore: document and chunk persistence, including version tracking
//   - SyncStateStore / SyncRunStore: sync cursors and run history
//   - FeedbackStore: appended relevance signals
//   - BudgetStore: the per-day embedding token ledger
//   - EmbeddingCache: chunk vectors keyed by model and chunk id
//   - SchedulerStore: sweep tasks and a bounded result history
//   - LexicalIndex: BM25 keyword search over the chunks_fts FTS5 table
//
// # Schema
//
// The database schema is managed through versioned migrations embedded from the
// migrations/ directory and applied in order at startup.
//
// # Data Location
//
// By default, the database is stored at ~/.korpus/data/korpus.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
