// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Connector: lists changes and fetches raw items from a source
//   - ConnectorFactory: creates connectors from source configuration
//   - Normaliser: converts raw payloads into canonical documents
//   - NormaliserRegistry: selects the normaliser for a content type
//   - PostProcessorPipeline: chunks normalised documents
//   - DocumentStore: document and chunk persistence
//   - SourceStore: source configuration persistence
//   - SyncStateStore / SyncRunStore: sync progress and history
//   - VectorIndex: vector storage and similarity search
//   - LexicalIndex: keyword search (SQLite FTS5 by default)
//   - EmbeddingProvider: generates vector embeddings
//   - EmbeddingCache: content-addressed vector cache
//   - BudgetStore: daily embedding quota ledger
//   - FeedbackStore: relevance signal persistence
//   - ConfigStore: application settings
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
