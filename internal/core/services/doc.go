// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The write path runs Sync -> Connector -> Normaliser -> Chunker ->
// Embedder -> Indexer; the read path runs Retrieval -> vector index +
// lexical index -> fused ranking.
package services
