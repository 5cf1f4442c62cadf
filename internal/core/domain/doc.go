// Package domain defines the core business entities for Korpus.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Source: a configured content source with its sync cursor state
//   - RawItem: opaque payload fetched by a connector, never persisted
//   - Document: the canonical normalised unit derived from one RawItem
//   - Chunk: a retrieval-sized passage of a document, the unit of
//     embedding and indexing
//   - SyncRun: the record of one ingestion pass over a source
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
