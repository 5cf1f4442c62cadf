package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ChangeKind classifies an upstream change.
type ChangeKind int

// Change kinds.
const (
	// ChangeUpsert means the item was created or modified upstream.
	ChangeUpsert ChangeKind = iota

	// ChangeDelete means the item was removed upstream.
	ChangeDelete
)

// String returns the string representation.
func (k ChangeKind) String() string {
	switch k {
	case ChangeUpsert:
		return "upsert"
	case ChangeDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ChangeRef identifies one changed item reported by a connector.
// It carries enough to fetch the payload and to advance the cursor.
type ChangeRef struct {
	// ExternalID is the item's identifier in the upstream system.
	ExternalID string

	// Kind says whether the item was upserted or deleted.
	Kind ChangeKind

	// Timestamp is when the change happened upstream. Drives the
	// max-successful-timestamp cursor advance on partial failure.
	Timestamp time.Time

	// Category is the connector's content category for the item
	// (doc, wiki, issue). Used for source-level filtering.
	Category string
}

// RawItem is the opaque payload a connector fetched for one item.
// It lives only for the duration of a pipeline run and is never persisted.
type RawItem struct {
	// SourceID identifies the owning source.
	SourceID string

	// ExternalID is the item's identifier in the upstream system.
	ExternalID string

	// URI is a stable human-facing address for the item.
	URI string

	// MIMEType declares the payload format for normaliser dispatch.
	MIMEType string

	// Payload is the raw content bytes.
	Payload []byte

	// Metadata carries connector-specific fields (author, labels, space).
	Metadata map[string]any

	// FetchedAt is when the connector retrieved the payload.
	FetchedAt time.Time
}

// PayloadHash returns the hex SHA-256 of the raw payload bytes.
// Distinct from Document.ContentHash, which hashes normalised text.
func (r *RawItem) PayloadHash() string {
	sum := sha256.Sum256(r.Payload)
	return hex.EncodeToString(sum[:])
}
