package driven

import (
	"context"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// CursorKind says how a connector's cursor behaves across runs.
type CursorKind string

// Cursor kinds.
const (
	// CursorTimestamp cursors are RFC3339Nano instants. On partial
	// failure the orchestrator advances only to the latest successfully
	// processed change so failed items are re-listed next run.
	CursorTimestamp CursorKind = "timestamp"

	// CursorToken cursors are opaque (page tokens, composite state).
	// On partial failure the orchestrator keeps the previous cursor.
	CursorToken CursorKind = "token"
)

// ConnectorCapabilities describes what a connector supports.
type ConnectorCapabilities struct {
	// SupportsIncremental indicates the connector can list only items
	// changed since a cursor. Without it every sync is a full pass.
	SupportsIncremental bool

	// SupportsWatch indicates the connector can push change events.
	SupportsWatch bool

	// EmitsDeletes indicates ListChanged reports explicit deletions.
	// Without it, deletions are only reconciled by a full sync.
	EmitsDeletes bool

	// Cursor says how the connector's cursor advances.
	Cursor CursorKind

	// Categories lists the content categories the connector can emit
	// (doc, wiki, issue).
	Categories []string
}

// Connector is the adapter over one external system. The core stays
// agnostic to the upstream API: it only ever lists changes and fetches
// payloads by external id.
type Connector interface {
	// Type returns the connector type identifier.
	Type() domain.SourceType

	// SourceID returns the configured source id.
	SourceID() string

	// Capabilities returns what this connector supports.
	Capabilities() ConnectorCapabilities

	// Validate checks that the connector is configured and can reach
	// its upstream system. For API connectors this makes a cheap call;
	// for filesystem it checks the root exists and is readable.
	Validate(ctx context.Context) error

	// ListChanged returns references to items changed since the cursor,
	// plus the connector's proposed next cursor. An empty cursor means
	// "from the beginning" and is how a full pass lists everything.
	ListChanged(ctx context.Context, cursor string) ([]domain.ChangeRef, string, error)

	// Fetch retrieves the raw payload for one item.
	Fetch(ctx context.Context, externalID string) (*domain.RawItem, error)

	// Close releases resources.
	Close() error
}

// Watcher is implemented by connectors that can push change events.
// Asserted at runtime; only used when Capabilities().SupportsWatch.
type Watcher interface {
	// Watch emits change references until the context is cancelled.
	Watch(ctx context.Context) (<-chan domain.ChangeRef, error)
}

// ConnectorFactory creates connectors from source configuration.
type ConnectorFactory interface {
	// Create builds a connector for the source. Returns
	// domain.ErrUnsupportedType for unknown source types.
	Create(ctx context.Context, source domain.Source) (Connector, error)

	// SupportedTypes returns the source types this factory can build.
	SupportedTypes() []domain.SourceType
}
