package connectors

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/korpus/internal/connectors/drive"
	"github.com/custodia-labs/korpus/internal/connectors/filesystem"
	"github.com/custodia-labs/korpus/internal/connectors/github"
	"github.com/custodia-labs/korpus/internal/connectors/wiki"
	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// Builder constructs a connector for one source.
type Builder func(ctx context.Context, source domain.Source) (driven.Connector, error)

// Factory builds connectors from source configuration. Builders are
// registered per source type and Create dispatches on Source.Type.
type Factory struct {
	mu       sync.RWMutex
	builders map[domain.SourceType]Builder
}

var _ driven.ConnectorFactory = (*Factory)(nil)

// NewFactory creates a factory with no builders registered.
func NewFactory() *Factory {
	return &Factory{
		builders: make(map[domain.SourceType]Builder),
	}
}

// NewDefaultFactory creates a factory with every built-in connector
// registered.
func NewDefaultFactory() *Factory {
	f := NewFactory()
	f.Register(domain.SourceTypeFilesystem, func(_ context.Context, source domain.Source) (driven.Connector, error) {
		return filesystem.New(source)
	})
	f.Register(domain.SourceTypeGitHub, func(_ context.Context, source domain.Source) (driven.Connector, error) {
		return github.New(source)
	})
	f.Register(domain.SourceTypeWiki, func(_ context.Context, source domain.Source) (driven.Connector, error) {
		return wiki.New(source)
	})
	f.Register(domain.SourceTypeDrive, func(_ context.Context, source domain.Source) (driven.Connector, error) {
		return drive.New(source)
	})
	return f
}

// Register adds or replaces the builder for a source type.
// A nil builder is ignored.
func (f *Factory) Register(sourceType domain.SourceType, builder Builder) {
	if builder == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[sourceType] = builder
}

// Create builds a connector for the source.
func (f *Factory) Create(ctx context.Context, source domain.Source) (driven.Connector, error) {
	f.mu.RLock()
	builder, ok := f.builders[source.Type]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, source.Type)
	}
	return builder(ctx, source)
}

// SupportedTypes returns the registered source types, sorted.
func (f *Factory) SupportedTypes() []domain.SourceType {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]domain.SourceType, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
