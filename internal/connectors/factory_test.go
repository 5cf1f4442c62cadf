package connectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

func TestFactory_Create(t *testing.T) {
	t.Run("dispatches on the source type", func(t *testing.T) {
		factory := NewDefaultFactory()
		source := domain.Source{
			ID:     "src-fs",
			Type:   domain.SourceTypeFilesystem,
			Name:   "local notes",
			Config: map[string]string{"root": t.TempDir()},
		}

		conn, err := factory.Create(context.Background(), source)
		require.NoError(t, err)
		defer conn.Close()

		assert.Equal(t, domain.SourceTypeFilesystem, conn.Type())
		assert.Equal(t, "src-fs", conn.SourceID())
	})

	t.Run("unknown type is unsupported", func(t *testing.T) {
		factory := NewDefaultFactory()
		source := domain.Source{ID: "src-x", Type: "carrier-pigeon", Name: "pigeons"}

		_, err := factory.Create(context.Background(), source)
		require.ErrorIs(t, err, domain.ErrUnsupportedType)
		assert.Contains(t, err.Error(), "carrier-pigeon")
	})

	t.Run("builder errors pass through", func(t *testing.T) {
		factory := NewDefaultFactory()
		source := domain.Source{
			ID:     "src-github",
			Type:   domain.SourceTypeGitHub,
			Name:   "repo without config",
			Config: map[string]string{},
		}

		_, err := factory.Create(context.Background(), source)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestFactory_Register(t *testing.T) {
	t.Run("replaces the builder for a type", func(t *testing.T) {
		factory := NewFactory()

		called := false
		factory.Register(domain.SourceTypeWiki, func(ctx context.Context, source domain.Source) (driven.Connector, error) {
			called = true
			return nil, domain.ErrInvalidInput
		})

		_, err := factory.Create(context.Background(), domain.Source{Type: domain.SourceTypeWiki})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.True(t, called)
	})

	t.Run("ignores a nil builder", func(t *testing.T) {
		factory := NewFactory()
		factory.Register(domain.SourceTypeWiki, nil)

		assert.Empty(t, factory.SupportedTypes())
	})
}

func TestFactory_SupportedTypes(t *testing.T) {
	t.Run("default factory registers every built-in connector", func(t *testing.T) {
		factory := NewDefaultFactory()

		assert.Equal(t, []domain.SourceType{
			domain.SourceTypeDrive,
			domain.SourceTypeFilesystem,
			domain.SourceTypeGitHub,
			domain.SourceTypeWiki,
		}, factory.SupportedTypes())
	})

	t.Run("empty factory supports nothing", func(t *testing.T) {
		assert.Empty(t, NewFactory().SupportedTypes())
	})
}
