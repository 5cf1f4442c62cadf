package driven

import (
	"context"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// ConfigStore loads and saves application settings.
type ConfigStore interface {
	// Load reads the settings, applying defaults for missing fields.
	// A missing file yields the full defaults, not an error.
	Load(ctx context.Context) (*domain.Settings, error)

	// Save writes the settings.
	Save(ctx context.Context, settings *domain.Settings) error
}
