package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
	"github.com/custodia-labs/korpus/internal/postprocessors/chunker"
)

// RegisterDefaults registers all built-in processors with the
// registry. Call during application initialisation.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
}

// NewDefaultPipeline builds the standard pipeline from settings: the
// token chunker, configured with the pipeline's chunk size and overlap.
func NewDefaultPipeline(settings domain.PipelineSettings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)

	proc, err := r.Build("chunker", map[string]any{
		"max_tokens":     settings.ChunkTokens,
		"overlap_tokens": settings.ChunkOverlap,
	})
	if err != nil {
		return nil, fmt.Errorf("building chunker: %w", err)
	}

	return NewPipeline(proc), nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - max_tokens (int): tokens per chunk
//   - overlap_tokens (int): overlapping tokens between chunks
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "max_tokens"); size > 0 {
			opts = append(opts, chunker.WithMaxTokens(size))
		}
		// Zero is a valid overlap; only an absent key keeps the default.
		if _, ok := cfg["overlap_tokens"]; ok {
			opts = append(opts, chunker.WithOverlapTokens(getIntFromConfig(cfg, "overlap_tokens")))
		}
	}

	return chunker.New(opts...), nil
}

// getIntFromConfig safely extracts an int from a generic config map,
// handling the int, int64 and float64 shapes TOML and JSON parsers
// produce.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
