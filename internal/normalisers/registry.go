package normalisers

import (
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches raw items to the best matching normaliser.
// Selection priority: source-specific > MIME-specific > fallback.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a normaliser to the registry.
func (r *Registry) Register(n driven.Normaliser) {
	if n == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers = append(r.normalisers, n)
}

// Resolve picks the highest-priority normaliser supporting the MIME
// type and source type. Returns domain.ErrUnsupportedFormat when
// nothing matches.
func (r *Registry) Resolve(mimeType string, sourceType domain.SourceType) (driven.Normaliser, error) {
	mime := canonicalMIME(mimeType)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best driven.Normaliser
	bestPriority := -1
	for _, n := range r.normalisers {
		if !supportsMIME(n, mime) || !supportsSource(n, sourceType) {
			continue
		}
		if n.Priority() > bestPriority {
			best = n
			bestPriority = n.Priority()
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, mimeType)
	}
	return best, nil
}

// SupportedMIMETypes returns the union of MIME types across all
// registered normalisers, deduplicated.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var types []string
	for _, n := range r.normalisers {
		for _, mime := range n.SupportedMIMETypes() {
			if _, ok := seen[mime]; ok {
				continue
			}
			seen[mime] = struct{}{}
			types = append(types, mime)
		}
	}
	return types
}

// canonicalMIME lowercases and strips parameters such as charset.
func canonicalMIME(mimeType string) string {
	mime, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(mime))
}

func supportsMIME(n driven.Normaliser, mime string) bool {
	for _, supported := range n.SupportedMIMETypes() {
		if canonicalMIME(supported) == mime {
			return true
		}
	}
	return false
}

func supportsSource(n driven.Normaliser, sourceType domain.SourceType) bool {
	types := n.SupportedSourceTypes()
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == sourceType {
			return true
		}
	}
	return false
}
