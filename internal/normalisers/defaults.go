package normalisers

import (
	"github.com/custodia-labs/korpus/internal/normalisers/docx"
	"github.com/custodia-labs/korpus/internal/normalisers/eml"
	"github.com/custodia-labs/korpus/internal/normalisers/epub"
	"github.com/custodia-labs/korpus/internal/normalisers/html"
	"github.com/custodia-labs/korpus/internal/normalisers/markdown"
	"github.com/custodia-labs/korpus/internal/normalisers/plaintext"
	"github.com/custodia-labs/korpus/internal/normalisers/tracker"
)

// RegisterDefaults registers every built-in normaliser with the
// registry. Call during application initialisation.
func RegisterDefaults(r *Registry) {
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(epub.New())
	r.Register(eml.New())
	r.Register(tracker.New())
}

// NewDefaultRegistry creates a registry with every built-in normaliser.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
