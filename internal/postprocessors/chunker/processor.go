// Package chunker splits document content into token-bounded chunks.
//
// Paragraph boundaries (blank lines, which is also how the normalisers
// mark headings) are the preferred split points: consecutive paragraphs
// are packed greedily until the token budget is reached. A paragraph
// larger than the budget falls back to fixed token windows. Consecutive
// chunks share a configurable token overlap so context survives the
// cut. Output is fully determined by the document's id, version and
// content, which keeps chunk ids stable across re-syncs.
package chunker

import (
	"context"
	"strings"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// DefaultMaxTokens is the default chunk size in tokens.
const DefaultMaxTokens = 300

// DefaultOverlapTokens is the default overlap between chunks in tokens.
const DefaultOverlapTokens = 50

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Processor splits document content into token-bounded chunks.
type Processor struct {
	maxTokens int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxTokens sets the chunk size in tokens.
func WithMaxTokens(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.maxTokens = size
		}
	}
}

// WithOverlapTokens sets the overlap between chunks in tokens.
func WithOverlapTokens(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxTokens: DefaultMaxTokens,
		overlap:   DefaultOverlapTokens,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Overlap must stay below the chunk size or packing cannot advance.
	if p.overlap >= p.maxTokens {
		p.overlap = p.maxTokens / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// span is a half-open token range within the document token stream.
type span struct {
	start, end int
}

// Process splits the document content into chunks. Input chunks are
// ignored; this processor creates chunks from the document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	tokens := strings.Fields(doc.Content)
	if len(tokens) == 0 {
		return nil, nil
	}

	spans := p.chunkSpans(unitSpans(doc.Content))
	chunks := make([]domain.Chunk, 0, len(spans))
	for i, s := range spans {
		chunks = append(chunks, domain.Chunk{
			ID:         domain.ChunkID(doc.ID, doc.Version, i),
			DocumentID: doc.ID,
			Version:    doc.Version,
			Ordinal:    i,
			Content:    strings.Join(tokens[s.start:s.end], " "),
			TokenCount: s.end - s.start,
			StartToken: s.start,
			EndToken:   s.end,
		})
	}
	return chunks, nil
}

// unitSpans maps each paragraph to its token range. Paragraphs are
// blank-line separated; the ranges are contiguous over the document
// token stream because splitting only removes whitespace.
func unitSpans(content string) []span {
	var spans []span
	offset := 0
	for _, para := range strings.Split(content, "\n\n") {
		n := len(strings.Fields(para))
		if n == 0 {
			continue
		}
		spans = append(spans, span{offset, offset + n})
		offset += n
	}
	return spans
}

// chunkSpans packs paragraph spans into chunk spans.
func (p *Processor) chunkSpans(units []span) []span {
	var out []span
	cur := span{start: -1}

	flush := func() {
		if cur.start >= 0 {
			out = append(out, cur)
			cur = span{start: -1}
		}
	}

	for _, u := range units {
		if u.end-u.start > p.maxTokens {
			flush()
			out = append(out, p.windows(u)...)
			continue
		}
		if cur.start >= 0 && u.end-cur.start <= p.maxTokens {
			cur.end = u.end
			continue
		}
		flush()
		cur = span{start: p.carriedStart(out, u), end: u.end}
	}
	flush()
	return out
}

// carriedStart begins a chunk before its first paragraph when the
// trailing tokens of the previous chunk fit alongside it, so the cut
// between chunks keeps shared context.
func (p *Processor) carriedStart(prev []span, u span) int {
	if len(prev) == 0 || p.overlap <= 0 {
		return u.start
	}
	carry := prev[len(prev)-1].end - p.overlap
	if carry < 0 || carry >= u.start {
		return u.start
	}
	if u.end-carry > p.maxTokens {
		return u.start
	}
	return carry
}

// windows splits an oversized paragraph into fixed token windows with
// the configured overlap between consecutive windows.
func (p *Processor) windows(u span) []span {
	step := p.maxTokens - p.overlap
	var out []span
	for ws := u.start; ; ws += step {
		we := ws + p.maxTokens
		if we >= u.end {
			out = append(out, span{ws, u.end})
			return out
		}
		out = append(out, span{ws, we})
	}
}
