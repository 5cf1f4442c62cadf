package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// mockProcessor is a configurable pipeline stage for tests.
type mockProcessor struct {
	name     string
	err      error
	process  func(doc *domain.Document, chunks []domain.Chunk) []domain.Chunk
	received []domain.Chunk
	called   bool
}

func (m *mockProcessor) Name() string { return m.name }

func (m *mockProcessor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	m.called = true
	m.received = chunks
	if m.err != nil {
		return nil, m.err
	}
	if m.process != nil {
		return m.process(doc, chunks), nil
	}
	return chunks, nil
}

func TestNewPipeline(t *testing.T) {
	p := NewPipeline(&mockProcessor{name: "a"}, &mockProcessor{name: "b"})
	require.NotNil(t, p)
	assert.Equal(t, 2, p.Len())
}

func TestPipeline_Process_Chains(t *testing.T) {
	ctx := context.Background()

	first := &mockProcessor{
		name: "splitter",
		process: func(doc *domain.Document, _ []domain.Chunk) []domain.Chunk {
			return []domain.Chunk{{ID: "c1", DocumentID: doc.ID, Content: doc.Content}}
		},
	}
	second := &mockProcessor{
		name: "annotator",
		process: func(doc *domain.Document, chunks []domain.Chunk) []domain.Chunk {
			return append(chunks, domain.Chunk{ID: "c2", DocumentID: doc.ID})
		},
	}

	p := NewPipeline(first, second)
	doc := &domain.Document{ID: "doc-1", Content: "hello"}

	chunks, err := p.Process(ctx, doc)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "c1", chunks[0].ID)
	assert.Equal(t, "hello", chunks[0].Content)
	assert.Equal(t, "c2", chunks[1].ID)

	assert.Nil(t, first.received)
	assert.Len(t, second.received, 1)
}

func TestPipeline_Process_NilDocument(t *testing.T) {
	p := NewPipeline(&mockProcessor{name: "a"})
	ctx := context.Background()

	chunks, err := p.Process(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, chunks)
}

func TestPipeline_Process_Error(t *testing.T) {
	ctx := context.Background()

	failing := &mockProcessor{name: "broken", err: errors.New("boom")}
	after := &mockProcessor{name: "after"}
	p := NewPipeline(&mockProcessor{name: "ok"}, failing, after)

	chunks, err := p.Process(ctx, &domain.Document{ID: "doc-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "processor broken")
	assert.Contains(t, err.Error(), "boom")
	assert.Nil(t, chunks)
	assert.False(t, after.called)
}

func TestPipeline_Process_Empty(t *testing.T) {
	p := NewPipeline()
	ctx := context.Background()

	chunks, err := p.Process(ctx, &domain.Document{ID: "doc-1"})
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestPipeline_Add(t *testing.T) {
	p := NewPipeline()
	assert.Equal(t, 0, p.Len())

	p.Add(&mockProcessor{name: "a"})
	assert.Equal(t, 1, p.Len())
}
