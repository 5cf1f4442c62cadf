package domain

import (
	"strings"
	"time"
)

// Source is a configured external content source.
// The orchestrator owns it; only a completed sync mutates its cursor state.
type Source struct {
	// ID is the unique source identifier.
	ID string

	// Type selects the connector implementation.
	Type SourceType

	// Name is a human-readable label.
	Name string

	// Config holds connector-specific settings (repo, folder id, path).
	Config map[string]string

	// Languages restricts ingestion to the given language codes.
	// Empty means all languages.
	Languages []string

	// Categories restricts ingestion to the given content categories
	// (doc, wiki, issue). Empty means all categories the connector emits.
	Categories []string

	// Enabled controls whether scheduled sweeps include this source.
	Enabled bool

	// CreatedAt is when the source was registered.
	CreatedAt time.Time

	// UpdatedAt is when the source configuration last changed.
	UpdatedAt time.Time
}

// Validate checks the source for required fields.
func (s *Source) Validate() error {
	if s == nil {
		return ErrInvalidInput
	}
	if strings.TrimSpace(s.Name) == "" {
		return ErrInvalidInput
	}
	if !s.Type.IsValid() {
		return ErrUnsupportedType
	}
	return nil
}

// AcceptsLanguage reports whether the source's language filter admits
// the given language code. An empty filter admits everything.
func (s *Source) AcceptsLanguage(lang string) bool {
	if len(s.Languages) == 0 {
		return true
	}
	for _, l := range s.Languages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

// AcceptsCategory reports whether the source's category filter admits
// the given content category. An empty filter admits everything.
func (s *Source) AcceptsCategory(category string) bool {
	if len(s.Categories) == 0 {
		return true
	}
	for _, c := range s.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// SyncState tracks incremental sync progress for a source.
// The cursor is opaque to the core: a timestamp cursor is serialised
// RFC3339Nano, a token cursor is whatever the connector issued.
type SyncState struct {
	// SourceID identifies the source this state belongs to.
	SourceID string

	// Cursor marks the position of the last completed sync.
	Cursor string

	// LastSync is when the source last completed any sync.
	LastSync time.Time

	// LastFull is when the source last completed a full sync.
	// Drives the slower-cadence drift-correction schedule.
	LastFull time.Time
}

// CursorTime parses a timestamp cursor. Returns the zero time for an
// empty or token-form cursor, which connectors treat as "from the start".
func (s SyncState) CursorTime() time.Time {
	if s.Cursor == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.Cursor)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FormatCursor serialises a timestamp as a cursor string.
func FormatCursor(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
