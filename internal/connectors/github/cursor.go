package github

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// CursorVersion is the current cursor schema version.
const CursorVersion = 1

// Cursor tracks per-category sync state for one repository. It is
// serialised to an opaque token; the orchestrator never inspects it.
type Cursor struct {
	// Version is the schema version for future migrations.
	Version int `json:"v"`

	// TreeSHA is the git tree SHA of the last listed default branch.
	TreeSHA string `json:"tree_sha,omitempty"`

	// WikiSHA is the git tree SHA of the last listed wiki.
	WikiSHA string `json:"wiki_sha,omitempty"`

	// IssuesSince is the update watermark of the last listed issue.
	IssuesSince time.Time `json:"issues_since,omitempty"`
}

// NewCursor creates a new empty cursor.
func NewCursor() *Cursor {
	return &Cursor{Version: CursorVersion}
}

// Encode serialises the cursor to a base64-encoded JSON string.
func (c *Cursor) Encode() string {
	if c == nil {
		return ""
	}
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor deserialises a cursor from a base64-encoded JSON string.
// An empty string decodes to a new empty cursor.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return NewCursor(), nil
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, ErrInvalidCursor
	}

	return &cursor, nil
}
