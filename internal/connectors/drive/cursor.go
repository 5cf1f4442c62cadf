package drive

import (
	"encoding/base64"
	"encoding/json"
)

// CursorVersion is the current cursor schema version.
const CursorVersion = 1

// Cursor tracks Drive sync state through the Changes API.
type Cursor struct {
	// Version is the schema version for future migrations.
	Version int `json:"v"`

	// StartPageToken is where the next changes.list call resumes.
	StartPageToken string `json:"start_page_token,omitempty"`
}

// NewCursor creates a new empty cursor.
func NewCursor() *Cursor {
	return &Cursor{Version: CursorVersion}
}

// IsEmpty reports whether the cursor carries no sync state.
func (c *Cursor) IsEmpty() bool {
	return c.StartPageToken == ""
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
	if cursor.Version > CursorVersion {
		return nil, ErrInvalidCursor
	}

	return &cursor, nil
}
