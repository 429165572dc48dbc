package wordpress

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// CursorVersion is the current cursor schema version.
const CursorVersion = 1

// ErrInvalidCursor indicates the cursor format is invalid.
var ErrInvalidCursor = errors.New("wordpress: invalid cursor format")

// Cursor tracks position across routes and pages.
type Cursor struct {
	// Version is the schema version for future migrations.
	Version int `json:"v"`

	// Route indexes Config.Routes.
	Route int `json:"route"`

	// Page is the 1-based page within the route.
	Page int `json:"page"`
}

// Encode serializes the cursor to a base64-encoded JSON string.
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

// DecodeCursor deserializes a cursor. Empty input starts at the first page.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return &Cursor{Version: CursorVersion, Page: 1}, nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, ErrInvalidCursor
	}
	if c.Page < 1 || c.Route < 0 {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}
