package drive

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// CursorVersion is the current cursor format version.
const CursorVersion = 1

// ErrInvalidCursor indicates the cursor could not be decoded.
var ErrInvalidCursor = errors.New("drive: invalid cursor format")

// Cursor tracks the position in a files.list traversal.
type Cursor struct {
	// Version is the cursor format version for future compatibility.
	Version int `json:"v"`
	// PageToken is the nextPageToken of the previous files.list call.
	PageToken string `json:"page_token"`
}

// Encode serialises the cursor to a base64 string for storage.
func (c *Cursor) Encode() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor deserializes a cursor from a base64 string.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return &Cursor{Version: CursorVersion}, nil
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
